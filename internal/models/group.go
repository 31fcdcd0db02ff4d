package models

// Group represents a set of members sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// CreatorUserID is the user who created the group. Only the creator
	// may delete it.
	CreatorUserID string

	// InviteCode is a shareable code (UUID format) other users present
	// to join the group.
	InviteCode string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Member is a participant in a group. A member exists independently of any
// account: members are created by name and may later be claimed by a
// registered user via the group's invite code. At most one member per
// (group, user) pair may be linked at any time.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	ID string

	// GroupID is the group this member belongs to.
	GroupID string

	// Name is the member's display name within the group.
	Name string

	// UserID is the linked user account, empty if unclaimed.
	UserID string

	// IsCreator marks the member row created for the group's creator.
	IsCreator bool

	// CreatedAt is the Unix timestamp when the member was added.
	CreatedAt int64
}
