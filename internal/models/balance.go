package models

// Balance holds the derived totals for one member within a group. It is not
// independently authoritative: the ledger recomputes it wholesale from the
// group's transactions on every mutating write.
type Balance struct {
	// MemberID identifies the member this balance belongs to.
	MemberID string

	// GroupID identifies the group.
	GroupID string

	// MemberName is the member's display name, carried for callers.
	MemberName string

	// TotalPaid is expense payments minus refund shares received.
	TotalPaid float64

	// TotalOwed is expense shares minus refund payments made.
	TotalOwed float64

	// NetBalance is TotalPaid minus TotalOwed. Positive means the member
	// is owed money, negative means the member owes.
	NetBalance float64
}

// Settlement is a suggested transfer that reduces outstanding net balances
// toward zero. Settlements are ephemeral: computed per request from the
// current balances and never persisted.
type Settlement struct {
	// FromMemberID is the debtor making the transfer.
	FromMemberID string

	// FromMemberName is the debtor's display name.
	FromMemberName string

	// ToMemberID is the creditor receiving the transfer.
	ToMemberID string

	// ToMemberName is the creditor's display name.
	ToMemberName string

	// Amount is the suggested transfer amount, rounded to 2 decimals.
	Amount float64
}
