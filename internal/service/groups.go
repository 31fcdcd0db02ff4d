package service

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/reparte/backend/internal/errs"
	"github.com/reparte/backend/internal/middleware"
	"github.com/reparte/backend/internal/models"
	"github.com/reparte/backend/internal/storage"
)

// GroupService serves group CRUD and invite-code joins.
type GroupService struct {
	store     storage.Store
	validator *validator.Validate
	logger    *slog.Logger
}

// NewGroupService creates the group handler set.
func NewGroupService(store storage.Store, logger *slog.Logger) *GroupService {
	return &GroupService{
		store:     store,
		validator: validator.New(),
		logger:    logger,
	}
}

type createGroupRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	// MemberName is the creator's display name within the group. Defaults
	// to the account's first name.
	MemberName string `json:"memberName" validate:"omitempty,max=100"`
}

type groupResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"inviteCode,omitempty"`
	CreatedAt  int64  `json:"createdAt"`
}

func toGroupResponse(g *models.Group, includeInvite bool) groupResponse {
	resp := groupResponse{
		ID:        g.ID,
		Name:      g.Name,
		CreatedAt: g.CreatedAt,
	}
	if includeInvite {
		resp.InviteCode = g.InviteCode
	}
	return resp
}

// Create handles POST /groups: the group and the creator's member row are
// persisted atomically.
func (s *GroupService) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization token required")
		return
	}

	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	memberName := req.MemberName
	if memberName == "" {
		user, err := s.store.GetUserByID(r.Context(), identity.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		memberName = user.FirstName
	}

	group := &models.Group{
		Name:          req.Name,
		CreatorUserID: identity.UserID,
		InviteCode:    uuid.NewString(),
	}
	creator := &models.Member{
		Name:      memberName,
		UserID:    identity.UserID,
		IsCreator: true,
	}
	if err := s.store.CreateGroup(r.Context(), group, creator); err != nil {
		s.logger.Error("Group creation failed", "user_id", identity.UserID, "error", err)
		writeError(w, err)
		return
	}

	s.logger.Info("Group created", "group_id", group.ID, "user_id", identity.UserID)
	writeJSON(w, http.StatusCreated, toGroupResponse(group, true))
}

// List handles GET /groups: all groups the caller holds a member row in.
func (s *GroupService) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization token required")
		return
	}

	groups, err := s.store.ListGroupsByUser(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, toGroupResponse(g, g.CreatorUserID == identity.UserID))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /groups/{groupID}. Membership is already enforced by the
// middleware; the invite code is only shown to the creator.
func (s *GroupService) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	group, err := s.store.GetGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group, group.CreatorUserID == identity.UserID))
}

type updateGroupRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Update handles PUT /groups/{groupID}: rename only.
func (s *GroupService) Update(w http.ResponseWriter, r *http.Request) {
	var req updateGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	groupID := chi.URLParam(r, "groupID")
	if err := s.store.UpdateGroupName(r.Context(), groupID, req.Name); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("Group renamed", "group_id", groupID)
	writeMessage(w, http.StatusOK, "group updated")
}

// Delete handles DELETE /groups/{groupID}. Only the creator may delete;
// the cascade soft-deletes members, transactions and splits.
func (s *GroupService) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())
	groupID := chi.URLParam(r, "groupID")

	group, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	if group.CreatorUserID != identity.UserID {
		writeError(w, fmt.Errorf("%w: only the group creator may delete it", errs.ErrAuthorization))
		return
	}

	if err := s.store.DeleteGroup(r.Context(), groupID); err != nil {
		s.logger.Error("Group deletion failed", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}

	s.logger.Info("Group deleted", "group_id", groupID, "user_id", identity.UserID)
	writeMessage(w, http.StatusOK, "group deleted")
}

type joinGroupRequest struct {
	InviteCode string `json:"inviteCode" validate:"required,uuid4"`
	// MemberID claims an existing unclaimed member row. When empty a new
	// member is created with Name.
	MemberID string `json:"memberId" validate:"omitempty,uuid4"`
	Name     string `json:"name" validate:"omitempty,max=100"`
}

// Join handles POST /groups/join: an invite code admits the caller either
// by claiming an existing member row or by adding a fresh one.
func (s *GroupService) Join(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization token required")
		return
	}

	var req joinGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	group, err := s.store.GetGroupByInviteCode(r.Context(), req.InviteCode)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.MemberID != "" {
		if err := s.store.LinkMemberUser(r.Context(), group.ID, req.MemberID, identity.UserID); err != nil {
			writeError(w, err)
			return
		}
		s.logger.Info("Member claimed", "group_id", group.ID, "member_id", req.MemberID, "user_id", identity.UserID)
		writeJSON(w, http.StatusOK, toGroupResponse(group, false))
		return
	}

	existing, err := s.store.GetMemberByUser(r.Context(), group.ID, identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing != nil {
		writeError(w, fmt.Errorf("%w: user is already a member of this group", errs.ErrConflict))
		return
	}

	name := req.Name
	if name == "" {
		user, err := s.store.GetUserByID(r.Context(), identity.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		name = user.FirstName
	}

	member := &models.Member{
		GroupID: group.ID,
		Name:    name,
		UserID:  identity.UserID,
	}
	if err := s.store.AddMember(r.Context(), member); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("Member joined", "group_id", group.ID, "member_id", member.ID, "user_id", identity.UserID)
	writeJSON(w, http.StatusOK, toGroupResponse(group, false))
}
