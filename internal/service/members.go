package service

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/reparte/backend/internal/middleware"
	"github.com/reparte/backend/internal/models"
	"github.com/reparte/backend/internal/storage"
)

// MemberService serves member CRUD within a group. All routes sit behind
// the membership middleware, so the caller is known to belong.
type MemberService struct {
	store     storage.GroupStore
	validator *validator.Validate
	logger    *slog.Logger
}

// NewMemberService creates the member handler set.
func NewMemberService(store storage.GroupStore, logger *slog.Logger) *MemberService {
	return &MemberService{
		store:     store,
		validator: validator.New(),
		logger:    logger,
	}
}

type memberResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UserID    string `json:"userId,omitempty"`
	IsCreator bool   `json:"isCreator"`
	CreatedAt int64  `json:"createdAt"`
}

func toMemberResponse(m *models.Member) memberResponse {
	return memberResponse{
		ID:        m.ID,
		Name:      m.Name,
		UserID:    m.UserID,
		IsCreator: m.IsCreator,
		CreatedAt: m.CreatedAt,
	}
}

// List handles GET /groups/{groupID}/members.
func (s *MemberService) List(w http.ResponseWriter, r *http.Request) {
	member, _ := middleware.GetMember(r.Context())

	members, err := s.store.ListMembers(r.Context(), member.GroupID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, toMemberResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

type memberNameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Add handles POST /groups/{groupID}/members: a new unclaimed member,
// created by name. Any member may add others.
func (s *MemberService) Add(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetMember(r.Context())

	var req memberNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	member := &models.Member{
		GroupID: caller.GroupID,
		Name:    req.Name,
	}
	if err := s.store.AddMember(r.Context(), member); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("Member added", "group_id", caller.GroupID, "member_id", member.ID)
	writeJSON(w, http.StatusCreated, toMemberResponse(member))
}

// Get handles GET /groups/{groupID}/members/{memberID}.
func (s *MemberService) Get(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetMember(r.Context())

	member, err := s.store.GetMember(r.Context(), caller.GroupID, chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

// Rename handles PUT /groups/{groupID}/members/{memberID}.
func (s *MemberService) Rename(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetMember(r.Context())
	memberID := chi.URLParam(r, "memberID")

	var req memberNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := s.store.RenameMember(r.Context(), caller.GroupID, memberID, req.Name); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("Member renamed", "group_id", caller.GroupID, "member_id", memberID)
	writeMessage(w, http.StatusOK, "member updated")
}

// Delete handles DELETE /groups/{groupID}/members/{memberID}. The store
// refuses while the member still pays any live transaction; their splits
// as a mere participant are soft-deleted with them.
func (s *MemberService) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetMember(r.Context())
	memberID := chi.URLParam(r, "memberID")

	if err := s.store.DeleteMember(r.Context(), caller.GroupID, memberID); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("Member deleted", "group_id", caller.GroupID, "member_id", memberID)
	writeMessage(w, http.StatusOK, "member deleted")
}
