package service

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/reparte/backend/internal/calculator"
	"github.com/reparte/backend/internal/errs"
	"github.com/reparte/backend/internal/ledger"
	"github.com/reparte/backend/internal/middleware"
	"github.com/reparte/backend/internal/models"
	"github.com/reparte/backend/internal/storage"
)

// TransactionService serves CRUD for one transaction kind. The same
// handler set is mounted once under /expenses and once under /refunds;
// only the kind differs, the balance aggregator applies the sign.
type TransactionService struct {
	kind      models.TransactionKind
	store     storage.Store
	queue     *ledger.Queue
	validator *validator.Validate
	logger    *slog.Logger
}

// NewTransactionService creates the handler set for the given kind.
func NewTransactionService(kind models.TransactionKind, store storage.Store, queue *ledger.Queue, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		kind:      kind,
		store:     store,
		queue:     queue,
		validator: validator.New(),
		logger:    logger,
	}
}

type splitPayload struct {
	MemberID string  `json:"memberId" validate:"required,uuid4"`
	Amount   float64 `json:"amount" validate:"gte=0"`
}

type transactionRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Category    string  `json:"category" validate:"omitempty,max=50"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	PayerID     string  `json:"payerId" validate:"required,uuid4"`
	// Splits may be omitted: the amount is then divided evenly between
	// all live members of the group.
	Splits []splitPayload `json:"splits" validate:"omitempty,dive"`
}

type transactionResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Amount      float64        `json:"amount"`
	Category    string         `json:"category,omitempty"`
	Description string         `json:"description,omitempty"`
	PayerID     string         `json:"payerId"`
	Splits      []splitPayload `json:"splits,omitempty"`
	CreatedAt   int64          `json:"createdAt"`
}

func toTransactionResponse(t *models.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          t.ID,
		Name:        t.Name,
		Amount:      t.Amount,
		Category:    t.Category,
		Description: t.Description,
		PayerID:     t.PayerID,
		CreatedAt:   t.CreatedAt,
	}
	for _, sp := range t.Splits {
		resp.Splits = append(resp.Splits, splitPayload{MemberID: sp.MemberID, Amount: sp.Amount})
	}
	return resp
}

// resolveSplits validates the payer and split members against the group's
// live member rows and returns the final split set. An omitted split list
// becomes an even division between every live member, the last share
// absorbing the rounding remainder.
func (s *TransactionService) resolveSplits(r *http.Request, groupID string, req transactionRequest) ([]models.Split, error) {
	members, err := s.store.ListMembers(r.Context(), groupID)
	if err != nil {
		return nil, err
	}
	live := make(map[string]bool, len(members))
	for _, m := range members {
		live[m.ID] = true
	}
	if !live[req.PayerID] {
		return nil, fmt.Errorf("%w: payer is not a member of this group", errs.ErrConflict)
	}

	if len(req.Splits) == 0 {
		shares, err := calculator.EvenSplit(req.Amount, len(members))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrValidation, err)
		}
		splits := make([]models.Split, len(members))
		for i, m := range members {
			splits[i] = models.Split{MemberID: m.ID, Amount: shares[i]}
		}
		return splits, nil
	}

	amounts := make([]float64, 0, len(req.Splits))
	seen := make(map[string]bool, len(req.Splits))
	splits := make([]models.Split, 0, len(req.Splits))
	for _, sp := range req.Splits {
		if seen[sp.MemberID] {
			return nil, fmt.Errorf("%w: duplicate split member %s", errs.ErrValidation, sp.MemberID)
		}
		seen[sp.MemberID] = true
		if !live[sp.MemberID] {
			return nil, fmt.Errorf("%w: split member %s is not a member of this group", errs.ErrConflict, sp.MemberID)
		}
		amounts = append(amounts, sp.Amount)
		splits = append(splits, models.Split{MemberID: sp.MemberID, Amount: sp.Amount})
	}
	if !calculator.SumWithinTolerance(req.Amount, amounts) {
		return nil, fmt.Errorf("%w: split amounts must sum to the total", errs.ErrValidation)
	}
	return splits, nil
}

// Create handles POST. The balance recompute is queued after commit, never
// awaited.
func (s *TransactionService) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetMember(r.Context())

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}
	splits, err := s.resolveSplits(r, caller.GroupID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	tx := &models.Transaction{
		GroupID:     caller.GroupID,
		Kind:        s.kind,
		Name:        req.Name,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		PayerID:     req.PayerID,
		Splits:      splits,
	}

	if err := s.store.CreateTransaction(r.Context(), tx); err != nil {
		s.logger.Error("Transaction creation failed", "kind", s.kind, "group_id", caller.GroupID, "error", err)
		writeError(w, err)
		return
	}

	s.queue.Enqueue(caller.GroupID)
	s.logger.Info("Transaction created", "kind", s.kind, "transaction_id", tx.ID, "group_id", caller.GroupID)
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

// List handles GET: newest first, without splits.
func (s *TransactionService) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetMember(r.Context())

	txs, err := s.store.ListTransactions(r.Context(), s.kind, caller.GroupID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /{transactionID}, with live splits.
func (s *TransactionService) Get(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetMember(r.Context())

	tx, err := s.store.GetTransaction(r.Context(), s.kind, chi.URLParam(r, "transactionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if tx.GroupID != caller.GroupID {
		writeError(w, fmt.Errorf("%w: transaction", errs.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// Update handles PUT /{transactionID}: the row is rewritten and splits are
// reconciled, then a recompute is queued.
func (s *TransactionService) Update(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetMember(r.Context())
	txID := chi.URLParam(r, "transactionID")

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}
	splits, err := s.resolveSplits(r, caller.GroupID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	existing, err := s.store.GetTransaction(r.Context(), s.kind, txID)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.GroupID != caller.GroupID {
		writeError(w, fmt.Errorf("%w: transaction", errs.ErrNotFound))
		return
	}

	tx := &models.Transaction{
		ID:          txID,
		GroupID:     caller.GroupID,
		Kind:        s.kind,
		Name:        req.Name,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		PayerID:     req.PayerID,
		Splits:      splits,
	}

	if err := s.store.UpdateTransaction(r.Context(), tx); err != nil {
		s.logger.Error("Transaction update failed", "kind", s.kind, "transaction_id", txID, "error", err)
		writeError(w, err)
		return
	}

	s.queue.Enqueue(caller.GroupID)
	s.logger.Info("Transaction updated", "kind", s.kind, "transaction_id", txID, "group_id", caller.GroupID)
	writeMessage(w, http.StatusOK, "transaction updated")
}

// Delete handles DELETE /{transactionID}: soft-delete plus recompute.
func (s *TransactionService) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetMember(r.Context())
	txID := chi.URLParam(r, "transactionID")

	existing, err := s.store.GetTransaction(r.Context(), s.kind, txID)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.GroupID != caller.GroupID {
		writeError(w, fmt.Errorf("%w: transaction", errs.ErrNotFound))
		return
	}

	if err := s.store.DeleteTransaction(r.Context(), s.kind, txID); err != nil {
		s.logger.Error("Transaction deletion failed", "kind", s.kind, "transaction_id", txID, "error", err)
		writeError(w, err)
		return
	}

	s.queue.Enqueue(caller.GroupID)
	s.logger.Info("Transaction deleted", "kind", s.kind, "transaction_id", txID, "group_id", caller.GroupID)
	writeMessage(w, http.StatusOK, "transaction deleted")
}
