package service

import (
	"log/slog"
	"net/http"

	"github.com/reparte/backend/internal/calculator"
	"github.com/reparte/backend/internal/middleware"
	"github.com/reparte/backend/internal/models"
	"github.com/reparte/backend/internal/storage"
)

// BalanceService serves the group balance read. Balances come from the
// persisted rows the aggregator maintains; settlements are derived fresh
// on every read.
type BalanceService struct {
	store  storage.BalanceStore
	logger *slog.Logger
}

// NewBalanceService creates the balance handler.
func NewBalanceService(store storage.BalanceStore, logger *slog.Logger) *BalanceService {
	return &BalanceService{store: store, logger: logger}
}

type balancePayload struct {
	MemberID   string  `json:"memberId"`
	MemberName string  `json:"memberName"`
	TotalPaid  float64 `json:"totalPaid"`
	TotalOwed  float64 `json:"totalOwed"`
	NetBalance float64 `json:"netBalance"`
}

type settlementPayload struct {
	FromMemberID   string  `json:"fromMemberId"`
	FromMemberName string  `json:"fromMemberName"`
	ToMemberID     string  `json:"toMemberId"`
	ToMemberName   string  `json:"toMemberName"`
	Amount         float64 `json:"amount"`
}

type balancesResponse struct {
	MemberBalances []balancePayload    `json:"memberBalances"`
	Settlements    []settlementPayload `json:"settlements"`
}

// Get handles GET /groups/{groupID}/balances.
func (s *BalanceService) Get(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetMember(r.Context())

	balances, err := s.store.ListBalances(r.Context(), caller.GroupID)
	if err != nil {
		s.logger.Error("Balance read failed", "group_id", caller.GroupID, "error", err)
		writeError(w, err)
		return
	}

	resp := balancesResponse{
		MemberBalances: make([]balancePayload, 0, len(balances)),
		Settlements:    make([]settlementPayload, 0),
	}
	for _, b := range balances {
		resp.MemberBalances = append(resp.MemberBalances, balancePayload{
			MemberID:   b.MemberID,
			MemberName: b.MemberName,
			TotalPaid:  b.TotalPaid,
			TotalOwed:  b.TotalOwed,
			NetBalance: b.NetBalance,
		})
	}
	for _, st := range calculator.Settle(balances) {
		resp.Settlements = append(resp.Settlements, toSettlementPayload(st))
	}

	writeJSON(w, http.StatusOK, resp)
}

func toSettlementPayload(st models.Settlement) settlementPayload {
	return settlementPayload{
		FromMemberID:   st.FromMemberID,
		FromMemberName: st.FromMemberName,
		ToMemberID:     st.ToMemberID,
		ToMemberName:   st.ToMemberName,
		Amount:         st.Amount,
	}
}
