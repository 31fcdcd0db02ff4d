// Package ledger derives per-member balances from the transaction ledger.
//
// Recompute is wholesale: every mutating ledger write triggers a full
// recompute of the group's balances rather than an incremental delta. This
// is O(ledger size) per write, which is acceptable at small group scale,
// and it is what makes the aggregation self-healing: a dropped or
// duplicated trigger is corrected by the next write.
package ledger

import (
	"context"
	"fmt"

	"github.com/reparte/backend/internal/models"
	"github.com/reparte/backend/internal/storage"
)

// AggregatorStore is the slice of storage the aggregator reads and writes.
type AggregatorStore interface {
	ListMembers(ctx context.Context, groupID string) ([]*models.Member, error)
	MemberLedgerSums(ctx context.Context, memberID string) (storage.LedgerSums, error)
	UpsertBalance(ctx context.Context, balance *models.Balance) error
}

// Aggregator recomputes balance rows from the ledger.
type Aggregator struct {
	store AggregatorStore
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(store AggregatorStore) *Aggregator {
	return &Aggregator{store: store}
}

// Recompute upserts one balance row per live member of the group.
//
// A refund is a reverse expense: the refund payer is reducing what others
// owe them, so refund payments offset the payer's owed total and refund
// shares received offset the recipient's paid total. That keeps one net
// balance formula serving both transaction kinds:
//
//	totalPaid = paidOnExpenses  - receivedOnRefunds
//	totalOwed = owedOnExpenses  - paidOnRefunds
//	net       = totalPaid - totalOwed
func (a *Aggregator) Recompute(ctx context.Context, groupID string) error {
	members, err := a.store.ListMembers(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to list members for recompute: %w", err)
	}

	for _, member := range members {
		sums, err := a.store.MemberLedgerSums(ctx, member.ID)
		if err != nil {
			return fmt.Errorf("failed to sum ledger for member %s: %w", member.ID, err)
		}

		totalPaid := sums.PaidOnExpenses - sums.ReceivedOnRefunds
		totalOwed := sums.OwedOnExpenses - sums.PaidOnRefunds

		balance := &models.Balance{
			MemberID:   member.ID,
			GroupID:    groupID,
			TotalPaid:  totalPaid,
			TotalOwed:  totalOwed,
			NetBalance: totalPaid - totalOwed,
		}
		if err := a.store.UpsertBalance(ctx, balance); err != nil {
			return fmt.Errorf("failed to upsert balance for member %s: %w", member.ID, err)
		}
	}

	return nil
}
