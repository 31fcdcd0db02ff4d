package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/reparte/backend/internal/models"
	"github.com/reparte/backend/internal/storage"
)

// fakeStore is an in-memory AggregatorStore recording upserted balances.
type fakeStore struct {
	mu       sync.Mutex
	members  map[string][]*models.Member
	sums     map[string]storage.LedgerSums
	balances map[string]*models.Balance
	sumsErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:  make(map[string][]*models.Member),
		sums:     make(map[string]storage.LedgerSums),
		balances: make(map[string]*models.Balance),
	}
}

func (f *fakeStore) ListMembers(_ context.Context, groupID string) ([]*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[groupID], nil
}

func (f *fakeStore) MemberLedgerSums(_ context.Context, memberID string) (storage.LedgerSums, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sumsErr != nil {
		return storage.LedgerSums{}, f.sumsErr
	}
	return f.sums[memberID], nil
}

func (f *fakeStore) UpsertBalance(_ context.Context, balance *models.Balance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[balance.MemberID] = balance
	return nil
}

func (f *fakeStore) balance(memberID string) *models.Balance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[memberID]
}

func TestRecomputeSignsRefundsAsReverseExpenses(t *testing.T) {
	store := newFakeStore()
	store.members["g1"] = []*models.Member{
		{ID: "alice", GroupID: "g1"},
		{ID: "bob", GroupID: "g1"},
	}
	// Alice paid a 30 expense split evenly, then Bob refunded his 15 share.
	store.sums["alice"] = storage.LedgerSums{
		PaidOnExpenses:    30,
		OwedOnExpenses:    15,
		ReceivedOnRefunds: 15,
	}
	store.sums["bob"] = storage.LedgerSums{
		OwedOnExpenses: 15,
		PaidOnRefunds:  15,
	}

	agg := NewAggregator(store)
	if err := agg.Recompute(context.Background(), "g1"); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	alice := store.balance("alice")
	if alice == nil {
		t.Fatal("Expected a balance row for alice")
	}
	if math.Abs(alice.TotalPaid-15) > 0.001 || math.Abs(alice.TotalOwed-15) > 0.001 {
		t.Errorf("Alice paid/owed = %v/%v, want 15/15", alice.TotalPaid, alice.TotalOwed)
	}
	if math.Abs(alice.NetBalance) > 0.001 {
		t.Errorf("Alice net = %v, want 0 after the refund", alice.NetBalance)
	}

	bob := store.balance("bob")
	if math.Abs(bob.TotalOwed-0) > 0.001 {
		t.Errorf("Bob owed = %v, want 0 after paying the refund", bob.TotalOwed)
	}
	if math.Abs(bob.NetBalance) > 0.001 {
		t.Errorf("Bob net = %v, want 0", bob.NetBalance)
	}
}

func TestRecomputeEmptyGroup(t *testing.T) {
	store := newFakeStore()

	agg := NewAggregator(store)
	if err := agg.Recompute(context.Background(), "missing"); err != nil {
		t.Fatalf("Recompute of empty group failed: %v", err)
	}
	if len(store.balances) != 0 {
		t.Errorf("Expected no balance rows, got %d", len(store.balances))
	}
}

func TestQueueProcessesTriggers(t *testing.T) {
	store := newFakeStore()
	store.members["g1"] = []*models.Member{{ID: "alice", GroupID: "g1"}}
	store.sums["alice"] = storage.LedgerSums{PaidOnExpenses: 10}

	queue := NewQueue(NewAggregator(store), slog.Default(), 8)
	queue.Enqueue("g1")

	deadline := time.Now().Add(2 * time.Second)
	for store.balance("alice") == nil {
		if time.Now().After(deadline) {
			t.Fatal("Recompute did not run before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
	queue.Close()

	if got := store.balance("alice").TotalPaid; math.Abs(got-10) > 0.001 {
		t.Errorf("TotalPaid = %v, want 10", got)
	}
}

func TestQueueEnqueueNeverBlocks(t *testing.T) {
	store := newFakeStore()
	store.sumsErr = fmt.Errorf("down for maintenance")
	store.members["g1"] = []*models.Member{{ID: "alice", GroupID: "g1"}}

	queue := NewQueue(NewAggregator(store), slog.Default(), 1)
	defer queue.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			queue.Enqueue("g1")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked the caller")
	}
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	queue := NewQueue(NewAggregator(newFakeStore()), slog.Default(), 1)
	queue.Close()
	queue.Close()
}
