package ledger

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recomputesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reparte_balance_recomputes_total",
		Help: "Number of balance recomputes executed by the ledger worker.",
	})
	recomputeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reparte_balance_recompute_failures_total",
		Help: "Number of balance recomputes that failed. Failures are logged, never surfaced to the triggering write.",
	})
	queueDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reparte_balance_queue_drops_total",
		Help: "Number of recompute triggers dropped because the queue was full.",
	})
)

// Queue is the explicit fire-and-forget boundary between ledger writes and
// balance recomputes. Writers enqueue a group ID and move on; a dedicated
// worker goroutine drains the queue and runs the recompute.
//
// Contract (at-most-once, best-effort):
//   - Enqueue never blocks the request path; a full buffer drops the
//     trigger and counts it. Wholesale recompute makes the drop benign:
//     the next write to the group self-heals.
//   - Recompute failures are logged and counted, never propagated. The
//     user-visible write succeeds or fails on the ledger write alone.
//   - Nothing serializes two recomputes of the same group; a later
//     enqueue can finish before an earlier one. Accepted gap per design.
type Queue struct {
	aggregator *Aggregator
	logger     *slog.Logger
	tasks      chan string

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewQueue creates a queue with the given buffer size and starts its worker.
func NewQueue(aggregator *Aggregator, logger *slog.Logger, buffer int) *Queue {
	q := &Queue{
		aggregator: aggregator,
		logger:     logger,
		tasks:      make(chan string, buffer),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue schedules a balance recompute for the group. Non-blocking.
func (q *Queue) Enqueue(groupID string) {
	select {
	case q.tasks <- groupID:
	default:
		queueDrops.Inc()
		q.logger.Warn("Recompute queue full, dropping trigger", "group_id", groupID)
	}
}

// Close stops the worker after it finishes the task in flight. Queued
// tasks not yet started are abandoned; balances self-heal on the next
// write after restart.
func (q *Queue) Close() {
	q.stopOnce.Do(func() {
		close(q.stop)
	})
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.stop:
			return
		case groupID := <-q.tasks:
			q.recompute(groupID)
		}
	}
}

func (q *Queue) recompute(groupID string) {
	recomputesTotal.Inc()
	if err := q.aggregator.Recompute(context.Background(), groupID); err != nil {
		recomputeFailures.Inc()
		q.logger.Error("Balance recompute failed", "group_id", groupID, "error", err)
		return
	}
	q.logger.Debug("Balance recompute finished", "group_id", groupID)
}
