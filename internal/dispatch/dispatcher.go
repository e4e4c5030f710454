package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkers bounds concurrent external calls per dispatch batch.
const DefaultWorkers = 10

// Op performs one blocking external call for one account.
type Op func(ctx context.Context, accountID int64) error

// Result aggregates one dispatch batch.
type Result struct {
	Succeeded int
	Failed    int
	TimedOut  int
	Total     int
}

// AllFailed reports whether nothing in the batch succeeded.
func (r Result) AllFailed() bool {
	return r.Total > 0 && r.Succeeded == 0
}

// Dispatcher fans an operation out across accounts with bounded
// concurrency and a hard deadline. A batch that hits its deadline
// counts stragglers as timed out and discards their late results.
type Dispatcher struct {
	workers int64
	logger  *zap.Logger
}

// New creates a dispatcher. A non-positive worker count falls back to
// the default bound.
func New(workers int, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dispatcher{
		workers: int64(workers),
		logger:  logger,
	}
}

type outcome struct {
	accountID int64
	err       error
	timedOut  bool
}

// Dispatch runs op once per account id and blocks until every task
// finishes or the timeout elapses. Panics inside a task count as that
// account's failure and never escape the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, ids []int64, op Op, timeout time.Duration) Result {
	res := Result{Total: len(ids)}
	if len(ids) == 0 {
		return res
	}

	batchID := uuid.NewString()
	started := time.Now()

	d.logger.Info("dispatch-batch-starting",
		zap.String("batch_id", batchID),
		zap.String("op", name),
		zap.Int("accounts", len(ids)),
		zap.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sem := semaphore.NewWeighted(d.workers)

	// Buffered so stragglers finishing after the deadline never block;
	// their results land here and are simply never read.
	results := make(chan outcome, len(ids))

	for _, id := range ids {
		go d.runTask(ctx, sem, results, id, op)
	}

	pending := len(ids)
	for pending > 0 {
		select {
		case out := <-results:
			pending--
			switch {
			case out.timedOut:
				res.TimedOut++
			case out.err != nil:
				res.Failed++
				d.logger.Warn("dispatch-task-failed",
					zap.String("batch_id", batchID),
					zap.String("op", name),
					zap.Int64("account_id", out.accountID),
					zap.Error(out.err))
			default:
				res.Succeeded++
			}
		case <-ctx.Done():
			res.TimedOut += pending
			pending = 0
		}
	}

	TasksTotal.WithLabelValues(name, "success").Add(float64(res.Succeeded))
	TasksTotal.WithLabelValues(name, "failure").Add(float64(res.Failed))
	TasksTotal.WithLabelValues(name, "timeout").Add(float64(res.TimedOut))
	BatchDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())

	d.logger.Info("dispatch-batch-finished",
		zap.String("batch_id", batchID),
		zap.String("op", name),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("timed_out", res.TimedOut),
		zap.Duration("elapsed", time.Since(started)))

	return res
}

func (d *Dispatcher) runTask(ctx context.Context, sem *semaphore.Weighted, results chan<- outcome, id int64, op Op) {
	if err := sem.Acquire(ctx, 1); err != nil {
		results <- outcome{accountID: id, timedOut: true}
		return
	}
	defer sem.Release(1)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		err = op(ctx, id)
	}()

	if err != nil && ctx.Err() != nil {
		results <- outcome{accountID: id, timedOut: true}
		return
	}

	results <- outcome{accountID: id, err: err}
}
