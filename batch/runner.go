// Package batch drives per-product price searches sequentially: one
// in-flight request at a time, a fixed pause between steps, and
// cooperative cancellation at iteration boundaries.
package batch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-price-analyzer/gateway"
	"github.com/aluiziolira/go-price-analyzer/models"
)

// Agent is the per-kind search contract the runner dispatches to.
type Agent interface {
	Kind() models.BatchKind
	Search(ctx context.Context, productName string) (models.SearchResult, error)
}

// Progress is reported before each product's agent call.
type Progress func(index, total int, productName string)

// Job is one batch of per-product searches. It is owned by the runner and
// cancellable from any goroutine; cancellation takes effect at the next
// iteration boundary, never aborting an in-flight request.
type Job struct {
	ids       []string
	kind      models.BatchKind
	cancelled atomic.Bool
	completed atomic.Int64
	success   atomic.Int64
}

// NewJob builds a job over the given product ids, processed in order.
func NewJob(productIDs []string, kind models.BatchKind) *Job {
	ids := make([]string, len(productIDs))
	copy(ids, productIDs)
	return &Job{ids: ids, kind: kind}
}

// Cancel requests cooperative cancellation.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested.
func (j *Job) Cancelled() bool {
	return j.cancelled.Load()
}

// Completed reports how many products have been processed so far.
func (j *Job) Completed() int {
	return int(j.completed.Load())
}

// Kind reports which price field the job fills in.
func (j *Job) Kind() models.BatchKind {
	return j.kind
}

// Runner iterates a job's products, applies successful prices to the
// store, and records every outcome in the history log.
type Runner struct {
	store   *models.Store
	agents  map[models.BatchKind]Agent
	delay   time.Duration
	cache   *lru.Cache[string, models.SearchResult]
	history *History
	metrics *gateway.Metrics
	clock   func() time.Time
}

// NewRunner builds a runner. cacheSize <= 0 disables the result cache;
// metrics may be nil.
func NewRunner(store *models.Store, delay time.Duration, cacheSize, historyLimit int, metrics *gateway.Metrics) *Runner {
	r := &Runner{
		store:   store,
		agents:  make(map[models.BatchKind]Agent),
		delay:   delay,
		history: NewHistory(historyLimit),
		metrics: metrics,
		clock:   time.Now,
	}
	if cacheSize > 0 {
		// lru.New only fails on a non-positive size.
		cache, err := lru.New[string, models.SearchResult](cacheSize)
		if err == nil {
			r.cache = cache
		}
	}
	return r
}

// Register installs an agent for its kind, replacing any previous one.
func (r *Runner) Register(a Agent) {
	r.agents[a.Kind()] = a
}

// History returns the runner's operation log.
func (r *Runner) History() *History {
	return r.history
}

// Run processes the job's products in submission order. A single
// product's failure never aborts the batch; only cancellation stops it
// early. Returns the final success/failure counts.
func (r *Runner) Run(ctx context.Context, job *Job, onProgress Progress) models.BatchSummary {
	var summary models.BatchSummary
	total := len(job.ids)

	agent, ok := r.agents[job.kind]
	if !ok {
		slog.Error("no agent registered for batch kind", slog.String("kind", job.kind.String()))
		summary.FailureCount = total
		return summary
	}

	for i, id := range job.ids {
		if job.Cancelled() || ctx.Err() != nil {
			slog.Info("batch cancelled",
				slog.Int("completed", job.Completed()),
				slog.Int("total", total),
			)
			break
		}

		product, found := r.store.Get(id)
		if !found {
			slog.Warn("batch product missing", slog.String("id", id))
			summary.FailureCount++
			job.completed.Add(1)
			continue
		}

		if onProgress != nil {
			onProgress(i, total, product.Name)
		}

		result, cached := r.search(ctx, agent, job.kind, product.Name)
		if result.IsSuccess() {
			if err := r.store.ApplyPrice(id, job.kind, result.MinPrice, r.clock()); err != nil {
				slog.Error("apply price failed", slog.String("product", product.Name), slog.Any("error", err))
				summary.FailureCount++
			} else {
				summary.SuccessCount++
				job.success.Add(1)
			}
		} else {
			summary.FailureCount++
			slog.Warn("search failed",
				slog.String("product", product.Name),
				slog.String("kind", job.kind.String()),
				slog.String("outcome", result.Label()),
				slog.String("reason", result.Reason),
			)
		}
		job.completed.Add(1)

		r.history.Record(r.clock(), product, job.kind, result, cached)
		r.metrics.IncResult(result.Label())

		if !r.wait(ctx, job) {
			break
		}
	}

	return summary
}

// search consults the cache, then the agent. Gateway errors are captured
// as transport-failure results so they cannot escape the batch boundary.
// Only successful results are cached: failures are assumed transient.
func (r *Runner) search(ctx context.Context, agent Agent, kind models.BatchKind, productName string) (models.SearchResult, bool) {
	key := kind.String() + "|" + productName
	if r.cache != nil {
		if result, ok := r.cache.Get(key); ok {
			return result, true
		}
	}

	result, err := agent.Search(ctx, productName)
	if err != nil {
		result = gateway.FailureResult(err)
	}

	if r.cache != nil && result.IsSuccess() {
		r.cache.Add(key, result)
	}
	return result, false
}

// wait pauses for the inter-request delay, returning false when the
// batch should stop instead of continuing.
func (r *Runner) wait(ctx context.Context, job *Job) bool {
	if job.Cancelled() {
		return false
	}
	if r.delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return !job.Cancelled()
	}
}
