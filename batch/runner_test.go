package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aluiziolira/go-price-analyzer/gateway"
	"github.com/aluiziolira/go-price-analyzer/models"
)

// scriptedAgent replies per product name and counts calls.
type scriptedAgent struct {
	kind    models.BatchKind
	results map[string]models.SearchResult
	errs    map[string]error
	calls   map[string]int
}

func newScriptedAgent(kind models.BatchKind) *scriptedAgent {
	return &scriptedAgent{
		kind:    kind,
		results: make(map[string]models.SearchResult),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (a *scriptedAgent) Kind() models.BatchKind {
	return a.kind
}

func (a *scriptedAgent) Search(_ context.Context, productName string) (models.SearchResult, error) {
	a.calls[productName]++
	if err, ok := a.errs[productName]; ok {
		return models.SearchResult{}, err
	}
	if result, ok := a.results[productName]; ok {
		return result, nil
	}
	return models.NewNotFound("not scripted"), nil
}

func runnerStore(t *testing.T, names ...string) (*models.Store, []string) {
	t.Helper()
	store := models.NewStore()
	var ids []string
	for _, name := range names {
		id, err := store.Add(&models.Product{Name: name, Quantity: 1, PurchasePrice: 10, SalePrice: 20})
		if err != nil {
			t.Fatalf("add %q: %v", name, err)
		}
		ids = append(ids, id)
	}
	return store, ids
}

func TestRunSkipAndContinue(t *testing.T) {
	store, ids := runnerStore(t, "Alpha", "Beta", "Gamma")

	agent := newScriptedAgent(models.KindCompetitor)
	agent.results["Alpha"] = models.NewSuccess(100, "USD", 2, nil)
	agent.errs["Beta"] = gateway.ErrRateLimited{Err: errors.New("429")}
	agent.results["Gamma"] = models.NewSuccess(300, "USD", 1, nil)

	runner := NewRunner(store, 0, 0, 10, nil)
	runner.Register(agent)

	summary := runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), nil)
	if summary.SuccessCount != 2 || summary.FailureCount != 1 {
		t.Fatalf("summary = %+v, want 2 successes and 1 failure", summary)
	}

	alpha, _ := store.Get(ids[0])
	if alpha.CompetitorNewPrice == nil || *alpha.CompetitorNewPrice != 100 {
		t.Fatalf("Alpha price = %v", alpha.CompetitorNewPrice)
	}
	beta, _ := store.Get(ids[1])
	if beta.CompetitorNewPrice != nil || beta.LastUpdated != nil {
		t.Fatalf("failed product must stay untouched: %+v", beta)
	}
	gamma, _ := store.Get(ids[2])
	if gamma.CompetitorNewPrice == nil || *gamma.CompetitorNewPrice != 300 {
		t.Fatalf("Gamma price = %v; failure must not stop later products", gamma.CompetitorNewPrice)
	}
}

func TestRunUsedKindFillsUsedField(t *testing.T) {
	store, ids := runnerStore(t, "Alpha")

	agent := newScriptedAgent(models.KindUsed)
	agent.results["Alpha"] = models.NewSuccess(45, "USD", 1, nil)

	runner := NewRunner(store, 0, 0, 10, nil)
	runner.Register(agent)
	runner.Run(context.Background(), NewJob(ids, models.KindUsed), nil)

	p, _ := store.Get(ids[0])
	if p.CompetitorUsedPrice == nil || *p.CompetitorUsedPrice != 45 {
		t.Fatalf("used price = %v", p.CompetitorUsedPrice)
	}
	if p.CompetitorNewPrice != nil {
		t.Fatalf("new price must stay nil on a used batch")
	}
}

func TestRunMissingAgent(t *testing.T) {
	store, ids := runnerStore(t, "Alpha", "Beta")
	runner := NewRunner(store, 0, 0, 10, nil)

	summary := runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), nil)
	if summary.SuccessCount != 0 || summary.FailureCount != 2 {
		t.Fatalf("summary = %+v, want all failures", summary)
	}
}

func TestRunCancellationStopsBetweenProducts(t *testing.T) {
	store, ids := runnerStore(t, "Alpha", "Beta", "Gamma")

	agent := newScriptedAgent(models.KindCompetitor)
	agent.results["Alpha"] = models.NewSuccess(100, "USD", 1, nil)
	agent.results["Beta"] = models.NewSuccess(200, "USD", 1, nil)

	runner := NewRunner(store, 0, 0, 10, nil)
	runner.Register(agent)

	job := NewJob(ids, models.KindCompetitor)
	summary := runner.Run(context.Background(), job, func(index, total int, productName string) {
		if productName == "Alpha" {
			job.Cancel()
		}
	})

	// Alpha was already in flight when Cancel hit; Beta and Gamma must
	// never start.
	if summary.SuccessCount != 1 {
		t.Fatalf("summary = %+v, want exactly the in-flight product", summary)
	}
	if agent.calls["Beta"] != 0 || agent.calls["Gamma"] != 0 {
		t.Fatalf("cancelled batch must not start new searches: %v", agent.calls)
	}
	beta, _ := store.Get(ids[1])
	if beta.CompetitorNewPrice != nil {
		t.Fatalf("Beta must stay untouched after cancel")
	}
	if job.Completed() != 1 {
		t.Fatalf("completed = %d, want 1", job.Completed())
	}
}

func TestRunContextCancellation(t *testing.T) {
	store, ids := runnerStore(t, "Alpha", "Beta")

	agent := newScriptedAgent(models.KindCompetitor)
	agent.results["Alpha"] = models.NewSuccess(100, "USD", 1, nil)

	runner := NewRunner(store, 0, 0, 10, nil)
	runner.Register(agent)

	ctx, cancel := context.WithCancel(context.Background())
	job := NewJob(ids, models.KindCompetitor)
	runner.Run(ctx, job, func(index, total int, productName string) {
		cancel()
	})

	if agent.calls["Beta"] != 0 {
		t.Fatalf("context cancellation must stop the batch")
	}
}

func TestRunRerunIsIdempotent(t *testing.T) {
	store, ids := runnerStore(t, "Alpha")

	agent := newScriptedAgent(models.KindCompetitor)
	agent.results["Alpha"] = models.NewSuccess(100, "USD", 1, nil)

	runner := NewRunner(store, 0, 0, 10, nil)
	runner.Register(agent)

	runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), nil)
	runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), nil)

	p, _ := store.Get(ids[0])
	if p.CompetitorNewPrice == nil || *p.CompetitorNewPrice != 100 {
		t.Fatalf("price = %v after rerun", p.CompetitorNewPrice)
	}
}

func TestRunCacheSkipsRepeatSearches(t *testing.T) {
	store, ids := runnerStore(t, "Alpha")

	agent := newScriptedAgent(models.KindCompetitor)
	agent.results["Alpha"] = models.NewSuccess(100, "USD", 1, nil)

	runner := NewRunner(store, 0, 8, 10, nil)
	runner.Register(agent)

	runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), nil)
	runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), nil)

	if agent.calls["Alpha"] != 1 {
		t.Fatalf("calls = %d, want 1 (second run served from cache)", agent.calls["Alpha"])
	}

	entries := runner.History().Snapshot()
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	if entries[0].Cached || !entries[1].Cached {
		t.Fatalf("cache flags = %v, %v; want fresh then cached", entries[0].Cached, entries[1].Cached)
	}
}

func TestRunCacheIsKindScoped(t *testing.T) {
	store, ids := runnerStore(t, "Alpha")

	competitor := newScriptedAgent(models.KindCompetitor)
	competitor.results["Alpha"] = models.NewSuccess(100, "USD", 1, nil)
	used := newScriptedAgent(models.KindUsed)
	used.results["Alpha"] = models.NewSuccess(45, "USD", 1, nil)

	runner := NewRunner(store, 0, 8, 10, nil)
	runner.Register(competitor)
	runner.Register(used)

	runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), nil)
	runner.Run(context.Background(), NewJob(ids, models.KindUsed), nil)

	if competitor.calls["Alpha"] != 1 || used.calls["Alpha"] != 1 {
		t.Fatalf("each kind must search once: competitor=%d used=%d",
			competitor.calls["Alpha"], used.calls["Alpha"])
	}
	p, _ := store.Get(ids[0])
	if *p.CompetitorNewPrice != 100 || *p.CompetitorUsedPrice != 45 {
		t.Fatalf("prices = %v / %v", p.CompetitorNewPrice, p.CompetitorUsedPrice)
	}
}

func TestRunFailuresAreNotCached(t *testing.T) {
	store, ids := runnerStore(t, "Alpha")

	agent := newScriptedAgent(models.KindCompetitor)
	agent.errs["Alpha"] = gateway.ErrUpstream{Status: 503, Body: "down"}

	runner := NewRunner(store, 0, 8, 10, nil)
	runner.Register(agent)

	runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), nil)
	runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), nil)

	if agent.calls["Alpha"] != 2 {
		t.Fatalf("calls = %d, want 2 (failures must be retried on the next run)", agent.calls["Alpha"])
	}
}

func TestRunNotFoundCountsAsFailure(t *testing.T) {
	store, ids := runnerStore(t, "Alpha")

	agent := newScriptedAgent(models.KindCompetitor)
	agent.results["Alpha"] = models.NewNotFound("no offers")

	runner := NewRunner(store, 0, 0, 10, nil)
	runner.Register(agent)

	summary := runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), nil)
	if summary.SuccessCount != 0 || summary.FailureCount != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	p, _ := store.Get(ids[0])
	if p.CompetitorNewPrice != nil || p.LastUpdated != nil {
		t.Fatalf("not-found must not mutate the product")
	}
}

func TestRunRecordsHistory(t *testing.T) {
	store, ids := runnerStore(t, "Alpha", "Beta")

	agent := newScriptedAgent(models.KindCompetitor)
	agent.results["Alpha"] = models.NewSuccess(100, "USD", 1, nil)
	agent.results["Beta"] = models.NewNotFound("no offers")

	runner := NewRunner(store, 0, 0, 10, nil)
	runner.Register(agent)
	runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), nil)

	entries := runner.History().Snapshot()
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	if entries[0].ProductName != "Alpha" || entries[0].Outcome != "success" {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[0].MinPrice == nil || *entries[0].MinPrice != 100 {
		t.Fatalf("success entry must carry the price: %+v", entries[0])
	}
	if entries[1].Outcome != "not_found" || entries[1].MinPrice != nil {
		t.Fatalf("second entry = %+v", entries[1])
	}
}

func TestRunProgressOrder(t *testing.T) {
	store, ids := runnerStore(t, "Alpha", "Beta", "Gamma")

	agent := newScriptedAgent(models.KindCompetitor)
	runner := NewRunner(store, 0, 0, 10, nil)
	runner.Register(agent)

	var seen []string
	runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), func(index, total int, productName string) {
		if total != 3 {
			t.Fatalf("total = %d, want 3", total)
		}
		seen = append(seen, productName)
	})

	want := []string{"Alpha", "Beta", "Gamma"}
	if len(seen) != len(want) {
		t.Fatalf("progress calls = %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("progress order = %v, want %v", seen, want)
		}
	}
}

func TestRunDelayBetweenRequests(t *testing.T) {
	store, ids := runnerStore(t, "Alpha", "Beta")

	agent := newScriptedAgent(models.KindCompetitor)
	agent.results["Alpha"] = models.NewSuccess(1, "USD", 1, nil)
	agent.results["Beta"] = models.NewSuccess(2, "USD", 1, nil)

	runner := NewRunner(store, 30*time.Millisecond, 0, 10, nil)
	runner.Register(agent)

	start := time.Now()
	runner.Run(context.Background(), NewJob(ids, models.KindCompetitor), nil)
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("elapsed = %v, want at least one inter-request delay", elapsed)
	}
}
