package download

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/handiism/sdss-fetch/internal/model"
)

// funcResolver adapts a function to Resolver and tracks concurrency.
type funcResolver struct {
	fn      func(ctx context.Context, t model.Target) model.Outcome
	calls   atomic.Int64
	active  atomic.Int64
	maxSeen atomic.Int64
}

func (r *funcResolver) Resolve(ctx context.Context, t model.Target) model.Outcome {
	r.calls.Add(1)
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		m := r.maxSeen.Load()
		if n <= m || r.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	return r.fn(ctx, t)
}

func makeTargets(n int) []model.Target {
	targets := make([]model.Target, n)
	for i := range targets {
		targets[i] = model.Target{Plate: 1000 + i, MJD: 52000, Fiber: i + 1}
	}
	return targets
}

func TestScheduler_RunBatch(t *testing.T) {
	r := &funcResolver{fn: func(_ context.Context, t model.Target) model.Outcome {
		time.Sleep(5 * time.Millisecond)
		if t.Fiber%3 == 0 {
			return model.Outcome{Target: t, State: model.StateExhausted}
		}
		return model.Outcome{Target: t, State: model.StateSucceeded, Success: true}
	}}
	s := NewScheduler(r)
	targets := makeTargets(20)

	summary := s.RunBatch(context.Background(), targets, 3)

	if summary.Succeeded+summary.Failed != len(targets) {
		t.Errorf("succeeded+failed = %d, want %d", summary.Succeeded+summary.Failed, len(targets))
	}
	if summary.Failed != 6 || summary.Skipped != 0 || summary.Attempted != 20 {
		t.Errorf("summary = %+v", summary)
	}
	if got := r.maxSeen.Load(); got > 3 {
		t.Errorf("max concurrency = %d, want <= 3", got)
	}
	for i, o := range summary.Outcomes {
		if o.Target != targets[i] {
			t.Fatalf("outcome %d is for %v, want %v", i, o.Target, targets[i])
		}
		if !o.State.Terminal() {
			t.Errorf("outcome %d state = %q, want terminal", i, o.State)
		}
	}
	if done, total := s.Progress(); done != 20 || total != 20 {
		t.Errorf("Progress() = %d/%d, want 20/20", done, total)
	}
}

func TestScheduler_EmptyBatch(t *testing.T) {
	s := NewScheduler(&funcResolver{fn: func(context.Context, model.Target) model.Outcome {
		t.Error("resolver called for empty batch")
		return model.Outcome{}
	}})

	summary := s.RunBatch(context.Background(), nil, 4)
	if summary.Total() != 0 || len(summary.Outcomes) != 0 {
		t.Errorf("summary = %+v, want empty", summary)
	}
}

func TestScheduler_CancelSkipsUndispatched(t *testing.T) {
	const workers = 2

	started := make(chan struct{}, workers)
	release := make(chan struct{})
	var drainedCtxErr atomic.Value

	r := &funcResolver{fn: func(ctx context.Context, t model.Target) model.Outcome {
		started <- struct{}{}
		<-release
		if err := ctx.Err(); err != nil {
			drainedCtxErr.Store(err)
		}
		return model.Outcome{Target: t, State: model.StateSucceeded, Success: true}
	}}
	s := NewScheduler(r)
	targets := makeTargets(10)

	ctx, cancel := context.WithCancel(context.Background())
	var (
		summary model.RunSummary
		wg      sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		summary = s.RunBatch(ctx, targets, workers)
	}()

	for range workers {
		<-started
	}
	cancel()
	close(release)
	wg.Wait()

	if summary.Attempted != workers || summary.Succeeded != workers {
		t.Errorf("attempted = %d, succeeded = %d, want %d", summary.Attempted, summary.Succeeded, workers)
	}
	if summary.Skipped != len(targets)-workers {
		t.Errorf("Skipped = %d, want %d", summary.Skipped, len(targets)-workers)
	}
	if err := drainedCtxErr.Load(); err != nil {
		t.Errorf("in-flight resolution saw cancellation: %v", err)
	}

	if len(summary.Outcomes) != len(targets) {
		t.Fatalf("got %d outcomes, want %d", len(summary.Outcomes), len(targets))
	}
	for i, o := range summary.Outcomes {
		if o.Target != targets[i] {
			t.Errorf("outcome %d is for %v, want %v", i, o.Target, targets[i])
		}
	}
	skipped := summary.SkippedTargets()
	if len(skipped) != len(targets)-workers {
		t.Fatalf("SkippedTargets() = %v", skipped)
	}
	for _, o := range summary.Outcomes {
		if o.State == model.StateSkipped && (o.Success || !errors.Is(o.Err, context.Canceled)) {
			t.Errorf("skipped outcome = %+v", o)
		}
	}
}

func TestScheduler_Memo(t *testing.T) {
	r := &funcResolver{fn: func(_ context.Context, t model.Target) model.Outcome {
		return model.Outcome{Target: t, State: model.StateSucceeded, Success: true, SavedFilename: t.FileName("fits")}
	}}
	s := NewScheduler(r)
	s.EnableMemo(16)

	tgt := model.Target{Plate: 751, MJD: 52251, Fiber: 160}
	summary := s.RunBatch(context.Background(), []model.Target{tgt, tgt, tgt}, 1)

	if got := r.calls.Load(); got != 1 {
		t.Errorf("resolver calls = %d, want 1", got)
	}
	if summary.Succeeded != 3 {
		t.Errorf("Succeeded = %d, want 3", summary.Succeeded)
	}
	if summary.Outcomes[0].Cached || !summary.Outcomes[1].Cached || !summary.Outcomes[2].Cached {
		t.Errorf("cached flags = %v/%v/%v, want false/true/true",
			summary.Outcomes[0].Cached, summary.Outcomes[1].Cached, summary.Outcomes[2].Cached)
	}
}

func TestScheduler_MemoSkipsFailures(t *testing.T) {
	r := &funcResolver{fn: func(_ context.Context, t model.Target) model.Outcome {
		return model.Outcome{Target: t, State: model.StateExhausted}
	}}
	s := NewScheduler(r)
	s.EnableMemo(16)

	tgt := model.Target{Plate: 1, MJD: 2, Fiber: 3}
	s.RunBatch(context.Background(), []model.Target{tgt, tgt}, 1)

	if got := r.calls.Load(); got != 2 {
		t.Errorf("resolver calls = %d, want 2", got)
	}
}

func TestScheduler_OnOutcome(t *testing.T) {
	r := &funcResolver{fn: func(_ context.Context, t model.Target) model.Outcome {
		return model.Outcome{Target: t, State: model.StateSucceeded, Success: true}
	}}
	s := NewScheduler(r)

	var seen atomic.Int64
	s.OnOutcome(func(model.Outcome) { seen.Add(1) })
	s.RunBatch(context.Background(), makeTargets(7), 3)

	if seen.Load() != 7 {
		t.Errorf("OnOutcome calls = %d, want 7", seen.Load())
	}
}
