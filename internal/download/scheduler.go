package download

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/handiism/sdss-fetch/internal/cache"
	"github.com/handiism/sdss-fetch/internal/metrics"
	"github.com/handiism/sdss-fetch/internal/model"
)

// Resolver resolves one target to a terminal outcome. *Controller
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, t model.Target) model.Outcome
}

// Scheduler runs a Resolver over a batch of targets with bounded
// concurrency.
type Scheduler struct {
	resolver Resolver

	memo  *cache.LRU[model.Target, model.Outcome]
	group singleflight.Group

	onOutcome func(model.Outcome)
	now       func() time.Time

	done  atomic.Int64
	total atomic.Int64
}

// NewScheduler creates a Scheduler.
func NewScheduler(r Resolver) *Scheduler {
	return &Scheduler{resolver: r, now: time.Now}
}

// EnableMemo remembers up to size successful outcomes so that a target
// repeated within the scheduler's lifetime is fetched once. Zero disables
// the memo.
func (s *Scheduler) EnableMemo(size int) {
	if size <= 0 {
		s.memo = nil
		return
	}
	s.memo = cache.NewLRU[model.Target, model.Outcome](size)
}

// OnOutcome sets a callback invoked from worker goroutines as each target
// reaches a terminal state. It must be safe for concurrent use.
func (s *Scheduler) OnOutcome(fn func(model.Outcome)) { s.onOutcome = fn }

// Progress returns the number of terminal targets and the batch size of the
// current or last run.
func (s *Scheduler) Progress() (done, total int64) {
	return s.done.Load(), s.total.Load()
}

// RunBatch resolves targets using at most workers concurrent resolutions
// and blocks until every dispatched target is terminal.
//
// Outcomes are returned in input order. Cancelling ctx stops dispatch:
// targets not yet started are counted as Skipped and reported with
// StateSkipped, while targets already in flight finish their chain
// undisturbed.
func (s *Scheduler) RunBatch(ctx context.Context, targets []model.Target, workers int) model.RunSummary {
	if workers < 1 {
		workers = 1
	}

	summary := model.RunSummary{Started: s.now()}
	s.done.Store(0)
	s.total.Store(int64(len(targets)))

	outcomes := make([]model.Outcome, len(targets))
	dispatched := make([]bool, len(targets))

	// In-flight resolutions ignore cancellation so no file is left
	// half-written.
	drain := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(workers)

	for i, t := range targets {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			dispatched[i] = true

			metrics.WorkersBusy.Inc()
			outcomes[i] = s.resolve(drain, t)
			metrics.WorkersBusy.Dec()

			s.done.Add(1)
			if s.onOutcome != nil {
				s.onOutcome(outcomes[i])
			}
			return nil
		})
	}
	g.Wait()
	summary.Finished = s.now()

	for i, t := range targets {
		if !dispatched[i] {
			summary.Skipped++
			summary.Outcomes = append(summary.Outcomes, model.Outcome{
				Target:   t,
				State:    model.StateSkipped,
				Err:      context.Cause(ctx),
				Finished: summary.Finished,
			})
			continue
		}
		out := outcomes[i]
		summary.Attempted++
		if out.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Outcomes = append(summary.Outcomes, out)
	}

	return summary
}

func (s *Scheduler) resolve(ctx context.Context, t model.Target) model.Outcome {
	if s.memo == nil {
		return s.resolver.Resolve(ctx, t)
	}

	if out, ok := s.memo.Get(t); ok {
		out.Cached = true
		return out
	}

	v, _, _ := s.group.Do(t.Key(), func() (any, error) {
		out := s.resolver.Resolve(ctx, t)
		if out.Success {
			s.memo.Add(t, out)
		}
		return out, nil
	})
	return v.(model.Outcome)
}
