package download

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"time"

	"github.com/handiism/sdss-fetch/internal/audit"
	ioutils "github.com/handiism/sdss-fetch/internal/io"
	"github.com/handiism/sdss-fetch/internal/metrics"
	"github.com/handiism/sdss-fetch/internal/model"
)

// Strategy yields the ordered candidate URLs for a target.
type Strategy interface {
	Candidates(t model.Target) iter.Seq[model.Candidate]
}

// Attempter tries one candidate. *Executor implements it.
type Attempter interface {
	Attempt(ctx context.Context, t model.Target, c model.Candidate, dir string) (AttemptResult, error)
}

// Publisher copies a saved file somewhere else after a successful download.
type Publisher interface {
	Publish(ctx context.Context, path string) error
}

// ErrAllMethodsFailed is the Outcome error of an exhausted target.
var ErrAllMethodsFailed = errors.New("all methods failed")

// Controller drives one target through its candidate chain.
type Controller struct {
	strategy  Strategy
	attempter Attempter
	recorder  audit.Recorder
	dir       string
	ext       string

	publisher  Publisher
	onProgress progressFunc
	now        func() time.Time
}

// NewController creates a Controller saving files under dir.
func NewController(strategy Strategy, attempter Attempter, recorder audit.Recorder, dir, ext string) *Controller {
	if ext == "" {
		ext = "fits"
	}
	return &Controller{
		strategy:  strategy,
		attempter: attempter,
		recorder:  recorder,
		dir:       dir,
		ext:       ext,
		now:       time.Now,
	}
}

// SetPublisher sets the publisher invoked after each successful download.
// A publish failure is logged and does not change the outcome.
func (c *Controller) SetPublisher(p Publisher) { c.publisher = p }

// OnProgress sets the progress callback.
func (c *Controller) OnProgress(fn func(ProgressEvent)) { c.onProgress = fn }

// Resolve tries candidates in order until one succeeds or the sequence is
// exhausted. Candidates after the first success are never generated.
//
// An exhausted target is appended to the failed list exactly once. A
// filesystem failure aborts the chain immediately since no other candidate
// could fix it; the target is still added to the failed list.
func (c *Controller) Resolve(ctx context.Context, t model.Target) model.Outcome {
	out := model.Outcome{
		Target:  t,
		State:   model.StatePending,
		Started: c.now(),
	}

	if err := ioutils.EnsureDir(c.dir); err != nil {
		return c.abort(out, &FilesystemError{Op: "mkdir", Path: c.dir, Err: err})
	}

	for cand := range c.strategy.Candidates(t) {
		out.State = model.StateTrying
		out.CandidatesTried++

		res, err := c.attempter.Attempt(ctx, t, cand, c.dir)
		out.Attempts += res.Attempts

		if err == nil {
			return c.succeed(ctx, out, cand, res)
		}

		var fsErr *FilesystemError
		if errors.As(err, &fsErr) {
			return c.abort(out, err)
		}
	}

	return c.exhaust(out)
}

func (c *Controller) succeed(ctx context.Context, out model.Outcome, cand model.Candidate, res AttemptResult) model.Outcome {
	out.State = model.StateSucceeded
	out.Success = true
	out.SavedFilename = filepath.Base(res.Path)
	out.MethodTag = cand.MethodTag
	out.Finished = c.now()

	c.recorder.Record(fmt.Sprintf("✓ %s (%s)", out.SavedFilename, cand.MethodTag))
	c.onProgress.emit(LevelSuccess, fmt.Sprintf("✓ %s (%s)", out.SavedFilename, cand.MethodTag))
	c.observe(out)

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, res.Path); err != nil {
			c.recorder.Record(fmt.Sprintf("! Mirror failed: %s: %v", out.SavedFilename, err))
			c.onProgress.emit(LevelWarning, fmt.Sprintf("Mirror failed for %s: %v", out.SavedFilename, err))
		}
	}

	return out
}

func (c *Controller) exhaust(out model.Outcome) model.Outcome {
	name := out.Target.FileName(c.ext)

	out.State = model.StateExhausted
	out.Err = fmt.Errorf("%s: %w", out.Target.Key(), ErrAllMethodsFailed)
	out.Finished = c.now()

	c.recorder.Record(fmt.Sprintf("× %s: All methods failed.", name))
	c.recorder.RecordFailed(out.Target)
	c.onProgress.emit(LevelError, fmt.Sprintf("× %s: all %d methods failed", name, out.CandidatesTried))
	c.observe(out)

	return out
}

func (c *Controller) abort(out model.Outcome, err error) model.Outcome {
	name := out.Target.FileName(c.ext)

	out.State = model.StateAborted
	out.Err = err
	out.Finished = c.now()

	c.recorder.Record(fmt.Sprintf("× %s: Aborted: %v", name, err))
	c.recorder.RecordFailed(out.Target)
	c.onProgress.emit(LevelError, fmt.Sprintf("× %s: %v", name, err))
	c.observe(out)

	return out
}

func (c *Controller) observe(out model.Outcome) {
	metrics.TargetsTotal.WithLabelValues(string(out.State)).Inc()
	metrics.CandidatesTried.Observe(float64(out.CandidatesTried))
	if out.Success {
		metrics.ResolvedBy.WithLabelValues(tier(out.MethodTag)).Inc()
	}
}

// tier strips the release detail from a method tag.
func tier(methodTag string) string {
	name, _, _ := strings.Cut(methodTag, ":")
	return name
}
