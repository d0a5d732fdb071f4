package download

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/handiism/sdss-fetch/internal/audit"
	"github.com/handiism/sdss-fetch/internal/catalog"
	"github.com/handiism/sdss-fetch/internal/config"
	"github.com/handiism/sdss-fetch/internal/http"
	"github.com/handiism/sdss-fetch/internal/mirror"
	"github.com/handiism/sdss-fetch/internal/model"
	"github.com/handiism/sdss-fetch/internal/report"
	"github.com/handiism/sdss-fetch/internal/strategy"
)

// Manager runs download batches with the configured client, catalog, audit
// files and mirror.
type Manager struct {
	settings   *config.Settings
	sink       *audit.Sink
	scheduler  *Scheduler
	controller *Controller
	mirror     *mirror.Mirror
	onProgress progressFunc

	receivedBytes atomic.Int64
	failed        atomic.Int64
}

// NewManager creates a Manager and opens the audit files.
//
// The caller must call Close when done.
func NewManager(settings *config.Settings, cat *catalog.Catalog, onProgress func(ProgressEvent)) (*Manager, error) {
	sink, err := audit.Open(settings.LogPath(), settings.FailedPath())
	if err != nil {
		return nil, err
	}

	m, err := newManager(settings, cat, http.NewClient(settings.ClientOptions()...), sink, onProgress)
	if err != nil {
		sink.Close()
		return nil, err
	}
	return m, nil
}

func newManager(settings *config.Settings, cat *catalog.Catalog, transport Transport, sink *audit.Sink, onProgress func(ProgressEvent)) (*Manager, error) {
	m := &Manager{
		settings:   settings,
		sink:       sink,
		onProgress: onProgress,
	}

	executor := NewExecutor(transport, sink, ExecutorConfig{
		Attempts:  settings.Attempts,
		Delay:     settings.RetryDelay,
		Extension: settings.Extension,
	})
	executor.OnProgress(onProgress)
	executor.OnBytes(func(delta int64) { m.receivedBytes.Add(delta) })

	m.controller = NewController(strategy.NewGenerator(cat), executor, sink, settings.OutputDir, settings.Extension)
	m.controller.OnProgress(onProgress)

	if settings.Mirror.Enabled {
		mr, err := mirror.New(mirror.Config{
			Endpoint:  settings.Mirror.Endpoint,
			Bucket:    settings.Mirror.Bucket,
			Prefix:    settings.Mirror.Prefix,
			Region:    settings.Mirror.Region,
			AccessKey: settings.Mirror.AccessKey,
			SecretKey: settings.Mirror.SecretKey,
			UseSSL:    settings.Mirror.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		m.mirror = mr
		m.controller.SetPublisher(mr)
	}

	m.scheduler = NewScheduler(m.controller)
	m.scheduler.EnableMemo(settings.MemoSize)
	m.scheduler.OnOutcome(func(o model.Outcome) {
		if !o.Success {
			m.failed.Add(1)
		}
	})

	return m, nil
}

// Run resolves every target and returns the run summary.
//
// The returned error reports problems with the run's own bookkeeping, such
// as an unwritable audit log or manifest. Per-target failures are only in
// the summary. Targets skipped by cancellation are logged and appended to
// the failed list alongside exhausted ones.
func (m *Manager) Run(ctx context.Context, targets []model.Target) (model.RunSummary, error) {
	m.receivedBytes.Store(0)
	m.failed.Store(0)

	if m.mirror != nil {
		if err := m.mirror.EnsureBucket(ctx); err != nil {
			return model.RunSummary{}, err
		}
	}

	runID := uuid.NewString()
	m.sink.Record(fmt.Sprintf("Run %s started: %d targets, %d workers", runID, len(targets), m.settings.Workers))
	m.onProgress.emit(LevelInfo, fmt.Sprintf("Starting %d targets with %d workers", len(targets), m.settings.Workers))

	summary := m.scheduler.RunBatch(ctx, targets, m.settings.Workers)
	summary.RunID = runID

	// Skipped targets go to the failed list so a later retry picks them up.
	for _, t := range summary.SkippedTargets() {
		m.sink.Record("- Skipped: " + t.FileName(m.settings.Extension))
		m.sink.RecordFailed(t)
	}

	m.sink.Record(fmt.Sprintf("Run %s finished: %d succeeded, %d failed, %d skipped in %s",
		runID, summary.Succeeded, summary.Failed, summary.Skipped, summary.Duration().Round(time.Millisecond)))

	level := LevelSuccess
	if summary.Failed > 0 || summary.Skipped > 0 {
		level = LevelWarning
	}
	m.onProgress.emit(level, fmt.Sprintf("Done: %d succeeded, %d failed, %d skipped",
		summary.Succeeded, summary.Failed, summary.Skipped))

	var errs []error
	if path := m.settings.ManifestPath(); path != "" {
		if err := report.WriteFile(path, summary); err != nil {
			errs = append(errs, fmt.Errorf("write manifest: %w", err))
		}
	}
	if err := m.sink.Err(); err != nil {
		errs = append(errs, fmt.Errorf("audit log: %w", err))
	}

	return summary, errors.Join(errs...)
}

// GetProgress returns bytes received so far, the number of terminal
// targets, how many of those failed, and the batch size.
func (m *Manager) GetProgress() (received, done, failed, total int64) {
	done, total = m.scheduler.Progress()
	return m.receivedBytes.Load(), done, m.failed.Load(), total
}

// Close flushes and closes the audit files.
func (m *Manager) Close() error {
	return m.sink.Close()
}
