package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/handiism/sdss-fetch/internal/audit"
	"github.com/handiism/sdss-fetch/internal/http"
	ioutils "github.com/handiism/sdss-fetch/internal/io"
	"github.com/handiism/sdss-fetch/internal/metrics"
	"github.com/handiism/sdss-fetch/internal/model"
)

// Transport opens a URL for streaming. Any error, including a non-success
// status, is a failed attempt.
type Transport interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// ErrCandidateExhausted is returned by Executor.Attempt when every attempt
// at a candidate failed.
var ErrCandidateExhausted = errors.New("all attempts failed")

// FilesystemError reports a local failure to create or write the
// destination file. It is never retried.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// AttemptResult describes what Executor.Attempt did for one candidate.
type AttemptResult struct {
	// Path is the written file. Empty unless the attempt succeeded.
	Path string

	// Attempts is the number of requests issued.
	Attempts int

	// Bytes is the payload size written to Path.
	Bytes int64
}

// ExecutorConfig holds the retry policy of an Executor.
type ExecutorConfig struct {
	// Attempts is the number of requests per candidate. Default 2.
	Attempts int

	// Delay is the pause between two attempts at the same candidate.
	Delay time.Duration

	// Extension is the saved file extension. Default "fits".
	Extension string
}

// Executor tries a single candidate URL with bounded retries.
type Executor struct {
	transport Transport
	recorder  audit.Recorder
	attempts  int
	delay     time.Duration
	ext       string

	onProgress progressFunc
	onBytes    func(delta int64)
}

// NewExecutor creates an Executor.
func NewExecutor(transport Transport, recorder audit.Recorder, cfg ExecutorConfig) *Executor {
	if cfg.Attempts < 1 {
		cfg.Attempts = 2
	}
	if cfg.Extension == "" {
		cfg.Extension = "fits"
	}
	return &Executor{
		transport: transport,
		recorder:  recorder,
		attempts:  cfg.Attempts,
		delay:     cfg.Delay,
		ext:       cfg.Extension,
	}
}

// OnProgress sets the progress callback.
func (e *Executor) OnProgress(fn func(ProgressEvent)) { e.onProgress = fn }

// OnBytes sets a callback receiving the number of bytes streamed to disk as
// they arrive.
func (e *Executor) OnBytes(fn func(delta int64)) { e.onBytes = fn }

// Attempt downloads candidate c for target t into dir.
//
// Exactly the configured number of requests is made unless one succeeds
// first. Every attempt writes one audit line. On success the payload is
// streamed to a new file named after the target, with a numeric suffix if
// that name is taken.
//
// Returns:
//   - nil on success
//   - an error wrapping ErrCandidateExhausted when every attempt failed
//   - a *FilesystemError when the file could not be created or written
func (e *Executor) Attempt(ctx context.Context, t model.Target, c model.Candidate, dir string) (AttemptResult, error) {
	var (
		res     AttemptResult
		lastErr error
	)

	for attempt := 1; attempt <= e.attempts; attempt++ {
		res.Attempts = attempt

		start := time.Now()
		path, n, err := e.fetch(ctx, t, c, dir)
		metrics.AttemptDuration.Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.AttemptsTotal.WithLabelValues("success").Inc()
			metrics.BytesTotal.Add(float64(n))
			e.recorder.Record(fmt.Sprintf("✓ Downloaded: %s ← %s", path, c.URL))
			res.Path = path
			res.Bytes = n
			return res, nil
		}

		var fsErr *FilesystemError
		if errors.As(err, &fsErr) {
			e.recorder.Record(fmt.Sprintf("× Filesystem error: %v (while saving %s)", err, c.URL))
			e.onProgress.emit(LevelError, err.Error())
			return res, err
		}

		lastErr = err
		metrics.AttemptsTotal.WithLabelValues("failure").Inc()
		e.recorder.Record(fmt.Sprintf("× Attempt %d failed: %s → %v", attempt, c.URL, err))
		e.onProgress.emit(LevelVerbose, fmt.Sprintf("Attempt %d/%d failed for %s (%s): %v", attempt, e.attempts, t.Key(), c.MethodTag, err))

		if attempt < e.attempts {
			e.waitForRetry(ctx)
		}
	}

	e.recorder.Record("× Final failure: " + c.URL)
	return res, fmt.Errorf("%w: %s: %w", ErrCandidateExhausted, c.URL, lastErr)
}

// fetch performs one request and, on success, streams the body to disk.
func (e *Executor) fetch(ctx context.Context, t model.Target, c model.Candidate, dir string) (string, int64, error) {
	body, err := e.transport.Open(ctx, c.URL)
	if err != nil {
		return "", 0, err
	}
	defer body.Close()

	name := t.FileName(e.ext)
	file, path, err := ioutils.CreateUnique(dir, name)
	if err != nil {
		return "", 0, &FilesystemError{Op: "create", Path: filepath.Join(dir, name), Err: err}
	}

	fw := &fileWriter{file: file}
	var reported int64
	pw := &http.ProgressWriter{
		Writer: fw,
		Total:  bodySize(body),
		OnUpdate: func(written, _ int64) {
			if e.onBytes != nil {
				e.onBytes(written - reported)
			}
			reported = written
		},
	}

	n, copyErr := io.Copy(pw, body)
	if copyErr == nil && pw.Total > 0 && n != pw.Total {
		copyErr = fmt.Errorf("%w: got %d of %d bytes", io.ErrUnexpectedEOF, n, pw.Total)
	}
	closeErr := file.Close()

	switch {
	case fw.err != nil:
		os.Remove(path)
		return "", 0, &FilesystemError{Op: "write", Path: path, Err: fw.err}
	case copyErr != nil:
		// The connection broke mid-stream; drop the partial file.
		os.Remove(path)
		return "", 0, copyErr
	case closeErr != nil:
		os.Remove(path)
		return "", 0, &FilesystemError{Op: "close", Path: path, Err: closeErr}
	}

	return path, n, nil
}

// bodySize returns the announced length of body, or 0 when the transport
// does not know it.
func bodySize(body io.Reader) int64 {
	if s, ok := body.(interface{ Size() int64 }); ok && s.Size() > 0 {
		return s.Size()
	}
	return 0
}

func (e *Executor) waitForRetry(ctx context.Context) {
	if e.delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(e.delay):
	}
}

// fileWriter remembers write errors so they can be told apart from read
// errors on the response body.
type fileWriter struct {
	file *os.File
	err  error
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	if err != nil {
		w.err = err
	}
	return n, err
}
