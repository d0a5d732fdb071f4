// Package audit records what a run fetched, skipped or lost.
//
// A Sink owns two append-only files: the event log, one timestamped line per
// event, and the failed-target list, one tab-separated "plate mjd fiber" line
// per permanently failed target. The failed-target list is valid input for a
// later re-run.
//
// Every write from every worker goes through one mutex, so lines are never
// interleaved.
package audit

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	ioutils "github.com/handiism/sdss-fetch/internal/io"
	"github.com/handiism/sdss-fetch/internal/model"
)

// TimestampFormat is the layout of the bracketed prefix of each log line.
const TimestampFormat = "2006-01-02 15:04:05"

// Recorder is the write side of a Sink.
type Recorder interface {
	Record(msg string)
	RecordFailed(t model.Target)
}

// Sink is an append-only event log plus a failed-target list.
type Sink struct {
	mu     sync.Mutex
	log    io.Writer
	failed io.Writer
	closer []io.Closer
	now    func() time.Time
	err    error
}

// New creates a Sink writing to the given writers.
func New(log, failed io.Writer) *Sink {
	return &Sink{log: log, failed: failed, now: time.Now}
}

// Open creates a Sink appending to logPath and failedPath. Missing parent
// directories are created.
func Open(logPath, failedPath string) (*Sink, error) {
	logFile, err := ioutils.OpenAppend(logPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	failedFile, err := ioutils.OpenAppend(failedPath)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("open failed-target list: %w", err)
	}

	s := New(logFile, failedFile)
	s.closer = []io.Closer{logFile, failedFile}
	return s, nil
}

// SetClock replaces the timestamp source.
func (s *Sink) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Record appends one "[timestamp] msg" line to the event log. Embedded
// newlines are flattened so one event is always one line.
func (s *Sink) Record(msg string) {
	msg = strings.ReplaceAll(msg, "\n", " ")

	s.mu.Lock()
	defer s.mu.Unlock()

	line := fmt.Sprintf("[%s] %s\n", s.now().Format(TimestampFormat), msg)
	s.write(s.log, line)
}

// Recordf is Record with fmt.Sprintf formatting.
func (s *Sink) Recordf(format string, args ...any) {
	s.Record(fmt.Sprintf(format, args...))
}

// RecordFailed appends t to the failed-target list.
func (s *Sink) RecordFailed(t model.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.write(s.failed, t.FailedLine()+"\n")
}

// write must be called with mu held. The first error is kept.
func (s *Sink) write(w io.Writer, line string) {
	if _, err := io.WriteString(w, line); err != nil && s.err == nil {
		s.err = err
	}
}

// Err returns the first write error, if any.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes files opened by Open and returns the first write or close
// error.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := []error{s.err}
	for _, c := range s.closer {
		errs = append(errs, c.Close())
	}
	s.closer = nil
	return errors.Join(errs...)
}
