// Package report writes machine-readable summaries of finished runs.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/handiism/sdss-fetch/internal/model"
)

// Manifest is the JSON document written after a run.
type Manifest struct {
	RunID     string    `json:"run_id"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Duration  string    `json:"duration"`
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Entries   []Entry   `json:"outcomes"`
}

// Entry is one target's outcome with its error flattened to text.
type Entry struct {
	model.Outcome
	Failure string `json:"error,omitempty"`
}

// NewManifest builds a Manifest from a run summary.
func NewManifest(s model.RunSummary) Manifest {
	m := Manifest{
		RunID:     s.RunID,
		Started:   s.Started,
		Finished:  s.Finished,
		Duration:  s.Duration().Round(time.Millisecond).String(),
		Attempted: s.Attempted,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
		Entries:   make([]Entry, 0, len(s.Outcomes)),
	}
	for _, o := range s.Outcomes {
		m.Entries = append(m.Entries, Entry{Outcome: o, Failure: o.Error()})
	}
	return m
}

// Write encodes the manifest of s to w as indented JSON.
func Write(w io.Writer, s model.RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewManifest(s))
}

// WriteFile writes the manifest of s to path, replacing any previous file
// atomically.
func WriteFile(path string, s model.RunSummary) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, s); err != nil {
		tmp.Close()
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// ReadFile decodes a manifest written by WriteFile.
func ReadFile(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return m, nil
}

// FailedTargets returns the targets of every unsuccessful entry, in order.
func (m Manifest) FailedTargets() []model.Target {
	var targets []model.Target
	for _, e := range m.Entries {
		if !e.Success {
			targets = append(targets, e.Target)
		}
	}
	return targets
}
