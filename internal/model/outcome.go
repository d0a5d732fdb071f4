package model

import "time"

// Candidate is one concrete URL to try for a target.
type Candidate struct {
	// URL is the fully constructed archive URL.
	URL string `json:"url"`

	// MethodTag names the strategy that produced the URL, for example
	// "priority-fastpath" or "release-legacy-path:dr16/v5_13_0".
	MethodTag string `json:"method_tag"`
}

// State is the resolution state of a target.
type State string

const (
	StatePending   State = "pending"
	StateTrying    State = "trying"
	StateSucceeded State = "succeeded"
	StateExhausted State = "exhausted"

	// StateAborted marks a target abandoned because of a local filesystem
	// failure rather than archive unavailability.
	StateAborted State = "aborted"

	// StateSkipped marks a target never dispatched because the run was
	// cancelled. It was not resolved, so it is not terminal.
	StateSkipped State = "skipped"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateExhausted || s == StateAborted
}

// Outcome is the terminal result of resolving one target.
type Outcome struct {
	Target Target `json:"target"`

	// Success is true only when State is StateSucceeded.
	Success bool `json:"success"`

	// SavedFilename is the base name of the written file. Empty on failure.
	SavedFilename string `json:"saved_filename,omitempty"`

	// MethodTag is the tag of the candidate that succeeded. Empty on failure.
	MethodTag string `json:"method_tag,omitempty"`

	State State `json:"state"`

	// Attempts counts network requests issued for the target.
	Attempts int `json:"attempts"`

	// CandidatesTried counts candidates handed to the executor.
	CandidatesTried int `json:"candidates_tried"`

	// Cached is set when the outcome was served from the run memo instead
	// of the network.
	Cached bool `json:"cached,omitempty"`

	Err      error     `json:"-"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Error returns the failure message, or "" for successful outcomes.
func (o Outcome) Error() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// RunSummary tallies the outcomes of one batch.
type RunSummary struct {
	RunID string `json:"run_id"`

	// Attempted counts targets that were dispatched to a worker.
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	// Skipped counts targets never dispatched because the run was cancelled.
	Skipped int `json:"skipped"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Outcomes holds one entry per target, in input order. Targets that
	// were never dispatched appear with StateSkipped.
	Outcomes []Outcome `json:"outcomes"`
}

// Duration returns the wall-clock length of the run.
func (s RunSummary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

// Total returns the number of targets submitted to the run.
func (s RunSummary) Total() int {
	return s.Attempted + s.Skipped
}

// SkippedTargets returns the targets of skipped outcomes, in input order.
func (s RunSummary) SkippedTargets() []Target {
	var targets []Target
	for _, out := range s.Outcomes {
		if out.State == StateSkipped {
			targets = append(targets, out.Target)
		}
	}
	return targets
}
