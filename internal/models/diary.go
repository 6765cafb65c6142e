// Package models defines the value types shared across diarysum packages.
package models

import (
	"fmt"
	"time"
)

// DiaryFile is a lightweight listing entry for a diary in a folder.
type DiaryFile struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum"`
	ModifiedAt time.Time `json:"modified_at"`
}

// State is the terminal state of one file in a run.
type State string

const (
	StatePending    State = "pending"
	StateSkipped    State = "skipped"
	StateSummarized State = "summarized"
	StateFailed     State = "failed"
)

// SkipReason explains why a file was skipped without a model call.
type SkipReason string

const (
	SkipAlreadySummarized SkipReason = "already_summarized"
	SkipNoTarget          SkipReason = "no_target"
	SkipNoContent         SkipReason = "no_content"
)

// Outcome records what happened to a single diary file.
type Outcome struct {
	Name    string        `json:"name"`
	State   State         `json:"state"`
	Reason  SkipReason    `json:"reason,omitempty"`
	Summary string        `json:"summary,omitempty"`
	Error   string        `json:"error,omitempty"`
	DryRun  bool          `json:"dry_run,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Report aggregates the outcomes of one folder run.
type Report struct {
	RunID      string    `json:"run_id"`
	Folder     string    `json:"folder"`
	Total      int       `json:"total"`
	Summarized int       `json:"summarized"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Success    bool      `json:"success"`
	Cancelled  bool      `json:"cancelled,omitempty"`
	Message    string    `json:"message"`
	Outcomes   []Outcome `json:"outcomes"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Add folds an outcome into the counters.
func (r *Report) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Total++
	switch o.State {
	case StateSummarized:
		r.Summarized++
	case StateSkipped:
		r.Skipped++
	case StateFailed:
		r.Failed++
	}
}

// Processed counts the files handled without error.
func (r *Report) Processed() int {
	return r.Summarized + r.Skipped
}

// Status is "completed", "completed_with_errors" or "cancelled" once the run finished.
func (r *Report) Status() string {
	if r.Cancelled {
		return "cancelled"
	}
	if r.Failed > 0 {
		return "completed_with_errors"
	}
	return "completed"
}

// Finish marks the run complete and builds the user-facing message.
func (r *Report) Finish(at time.Time) {
	r.FinishedAt = at
	r.Success = true
	r.Message = fmt.Sprintf("Successfully updated summaries for %d diary entries", r.Processed())
	if r.Failed > 0 {
		r.Message += fmt.Sprintf(" (%d failed)", r.Failed)
	}
}

// Cancel closes a run that stopped before every file was handled.
func (r *Report) Cancel(at time.Time, remaining int) {
	r.FinishedAt = at
	r.Success = false
	r.Cancelled = true
	r.Message = fmt.Sprintf("Run cancelled after %d diary entries (%d not processed)", r.Total, remaining)
}
