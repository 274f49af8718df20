package initgraph

import (
	"time"
)

// Outcome is the terminal state of a task handle.
type Outcome string

// Terminal task outcomes.
const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeCancelled Outcome = "cancelled"
)

// ExecutionRecord captures how a single task settled during a run.
type ExecutionRecord struct {
	TaskID     TaskID
	Class      TaskClass
	Outcome    Outcome
	Value      any
	Cause      error
	Started    bool
	StartedAt  time.Time
	FinishedAt time.Time
	// UpstreamTaskID names the dependency whose failure prevented this task from starting.
	UpstreamTaskID TaskID
}

// Duration returns the body execution time, or zero when the body never started.
func (record ExecutionRecord) Duration() time.Duration {
	if !record.Started || record.FinishedAt.Before(record.StartedAt) {
		return 0
	}
	return record.FinishedAt.Sub(record.StartedAt)
}

// Skipped reports whether the task settled without its body running.
func (record ExecutionRecord) Skipped() bool {
	return !record.Started && record.Outcome != OutcomeSuccess
}

// RunStatus is the terminal status of a whole run.
type RunStatus string

// Terminal run statuses.
const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailure RunStatus = "failure"
)

// TaskFailure associates a reported cause with its task. TaskID is empty for a synthesized cancellation.
type TaskFailure struct {
	TaskID TaskID
	Cause  error
}

// Report is the single terminal notification of a run.
type Report struct {
	RunID      string
	Status     RunStatus
	Failures   []TaskFailure
	Order      []TaskID
	Records    []ExecutionRecord
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the run ended in success.
func (report Report) Succeeded() bool {
	return report.Status == RunStatusSuccess
}

// Duration returns the wall-clock time of the run.
func (report Report) Duration() time.Duration {
	if report.FinishedAt.Before(report.StartedAt) {
		return 0
	}
	return report.FinishedAt.Sub(report.StartedAt)
}

// Record returns the execution record of a task.
func (report Report) Record(identifier TaskID) (ExecutionRecord, bool) {
	for _, record := range report.Records {
		if record.TaskID == identifier {
			return record, true
		}
	}
	return ExecutionRecord{}, false
}

// Err joins the reported causes, or returns nil for a successful run.
func (report Report) Err() error {
	if report.Succeeded() {
		return nil
	}
	return RunError{Failures: report.Failures}
}
