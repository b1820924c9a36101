// Package history records transcription jobs in a local SQLite database so
// past runs can be inspected and repeats skipped.
package history

import "time"

// Status represents the lifecycle of a transcription job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusDryRun    Status = "dry_run"
)

// Source identifies what triggered a job.
type Source string

const (
	SourceHook  Source = "hook"
	SourceTask  Source = "task"
	SourceCLI   Source = "cli"
	SourceWatch Source = "watch"
)

// Job is one transcription attempt.
type Job struct {
	ID           int64
	JobID        string
	SceneID      int64 // zero when the job did not come from the host
	Source       Source
	VideoPath    string
	SubtitlePath string
	ServerURL    string
	Translate    bool
	Status       Status
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time // zero while running
}

// Duration returns how long the job ran, or zero if it is still in flight.
func (j *Job) Duration() time.Duration {
	if j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
