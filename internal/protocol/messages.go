// Package protocol defines the bus message shapes and subjects emitted by
// the production pipeline. Messages are JSON-encoded; subjects carry the
// job lifecycle so operators and downstream tooling can follow runs
// without polling the HTTP API.
package protocol

import "time"

// JobEvent announces a production job state change.
type JobEvent struct {
	JobID     string    `json:"job_id"`
	TargetID  string    `json:"target_id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JobResult announces a completed job with its exported artifact.
type JobResult struct {
	JobID           string  `json:"job_id"`
	TargetID        string  `json:"target_id"`
	Location        string  `json:"location"`
	DurationSeconds int     `json:"duration_seconds"`
	SegmentCount    int     `json:"segment_count"`
	FileSizeMB      float64 `json:"file_size_mb"`
}

const (
	SubjectJobSubmitted = "production.job.submitted"
	SubjectJobProgress  = "production.job.progress"
	SubjectJobComplete  = "production.job.complete"
	SubjectJobFailed    = "production.job.failed"
)
