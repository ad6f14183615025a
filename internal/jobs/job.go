// Package jobs holds the production job records and the stores that
// track them. A job is mutated only by the pipeline goroutine that owns
// it; everyone else reads snapshots.
package jobs

import "time"

// Status represents the lifecycle stage of a production job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusProcessing, StatusComplete, StatusFailed:
		return true
	}
	return false
}

// Result captures the outcome of a completed production.
type Result struct {
	Location        string  `json:"location"`
	DurationSeconds int     `json:"duration_seconds"`
	SegmentCount    int     `json:"segment_count"`
	FileSizeMB      float64 `json:"file_size_mb"`
}

// Job is one tracked production request.
type Job struct {
	ID        string    `json:"id"`
	TargetID  string    `json:"target_id"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Result    *Result   `json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns an independent copy so readers never observe writes in
// progress.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	copied := *j
	if j.Result != nil {
		result := *j.Result
		copied.Result = &result
	}
	return &copied
}
