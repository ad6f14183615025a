package jobs

import "context"

// Store persists job records. Implementations must serialize writes per
// record and return not-found faults for unknown ids. List results are
// ordered newest first.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, job *Job) error
	List(ctx context.Context) ([]*Job, error)
	ListByTarget(ctx context.Context, targetID string) ([]*Job, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
