package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/castforge-labs/castforge-core/internal/faults"
)

// MemoryStore keeps job records in process memory behind a lock, with
// copy-on-read snapshots for pollers.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]*Job),
		clock: time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return faults.Validation("job %s already exists", job.ID)
	}
	now := s.clock().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, faults.NotFound("job %s not found", id)
	}
	return job.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return faults.NotFound("job %s not found", job.ID)
	}
	job.UpdatedAt = s.clock().UTC()
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) ListByTarget(_ context.Context, targetID string) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Job
	for _, job := range s.jobs {
		if job.TargetID == targetID {
			out = append(out, job.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return faults.NotFound("job %s not found", id)
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func sortNewestFirst(jobs []*Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}
