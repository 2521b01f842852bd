package job

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/job/id"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// ErrInvalidUnitCount is returned when a job is created without units.
var ErrInvalidUnitCount = errors.New("job must have at least one unit")

// MemoryStore is an in-memory implementation of Store.
// The map lock only guards membership; each job carries its own lock, so
// updates to different jobs never contend.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	newID func() string
}

// NewMemoryStore creates a new in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]*Job),
		newID: id.Generate,
	}
}

// Create registers a job and returns a snapshot of it.
func (s *MemoryStore) Create(_ context.Context, prompt, providerID, project string, count int) (*Job, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidUnitCount, count)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobID := s.newID()
	for _, exists := s.jobs[jobID]; exists; _, exists = s.jobs[jobID] {
		jobID = s.newID()
	}
	job := NewWithID(jobID, prompt, providerID, project, count)
	s.jobs[jobID] = job
	return job.Clone(), nil
}

// Get retrieves a job by its ID.
// Returns a clone to prevent external mutations.
func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	job, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return job.Clone(), nil
}

// List returns all jobs ordered by creation time.
// Returns clones to prevent external mutations.
func (s *MemoryStore) List(_ context.Context) ([]*Job, error) {
	s.mu.RLock()
	result := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		result = append(result, job.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateUnit applies one transition under the job's own lock.
func (s *MemoryStore) UpdateUnit(_ context.Context, id string, index int, t Transition) (Unit, error) {
	job, err := s.lookup(id)
	if err != nil {
		return Unit{}, err
	}
	return job.Apply(index, t)
}

func (s *MemoryStore) lookup(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}
