package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job not found")

// Store owns job records for the life of the process.
// It acts as a port in the hexagonal architecture pattern.
type Store interface {
	// Create registers a new job with count queued units and assigns its ID.
	Create(ctx context.Context, prompt, providerID, project string, count int) (*Job, error)

	// Get retrieves a snapshot of a job by its unique identifier.
	// Returns ErrJobNotFound if the job does not exist.
	Get(ctx context.Context, id string) (*Job, error)

	// List returns snapshots of all jobs, oldest first.
	List(ctx context.Context) ([]*Job, error)

	// UpdateUnit applies exactly one transition to one unit.
	// Returns ErrInvalidTransition if it is not legal from the current state.
	UpdateUnit(ctx context.Context, id string, index int, t Transition) (Unit, error)
}
