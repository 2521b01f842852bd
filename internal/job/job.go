// Package job provides the Job aggregate for video generation requests,
// the in-memory store that owns job records, and the orchestrator that
// drives every unit of a job through its lifecycle.
package job

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Status represents the current state of a Unit.
type Status string

const (
	// StatusQueued indicates the unit has not reached the provider yet.
	StatusQueued Status = "queued"
	// StatusSubmitted indicates the provider accepted the request.
	StatusSubmitted Status = "submitted"
	// StatusAwaitingResult indicates the provider is being polled for the result.
	StatusAwaitingResult Status = "awaiting_result"
	// StatusDownloading indicates the result is being written to disk.
	StatusDownloading Status = "downloading"
	// StatusPostProcessing indicates the clip is being cropped to the requested shape.
	StatusPostProcessing Status = "post_processing"
	// StatusDone indicates the clip is on disk at ResultPath.
	StatusDone Status = "done"
	// StatusFailed indicates the unit stopped with Error.
	StatusFailed Status = "failed"
)

// IsTerminal returns true for done and failed.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Static errors for job state changes.
var (
	// ErrInvalidTransition is returned when an invalid state transition is attempted.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrUnitNotFound is returned when a unit index is outside the job.
	ErrUnitNotFound = errors.New("unit not found")
)

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusQueued:         {StatusSubmitted, StatusFailed},
	StatusSubmitted:      {StatusAwaitingResult, StatusDownloading, StatusFailed},
	StatusAwaitingResult: {StatusDownloading, StatusFailed},
	StatusDownloading:    {StatusPostProcessing, StatusDone, StatusFailed},
	StatusPostProcessing: {StatusDone, StatusFailed},
	StatusDone:           {},
	StatusFailed:         {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Unit is one requested clip within a Job.
type Unit struct {
	// Index is the 0-based position within the job.
	Index int
	// Status is the current lifecycle state.
	Status Status
	// ResultPath is set only when Status is done.
	ResultPath string
	// Error is set only when Status is failed.
	Error string
	// UpdatedAt is when the unit last changed state.
	UpdatedAt time.Time
}

// Transition is one requested state change for a unit.
type Transition struct {
	To         Status
	ResultPath string
	Error      string
}

// Advance moves a unit to a non-terminal status.
func Advance(to Status) Transition {
	return Transition{To: to}
}

// Succeed moves a unit to done with its output file.
func Succeed(path string) Transition {
	return Transition{To: StatusDone, ResultPath: path}
}

// Fail moves a unit to failed with a human-readable cause.
func Fail(cause string) Transition {
	if cause == "" {
		cause = "unknown error"
	}
	return Transition{To: StatusFailed, Error: cause}
}

// Counts summarizes unit states.
type Counts struct {
	Total   int
	Running int
	Done    int
	Failed  int
}

// Job represents one generation request fanned out into Units.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Prompt is the text the clips are generated from.
	Prompt string
	// ProviderID names the adapter serving every unit.
	ProviderID string
	// Project is the project directory outputs are written under.
	Project string
	// Units holds one record per requested clip, in index order.
	Units []Unit
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// Version increases on every unit change.
	Version uint64
}

// NewWithID creates a job whose units all start queued.
func NewWithID(jobID, prompt, providerID, project string, count int) *Job {
	now := time.Now()
	units := make([]Unit, count)
	for i := range units {
		units[i] = Unit{Index: i, Status: StatusQueued, UpdatedAt: now}
	}
	return &Job{
		ID:         jobID,
		Prompt:     prompt,
		ProviderID: providerID,
		Project:    project,
		Units:      units,
		CreatedAt:  now,
	}
}

// Apply performs one transition on the unit at index. The result path and
// error are accepted only together with the terminal state they belong to.
func (j *Job) Apply(index int, t Transition) (Unit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if index < 0 || index >= len(j.Units) {
		return Unit{}, fmt.Errorf("%w: job %s index %d", ErrUnitNotFound, j.ID, index)
	}
	u := &j.Units[index]
	if !canTransition(u.Status, t.To) {
		return *u, fmt.Errorf("%w: unit %d %s -> %s", ErrInvalidTransition, index, u.Status, t.To)
	}

	switch t.To {
	case StatusDone:
		if t.ResultPath == "" || t.Error != "" {
			return *u, fmt.Errorf("%w: done requires only a result path", ErrInvalidTransition)
		}
	case StatusFailed:
		if t.Error == "" || t.ResultPath != "" {
			return *u, fmt.Errorf("%w: failed requires only an error", ErrInvalidTransition)
		}
	default:
		if t.ResultPath != "" || t.Error != "" {
			return *u, fmt.Errorf("%w: %s carries no result", ErrInvalidTransition, t.To)
		}
	}

	u.Status = t.To
	u.ResultPath = t.ResultPath
	u.Error = t.Error
	u.UpdatedAt = time.Now()
	j.Version++
	return *u, nil
}

// Counts returns unit totals by outcome.
func (j *Job) Counts() Counts {
	j.mu.RLock()
	defer j.mu.RUnlock()

	c := Counts{Total: len(j.Units)}
	for _, u := range j.Units {
		switch u.Status {
		case StatusDone:
			c.Done++
		case StatusFailed:
			c.Failed++
		default:
			c.Running++
		}
	}
	return c
}

// Complete reports whether every unit is terminal.
func (j *Job) Complete() bool {
	return j.Counts().Running == 0
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	units := make([]Unit, len(j.Units))
	copy(units, j.Units)

	return &Job{
		ID:         j.ID,
		Prompt:     j.Prompt,
		ProviderID: j.ProviderID,
		Project:    j.Project,
		Units:      units,
		CreatedAt:  j.CreatedAt,
		Version:    j.Version,
	}
}
