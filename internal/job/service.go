package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
)

// Static errors for job submission.
var (
	// ErrEmptyPrompt is returned when a job is submitted without a prompt.
	ErrEmptyPrompt = errors.New("prompt is required")
)

// Providers looks up a usable adapter and its descriptor.
type Providers interface {
	Get(id string) (generator.Adapter, generator.Descriptor, error)
}

// Materializer writes a resolved source to disk and reframes it.
type Materializer interface {
	Fetch(ctx context.Context, src generator.Source, dest string) error
	Reframe(ctx context.Context, path string, aspect generator.AspectRatio) error
}

// PathResolver maps a unit to its output file.
type PathResolver interface {
	ResolveOutputPath(project, providerID, prompt, jobID string, index int) (string, error)
}

// Mirror copies a finished clip to remote storage and returns its URL.
type Mirror interface {
	Mirror(ctx context.Context, localPath string) (string, error)
}

// SubmitInput contains the parameters of one generation request.
type SubmitInput struct {
	// Prompt is the text to generate clips from.
	Prompt string
	// ProviderID selects the adapter from the registry.
	ProviderID string
	// Project is the project directory outputs go under.
	Project string
	// Count is the number of clips (units) to generate.
	Count int
	// Params carries aspect ratio, resolution, duration and optional image.
	Params generator.Params
}

// Service orchestrates generation jobs. SubmitJob returns as soon as the
// job record exists; each unit then runs in its own goroutine until it is
// done or failed, independent of its siblings.
type Service struct {
	store        Store
	providers    Providers
	materializer Materializer
	paths        PathResolver
	mirror       Mirror
	logger       *slog.Logger

	// baseCtx outlives the request that submitted the job.
	baseCtx context.Context
	// inFlight bounds concurrent unit workflows when set.
	inFlight *semaphore.Weighted
	wg       sync.WaitGroup
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMaxInFlight caps the number of unit workflows running at once across
// all jobs. Units beyond the cap stay queued until a slot frees up.
// n <= 0 means unbounded.
func WithMaxInFlight(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.inFlight = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithMirror uploads every finished clip after it reaches done.
func WithMirror(m Mirror) ServiceOption {
	return func(s *Service) {
		s.mirror = m
	}
}

// WithBaseContext sets the context unit workflows run under.
func WithBaseContext(ctx context.Context) ServiceOption {
	return func(s *Service) {
		s.baseCtx = ctx
	}
}

// NewService creates a new orchestrator.
func NewService(store Store, providers Providers, materializer Materializer, paths PathResolver, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:        store,
		providers:    providers,
		materializer: materializer,
		paths:        paths,
		logger:       logger,
		baseCtx:      context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitJob creates a job with in.Count queued units and launches one
// workflow per unit. It never waits for a unit to make progress.
func (s *Service) SubmitJob(ctx context.Context, in SubmitInput) (*Job, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	adapter, desc, err := s.providers.Get(in.ProviderID)
	if err != nil {
		return nil, err
	}
	if in.Params.Model == "" {
		in.Params.Model = desc.Model
	}

	job, err := s.store.Create(ctx, in.Prompt, in.ProviderID, in.Project, in.Count)
	if err != nil {
		s.logger.Error("failed to create job",
			slog.String("provider", in.ProviderID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("job created",
		slog.String("job_id", job.ID),
		slog.String("provider", in.ProviderID),
		slog.String("project", in.Project),
		slog.Int("units", in.Count),
		slog.String("aspect_ratio", string(in.Params.AspectRatio)),
		slog.Int("duration", in.Params.DurationSec),
	)

	for i := range job.Units {
		s.wg.Add(1)
		go s.runUnit(job.ID, i, adapter, desc, in)
	}
	return job, nil
}

// GetJob retrieves a job snapshot by ID.
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// ListJobs returns snapshots of all jobs, oldest first.
func (s *Service) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.store.List(ctx)
}

// Wait blocks until every launched unit workflow has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// runUnit drives one unit from queued to done or failed.
func (s *Service) runUnit(jobID string, index int, adapter generator.Adapter, desc generator.Descriptor, in SubmitInput) {
	defer s.wg.Done()

	ctx := s.baseCtx
	u := &unitRun{svc: s, jobID: jobID, index: index, status: StatusQueued}

	defer func() {
		if r := recover(); r != nil {
			u.fail(fmt.Errorf("panic: %v", r))
		}
	}()

	if s.inFlight != nil {
		if err := s.inFlight.Acquire(ctx, 1); err != nil {
			u.fail(fmt.Errorf("waiting for a free slot: %w", err))
			return
		}
		defer s.inFlight.Release(1)
	}

	if err := desc.ValidateParams(in.Params); err != nil {
		u.fail(err)
		return
	}

	src, err := adapter.Resolve(ctx, generator.Request{
		Prompt:    in.Prompt,
		UnitIndex: index,
		Params:    in.Params,
		Report:    u.report,
	})
	if err != nil {
		u.fail(err)
		return
	}
	if err := src.Validate(); err != nil {
		closeSource(src)
		u.fail(err)
		return
	}

	if !u.advance(StatusDownloading) {
		closeSource(src)
		return
	}

	dest, err := s.paths.ResolveOutputPath(in.Project, in.ProviderID, in.Prompt, jobID, index)
	if err != nil {
		closeSource(src)
		u.fail(fmt.Errorf("resolve output path: %w", err))
		return
	}
	if err := s.materializer.Fetch(ctx, src, dest); err != nil {
		u.fail(err)
		return
	}

	if desc.NeedsReframe(in.Params.AspectRatio) {
		if !u.advance(StatusPostProcessing) {
			return
		}
		if err := s.materializer.Reframe(ctx, dest, in.Params.AspectRatio); err != nil {
			// The uncropped clip is not the requested artifact.
			_ = os.Remove(dest)
			u.fail(err)
			return
		}
	}

	if !u.succeed(dest) {
		return
	}

	if s.mirror != nil {
		url, err := s.mirror.Mirror(ctx, dest)
		if err != nil {
			s.logger.Warn("mirror upload failed",
				slog.String("job_id", jobID),
				slog.Int("unit", index),
				slog.String("path", dest),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.Info("clip mirrored",
			slog.String("job_id", jobID),
			slog.Int("unit", index),
			slog.String("url", url),
		)
	}
}

func closeSource(src generator.Source) {
	if src.Body != nil {
		_ = src.Body.Close()
	}
}

// unitRun tracks the last status written for one unit so the workflow only
// ever requests transitions that are legal from where the unit stands.
type unitRun struct {
	svc   *Service
	jobID string
	index int

	mu     sync.Mutex
	status Status
}

// report maps adapter milestones onto unit states. Milestones that arrive
// out of order or twice are ignored.
func (u *unitRun) report(stage generator.Stage) {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch stage {
	case generator.StageSubmitted:
		if u.status == StatusQueued {
			u.apply(Advance(StatusSubmitted))
		}
	case generator.StageAwaitingResult:
		if u.status == StatusQueued {
			u.apply(Advance(StatusSubmitted))
		}
		if u.status == StatusSubmitted {
			u.apply(Advance(StatusAwaitingResult))
		}
	}
}

// advance moves the unit to a later working state, passing through
// submitted when the adapter never reported it.
func (u *unitRun) advance(to Status) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if to == StatusDownloading && u.status == StatusQueued {
		if !u.apply(Advance(StatusSubmitted)) {
			return false
		}
	}
	return u.apply(Advance(to))
}

func (u *unitRun) succeed(path string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.apply(Succeed(path))
}

func (u *unitRun) fail(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.status.IsTerminal() {
		return
	}
	u.apply(Fail(err.Error()))
}

// apply writes one transition to the store. Callers hold u.mu.
func (u *unitRun) apply(t Transition) bool {
	log := u.svc.logger.With(
		slog.String("job_id", u.jobID),
		slog.Int("unit", u.index),
	)

	unit, err := u.svc.store.UpdateUnit(context.Background(), u.jobID, u.index, t)
	if err != nil {
		log.Error("unit transition rejected",
			slog.String("from", string(u.status)),
			slog.String("to", string(t.To)),
			slog.String("error", err.Error()),
		)
		return false
	}
	u.status = unit.Status

	switch unit.Status {
	case StatusDone:
		log.Info("unit done", slog.String("path", unit.ResultPath))
	case StatusFailed:
		log.Warn("unit failed", slog.String("error", unit.Error))
	default:
		log.Debug("unit advanced", slog.String("status", string(unit.Status)))
	}
	return true
}
