package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/job"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/project"
)

// Form defaults for POST /api/video/generate.
const (
	defaultProvider    = "fal-wan"
	defaultCount       = 1
	defaultDuration    = 10
	defaultAspectRatio = string(generator.AspectPortrait)
	defaultResolution  = "720p"
)

// JobService is the orchestrator the handlers submit to.
type JobService interface {
	SubmitJob(ctx context.Context, in job.SubmitInput) (*job.Job, error)
	GetJob(ctx context.Context, id string) (*job.Job, error)
	ListJobs(ctx context.Context) ([]*job.Job, error)
}

// ProviderLister lists usable providers.
type ProviderLister interface {
	List() []generator.Descriptor
}

// ProjectStore manages project directories.
type ProjectStore interface {
	Root() string
	Create(name string) (project.Project, error)
	List() ([]project.Project, error)
	Get(name string) (project.Project, error)
	Delete(name string) error
	Stats(name string) (project.Stats, error)
	EnsureDefault() (project.Project, error)
}

// URLMapper turns a result path into the URL it is served at.
type URLMapper interface {
	URLPath(path string) (string, bool)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        JobService
	providers      ProviderLister
	projects       ProjectStore
	urls           URLMapper
	validator      *validator.Validate
	logger         *slog.Logger
	defaultProject string
	maxUploadBytes int64
	streamInterval time.Duration
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithDefaultProject sets the project used when a request names none.
func WithDefaultProject(name string) HandlerOption {
	return func(h *Handlers) {
		if name != "" {
			h.defaultProject = name
		}
	}
}

// WithMaxUploadBytes caps the size of multipart generate requests.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithStreamInterval sets how often the WebSocket stream checks a job.
func WithStreamInterval(d time.Duration) HandlerOption {
	return func(h *Handlers) {
		if d > 0 {
			h.streamInterval = d
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service JobService, providers ProviderLister, projects ProjectStore, urls URLMapper, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		providers:      providers,
		projects:       projects,
		urls:           urls,
		validator:      validator.New(),
		logger:         logger,
		defaultProject: "quick-test",
		maxUploadBytes: 32 << 20,
		streamInterval: time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Providers: len(h.providers.List())})
}

// ListProviders handles GET /api/providers. Only providers whose
// credential is configured are listed.
func (h *Handlers) ListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.providers.List())
}

// Generate handles POST /api/video/generate requests.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeGenerate(w, r)
	if err != nil {
		h.logger.Warn("failed to decode generate request",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	projectName, err := project.SanitizeName(req.Project)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_PROJECT")
		return
	}

	created, err := h.service.SubmitJob(r.Context(), job.SubmitInput{
		Prompt:     req.Prompt,
		ProviderID: req.Provider,
		Project:    projectName,
		Count:      req.Count,
		Params: generator.Params{
			AspectRatio:  generator.AspectRatio(req.AspectRatio),
			Resolution:   req.Resolution,
			DurationSec:  req.Duration,
			ImageDataURI: req.Image,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, generator.ErrUnknownProvider):
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown or unconfigured provider: %s", req.Provider), "UNKNOWN_PROVIDER")
		case errors.Is(err, job.ErrEmptyPrompt), errors.Is(err, job.ErrInvalidUnitCount):
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		default:
			h.logger.Error("failed to create job",
				slog.String("request_id", RequestID(r.Context())),
				slog.String("provider", req.Provider),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, GenerateResponse{JobID: created.ID, Count: len(created.Units)})
}

// decodeGenerate reads a multipart form or a JSON body, filling the
// defaults for fields the client left out.
func (h *Handlers) decodeGenerate(w http.ResponseWriter, r *http.Request) (GenerateRequest, error) {
	req := GenerateRequest{
		Provider:    defaultProvider,
		Count:       defaultCount,
		Duration:    defaultDuration,
		AspectRatio: defaultAspectRatio,
		Resolution:  defaultResolution,
		Project:     h.defaultProject,
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("invalid JSON body: %w", err)
		}
		if req.Project == "" {
			req.Project = h.defaultProject
		}
		return req, nil
	case "multipart/form-data", "application/x-www-form-urlencoded":
	default:
		return req, fmt.Errorf("unsupported content type %q", mediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			return req, fmt.Errorf("invalid form: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("invalid form: %w", err)
	}

	req.Prompt = r.FormValue("prompt")
	setString(&req.Provider, r.FormValue("provider"))
	setString(&req.AspectRatio, r.FormValue("aspect_ratio"))
	setString(&req.Resolution, r.FormValue("resolution"))
	setString(&req.Project, r.FormValue("project"))
	for field, dst := range map[string]*int{"count": &req.Count, "duration": &req.Duration} {
		if err := setInt(dst, r.FormValue(field)); err != nil {
			return req, fmt.Errorf("%s: %w", field, err)
		}
	}

	uri, err := mediaDataURI(r)
	if err != nil {
		return req, err
	}
	req.Image = uri
	return req, nil
}

// mediaDataURI turns the optional "media" upload into a data URI.
func mediaDataURI(r *http.Request) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	file, header, err := r.FormFile("media")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("media: %w", err)
	}
	defer func() { _ = file.Close() }()

	raw, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("media: %w", err)
	}
	if len(raw) == 0 {
		return "", nil
	}
	ct := header.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(raw)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v string) error {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("not a number: %q", v)
	}
	*dst = n
	return nil
}

// ListJobs handles GET /api/video/jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_FETCH_FAILED")
		return
	}

	resp := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp = append(resp, h.jobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob handles GET /api/video/jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	found, ok := h.lookupJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.jobResponse(found))
}

// lookupJob loads the job named in the path, writing the error response
// itself when it cannot.
func (h *Handlers) lookupJob(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return nil, false
	}

	found, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return nil, false
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return nil, false
	}
	return found, true
}

func (h *Handlers) jobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:         j.ID,
		Prompt:     j.Prompt,
		ProviderID: j.ProviderID,
		Project:    j.Project,
		Complete:   j.Complete(),
		Counts:     j.Counts(),
		Units:      make([]UnitResponse, 0, len(j.Units)),
	}
	for _, u := range j.Units {
		ur := UnitResponse{
			Index:      u.Index,
			Status:     string(u.Status),
			ResultPath: u.ResultPath,
			Error:      u.Error,
		}
		if u.ResultPath != "" && h.urls != nil {
			if url, ok := h.urls.URLPath(u.ResultPath); ok {
				ur.URL = url
			}
		}
		resp.Units = append(resp.Units, ur)
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
