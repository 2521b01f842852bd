// Package artifact turns a resolved generator.Source into a file on disk,
// optionally reframing it to the requested aspect ratio.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/media"
)

// Stages reported in MaterializeError.
const (
	StageDownload = "download"
	StageReframe  = "reframe"
)

// Static errors for materialization.
var (
	// ErrUnexpectedStatus is returned when a download URL answers non-2xx.
	ErrUnexpectedStatus = errors.New("unexpected download status")
	// ErrProcessorRequired is returned when reframing without a media processor.
	ErrProcessorRequired = errors.New("artifact: media processor is required to reframe")
)

// MaterializeError reports a failed download or reframe of one artifact.
type MaterializeError struct {
	Stage string
	Path  string
	Err   error
}

func (e *MaterializeError) Error() string {
	var ffErr *media.FFmpegError
	if errors.As(e.Err, &ffErr) {
		return fmt.Sprintf("%s %s: ffmpeg: %s", e.Stage, filepath.Base(e.Path), ffErr.Diagnostic())
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, filepath.Base(e.Path), e.Err)
}

func (e *MaterializeError) Unwrap() error {
	return e.Err
}

// Materializer downloads sources and runs the optional crop pass.
type Materializer struct {
	httpClient *http.Client
	processor  media.Processor
	logger     *slog.Logger
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithHTTPClient sets the client used for URL sources.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Materializer) {
		m.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Materializer) {
		m.logger = l
	}
}

// New creates a Materializer. processor may be nil when no source ever
// needs reframing.
func New(processor media.Processor, opts ...Option) *Materializer {
	m := &Materializer{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		processor:  processor,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Materialize fetches src to dest and, when aspect is set, reframes it.
func (m *Materializer) Materialize(ctx context.Context, src generator.Source, dest string, aspect generator.AspectRatio) (string, error) {
	if err := m.Fetch(ctx, src, dest); err != nil {
		return "", err
	}
	if aspect != "" {
		if err := m.Reframe(ctx, dest, aspect); err != nil {
			return "", err
		}
	}
	return dest, nil
}

// Fetch writes src to dest. Bytes land in a temporary file next to dest
// which is renamed into place only after a complete write, so dest never
// holds a partial file. Parent directories are created as needed.
func (m *Materializer) Fetch(ctx context.Context, src generator.Source, dest string) error {
	if src.Body != nil {
		defer func() { _ = src.Body.Close() }()
	}
	if err := src.Validate(); err != nil {
		return &MaterializeError{Stage: StageDownload, Path: dest, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &MaterializeError{Stage: StageDownload, Path: dest, Err: fmt.Errorf("create directory: %w", err)}
	}

	body := src.Body
	if !src.IsStream() {
		resp, err := m.open(ctx, src)
		if err != nil {
			return &MaterializeError{Stage: StageDownload, Path: dest, Err: err}
		}
		defer func() { _ = resp.Close() }()
		body = resp
	}

	n, err := writeAtomic(dest, body)
	if err != nil {
		return &MaterializeError{Stage: StageDownload, Path: dest, Err: err}
	}

	m.logger.Debug("artifact downloaded",
		slog.String("path", dest),
		slog.Int64("bytes", n),
	)
	return nil
}

func (m *Materializer) open(ctx context.Context, src generator.Source) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range src.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return resp.Body, nil
}

// writeAtomic copies r into a temp file in dest's directory and renames it
// over dest. The temp file is removed on any failure.
func writeAtomic(dest string, r io.Reader) (n int64, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	n, err = io.Copy(tmp, r)
	if err != nil {
		return n, fmt.Errorf("write body: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return n, fmt.Errorf("sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return n, fmt.Errorf("close: %w", err)
	}
	if err = os.Rename(tmpPath, dest); err != nil {
		return n, fmt.Errorf("rename into place: %w", err)
	}
	return n, nil
}

// Reframe center-crops the clip at path to aspect, replacing it in place.
// A clip that already has the target shape is left untouched. When probing
// fails the crop still runs, since ffmpeg will report a clearer error.
func (m *Materializer) Reframe(ctx context.Context, path string, aspect generator.AspectRatio) error {
	w, h, ok := aspect.Parts()
	if !ok {
		return &MaterializeError{Stage: StageReframe, Path: path, Err: fmt.Errorf("malformed aspect ratio %q", aspect)}
	}
	if m.processor == nil {
		return &MaterializeError{Stage: StageReframe, Path: path, Err: ErrProcessorRequired}
	}

	info, err := m.processor.Probe(ctx, path)
	switch {
	case err != nil:
		m.logger.Warn("probe failed, cropping anyway",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	case info.MatchesAspect(w, h):
		m.logger.Debug("clip already matches aspect",
			slog.String("path", path),
			slog.String("aspect", string(aspect)),
		)
		return nil
	}

	tmp := tempSibling(path)
	if err := m.processor.CropToAspect(ctx, path, tmp, w, h); err != nil {
		_ = os.Remove(tmp)
		return &MaterializeError{Stage: StageReframe, Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &MaterializeError{Stage: StageReframe, Path: path, Err: fmt.Errorf("replace original: %w", err)}
	}

	m.logger.Debug("clip reframed",
		slog.String("path", path),
		slog.String("aspect", string(aspect)),
	)
	return nil
}

// tempSibling returns a path next to path that keeps its extension, so
// ffmpeg can still infer the container from the output name.
func tempSibling(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + ".crop" + ext
}
