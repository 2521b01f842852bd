// Package generator provides the common interface for video generation providers.
// Every backend adapter (grok, replicate, fal, luma, sora) implements Adapter,
// hiding its submit/poll protocol behind a single Resolve call.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// AspectRatio is a requested output frame shape such as "9:16".
type AspectRatio string

// Aspect ratios understood by the pipeline.
const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectSquare    AspectRatio = "1:1"
)

// Parts returns the width and height terms of the ratio.
func (a AspectRatio) Parts() (w, h int, ok bool) {
	left, right, found := strings.Cut(string(a), ":")
	if !found {
		return 0, 0, false
	}
	w, err := strconv.Atoi(left)
	if err != nil || w <= 0 {
		return 0, 0, false
	}
	h, err = strconv.Atoi(right)
	if err != nil || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// IsLandscape reports whether the ratio is wider than it is tall.
func (a AspectRatio) IsLandscape() bool {
	w, h, ok := a.Parts()
	return ok && w > h
}

// Stage is a provider-side milestone an adapter may report while resolving.
type Stage string

const (
	// StageSubmitted means the provider accepted the request and returned a handle.
	StageSubmitted Stage = "submitted"
	// StageAwaitingResult means the adapter is polling the provider for the result.
	StageAwaitingResult Stage = "awaiting_result"
)

// Params carries the generation settings shared by all providers.
// Adapters translate only the fields their backend supports.
type Params struct {
	AspectRatio  AspectRatio
	Resolution   string
	DurationSec  int
	ImageDataURI string // optional first-frame image as a data: URI
	Model        string // provider model identifier from the descriptor
}

// Request is one unit of generation work handed to an adapter.
type Request struct {
	Prompt    string
	UnitIndex int
	Params    Params
	// Report is optional. Adapters call it from the Resolve goroutine.
	Report func(stage Stage)
}

// Announce invokes Report when it is set.
func (r Request) Announce(stage Stage) {
	if r.Report != nil {
		r.Report(stage)
	}
}

// Source is the finished artifact an adapter hands back: either a URL to
// fetch (optionally with request headers) or an already-open byte stream.
type Source struct {
	URL    string
	Header http.Header
	Body   io.ReadCloser
}

// IsStream reports whether the source carries its bytes directly.
func (s Source) IsStream() bool {
	return s.Body != nil
}

// Validate checks that exactly one of URL or Body is set.
func (s Source) Validate() error {
	switch {
	case s.Body != nil && s.URL != "":
		return fmt.Errorf("%w: both url and body set", ErrInvalidSource)
	case s.Body == nil && s.URL == "":
		return fmt.Errorf("%w: neither url nor body set", ErrInvalidSource)
	}
	return nil
}

// BytesSource wraps in-memory bytes as a stream Source.
func BytesSource(data []byte) Source {
	return Source{Body: io.NopCloser(bytes.NewReader(data))}
}

// URLSource returns a Source pointing at a fetchable URL.
func URLSource(url string) Source {
	return Source{URL: url}
}

// Adapter defines the interface every video generation backend implements.
// Polling, backoff and retry are the adapter's responsibility; the caller
// only sees the final Source or a typed error (AuthError, TransientError,
// UnsupportedParameterError, GenerationError).
type Adapter interface {
	Resolve(ctx context.Context, req Request) (Source, error)
}

// AdapterFunc lets a plain function satisfy Adapter.
type AdapterFunc func(ctx context.Context, req Request) (Source, error)

// Resolve calls f.
func (f AdapterFunc) Resolve(ctx context.Context, req Request) (Source, error) {
	return f(ctx, req)
}
