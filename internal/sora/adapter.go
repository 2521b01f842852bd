package sora

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/apiclient"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
)

const providerName = "sora"

// ErrInvalidDataURI is returned when the reference image is not a base64 data URI.
var ErrInvalidDataURI = errors.New("sora: invalid image data URI")

// Adapter creates videos through the OpenAI API.
type Adapter struct {
	client *apiclient.Client
	model  string
}

// New creates an adapter authenticated with apiKey.
func New(apiKey, model string, opts ...apiclient.Option) (*Adapter, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := apiclient.New(providerName, DefaultBaseURL, "Bearer "+apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client, model: model}, nil
}

// Resolve creates the video, waits for completion and returns the content
// stream. The caller owns the returned Body.
func (a *Adapter) Resolve(ctx context.Context, req generator.Request) (generator.Source, error) {
	model := a.model
	if req.Params.Model != "" {
		model = req.Params.Model
	}
	body := createRequest{
		Model:   model,
		Prompt:  req.Prompt,
		Size:    sizeFor(req.Params.AspectRatio),
		Seconds: strconv.Itoa(nearestSeconds(req.Params.DurationSec)),
	}

	var created video
	var err error
	if strings.HasPrefix(req.Params.ImageDataURI, "data:") {
		err = a.createWithReference(ctx, body, req.Params.ImageDataURI, &created)
	} else {
		err = a.client.DoJSON(ctx, http.MethodPost, "/videos", body, &created)
	}
	if err != nil {
		return generator.Source{}, err
	}
	if created.ID == "" {
		return generator.Source{}, &generator.GenerationError{Provider: providerName, Status: "rejected", Reason: "response carried no video id"}
	}
	req.Announce(generator.StageSubmitted)
	req.Announce(generator.StageAwaitingResult)

	err = a.client.Poll(ctx, func(ctx context.Context) (bool, error) {
		var v video
		if err := a.client.DoJSON(ctx, http.MethodGet, "/videos/"+created.ID, nil, &v); err != nil {
			return false, err
		}
		switch v.Status {
		case StatusCompleted:
			return true, nil
		case StatusFailed:
			reason := apiclient.ErrorText(v.Error)
			if reason == "" {
				reason = "unknown"
			}
			return false, &generator.GenerationError{Provider: providerName, Status: v.Status, Reason: reason}
		}
		return false, nil
	})
	if err != nil {
		return generator.Source{}, err
	}

	stream, err := a.client.Stream(ctx, "/videos/"+created.ID+"/content")
	if err != nil {
		return generator.Source{}, err
	}
	return generator.Source{Body: stream}, nil
}

// createWithReference posts the create request as multipart form data with
// the decoded image attached as input_reference.
func (a *Adapter) createWithReference(ctx context.Context, body createRequest, dataURI string, out *video) error {
	mimeType, raw, err := decodeDataURI(dataURI)
	if err != nil {
		return &generator.UnsupportedParameterError{Provider: providerName, Param: "image", Reason: err.Error()}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"model", body.Model},
		{"prompt", body.Prompt},
		{"size", body.Size},
		{"seconds", body.Seconds},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("sora: write field %s: %w", f[0], err)
		}
	}

	ext := mimeType[strings.LastIndex(mimeType, "/")+1:]
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="input_reference"; filename="input.%s"`, ext))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("sora: create image part: %w", err)
	}
	if _, err := part.Write(raw); err != nil {
		return fmt.Errorf("sora: write image part: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sora: close multipart: %w", err)
	}

	return a.client.Do(ctx, http.MethodPost, "/videos", w.FormDataContentType(), buf.Bytes(), out)
}

// decodeDataURI splits "data:<mime>;base64,<payload>" into mime type and bytes.
func decodeDataURI(uri string) (string, []byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	mimeType, _, _ := strings.Cut(header, ";")
	if mimeType == "" || !strings.Contains(mimeType, "/") {
		return "", nil, fmt.Errorf("%w: missing mime type", ErrInvalidDataURI)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
	}
	return mimeType, raw, nil
}

func sizeFor(a generator.AspectRatio) string {
	if a == generator.AspectLandscape {
		return "1280x720"
	}
	return "720x1280"
}

// nearestSeconds snaps d to the closest allowed length, preferring the
// shorter one on ties.
func nearestSeconds(d int) int {
	best := allowedSeconds[0]
	for _, s := range allowedSeconds[1:] {
		if abs(s-d) < abs(best-d) {
			best = s
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
