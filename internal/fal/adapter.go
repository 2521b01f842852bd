package fal

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/apiclient"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
)

const providerName = "fal"

// Adapter submits requests to one FAL model queue.
type Adapter struct {
	client *apiclient.Client
	model  string
}

// New creates an adapter for model (e.g. "fal-ai/ovi") authenticated with key.
func New(key, model string, opts ...apiclient.Option) (*Adapter, error) {
	client, err := apiclient.New(providerName, DefaultBaseURL, "Key "+key, opts...)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client, model: model}, nil
}

// Resolve enqueues the request, waits for COMPLETED and fetches the result.
func (a *Adapter) Resolve(ctx context.Context, req generator.Request) (generator.Source, error) {
	model := a.model
	if req.Params.Model != "" {
		model = req.Params.Model
	}

	var submitted submitResponse
	if err := a.client.DoJSON(ctx, http.MethodPost, "/"+model, buildRequest(model, req), &submitted); err != nil {
		return generator.Source{}, err
	}
	if submitted.RequestID == "" {
		return generator.Source{}, &generator.GenerationError{Provider: providerName, Status: "rejected", Reason: "response carried no request_id"}
	}
	req.Announce(generator.StageSubmitted)

	// The queue hands back canonical URLs; models with nested paths are
	// served from the app root, so prefer them over building our own.
	statusURL := submitted.StatusURL
	if statusURL == "" {
		statusURL = fmt.Sprintf("/%s/requests/%s/status", model, submitted.RequestID)
	}
	resultURL := submitted.ResponseURL
	if resultURL == "" {
		resultURL = fmt.Sprintf("/%s/requests/%s", model, submitted.RequestID)
	}

	req.Announce(generator.StageAwaitingResult)
	err := a.client.Poll(ctx, func(ctx context.Context) (bool, error) {
		var st statusResponse
		if err := a.client.DoJSON(ctx, http.MethodGet, statusURL, nil, &st); err != nil {
			return false, err
		}
		switch st.Status {
		case StatusCompleted:
			return true, nil
		case StatusFailed, StatusCancelled:
			reason := st.Error
			if reason == "" {
				reason = "request " + submitted.RequestID
			}
			return false, &generator.GenerationError{Provider: providerName, Status: st.Status, Reason: reason}
		}
		return false, nil
	})
	if err != nil {
		return generator.Source{}, err
	}

	var result resultResponse
	if err := a.client.DoJSON(ctx, http.MethodGet, resultURL, nil, &result); err != nil {
		return generator.Source{}, err
	}
	video := result.Video
	if video == nil {
		video = result.Output
	}
	if video == nil || video.URL == "" {
		return generator.Source{}, &generator.GenerationError{Provider: providerName, Status: StatusCompleted, Reason: "result carried no video url"}
	}
	return generator.URLSource(video.URL), nil
}

// buildRequest maps shared params onto the fields each model family accepts.
func buildRequest(model string, req generator.Request) submitRequest {
	p := req.Params
	body := submitRequest{Prompt: req.Prompt}
	duration := ""
	if p.DurationSec > 0 {
		duration = strconv.Itoa(min(p.DurationSec, maxDuration))
	}

	switch {
	case strings.Contains(model, "wan"):
		body.Duration = duration
		body.Resolution = p.Resolution
		body.AspectRatio = string(p.AspectRatio)
	case strings.Contains(model, "kling"):
		body.Duration = duration
		body.AspectRatio = string(p.AspectRatio)
	case strings.Contains(model, "ovi"):
		body.AspectRatio = string(p.AspectRatio)
	}

	if p.ImageDataURI != "" && strings.Contains(model, "image-to-video") {
		body.ImageURL = p.ImageDataURI
	}
	return body
}
