package grok

import (
	"context"
	"fmt"
	"net/http"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/apiclient"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
)

const providerName = "grok"

// Adapter resolves prompts into video URLs through the xAI API.
type Adapter struct {
	client *apiclient.Client
	model  string
}

// New creates an adapter authenticated with apiKey. Options are applied to
// the underlying HTTP client; pass apiclient.WithBaseURL to point elsewhere.
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

// Resolve submits the generation and polls until the video URL is ready.
func (a *Adapter) Resolve(ctx context.Context, req generator.Request) (generator.Source, error) {
	model := a.model
	if req.Params.Model != "" {
		model = req.Params.Model
	}

	body := generateRequest{
		Model:       model,
		Prompt:      req.Prompt,
		Duration:    req.Params.DurationSec,
		AspectRatio: string(req.Params.AspectRatio),
		Resolution:  req.Params.Resolution,
	}
	if req.Params.ImageDataURI != "" {
		body.Image = &imageRef{URL: req.Params.ImageDataURI}
	}

	var submitted generateResponse
	if err := a.client.DoJSON(ctx, http.MethodPost, "/videos/generations", body, &submitted); err != nil {
		return generator.Source{}, err
	}
	if submitted.RequestID == "" {
		return generator.Source{}, &generator.GenerationError{Provider: providerName, Status: "rejected", Reason: "response carried no request_id"}
	}
	req.Announce(generator.StageSubmitted)
	req.Announce(generator.StageAwaitingResult)

	var videoURL string
	err := a.client.Poll(ctx, func(ctx context.Context) (bool, error) {
		var resp videoResponse
		if err := a.client.DoJSON(ctx, http.MethodGet, "/videos/"+submitted.RequestID, nil, &resp); err != nil {
			return false, err
		}
		if resp.Video != nil && resp.Video.URL != "" {
			videoURL = resp.Video.URL
			return true, nil
		}
		if reason := apiclient.ErrorText(resp.Error); reason != "" {
			return false, &generator.GenerationError{Provider: providerName, Status: "error", Reason: reason}
		}
		if resp.Status == StatusExpired {
			return false, &generator.GenerationError{Provider: providerName, Status: StatusExpired, Reason: fmt.Sprintf("request %s expired", submitted.RequestID)}
		}
		return false, nil
	})
	if err != nil {
		return generator.Source{}, err
	}
	return generator.URLSource(videoURL), nil
}
