package luma

import (
	"context"
	"fmt"
	"net/http"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/apiclient"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
)

const providerName = "luma"

// Adapter creates Dream Machine generations.
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

// Resolve creates a generation and polls until its video asset is ready.
func (a *Adapter) Resolve(ctx context.Context, req generator.Request) (generator.Source, error) {
	model := a.model
	if req.Params.Model != "" {
		model = req.Params.Model
	}

	body := generationRequest{
		Prompt:      req.Prompt,
		Model:       model,
		Resolution:  req.Params.Resolution,
		AspectRatio: string(req.Params.AspectRatio),
	}
	if req.Params.DurationSec > 0 {
		body.Duration = fmt.Sprintf("%ds", min(req.Params.DurationSec, maxDuration))
	}
	if req.Params.ImageDataURI != "" {
		body.KeyFrames = &keyFrames{Frame0: &keyFrame{Type: "image", URL: req.Params.ImageDataURI}}
	}

	var created generation
	if err := a.client.DoJSON(ctx, http.MethodPost, "/generations", body, &created); err != nil {
		return generator.Source{}, err
	}
	if created.ID == "" {
		return generator.Source{}, &generator.GenerationError{Provider: providerName, Status: "rejected", Reason: "response carried no generation id"}
	}
	req.Announce(generator.StageSubmitted)
	req.Announce(generator.StageAwaitingResult)

	var videoURL string
	err := a.client.Poll(ctx, func(ctx context.Context) (bool, error) {
		var g generation
		if err := a.client.DoJSON(ctx, http.MethodGet, "/generations/"+created.ID, nil, &g); err != nil {
			return false, err
		}
		switch g.State {
		case StateCompleted:
			if g.Assets.Video == "" {
				return false, &generator.GenerationError{Provider: providerName, Status: g.State, Reason: "no video asset"}
			}
			videoURL = g.Assets.Video
			return true, nil
		case StateFailed:
			reason := g.FailureReason
			if reason == "" {
				reason = "unknown"
			}
			return false, &generator.GenerationError{Provider: providerName, Status: g.State, Reason: reason}
		}
		return false, nil
	})
	if err != nil {
		return generator.Source{}, err
	}
	return generator.URLSource(videoURL), nil
}
