package replicate

import (
	"context"
	"net/http"
	"strings"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/apiclient"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
)

const providerName = "replicate"

// Adapter runs predictions for one Replicate model.
type Adapter struct {
	client *apiclient.Client
	model  string
}

// New creates an adapter for model ("owner/name") authenticated with token.
func New(token, model string, opts ...apiclient.Option) (*Adapter, error) {
	client, err := apiclient.New(providerName, DefaultBaseURL, "Token "+token, opts...)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client, model: model}, nil
}

// Resolve creates a prediction and polls it until an output URL exists.
func (a *Adapter) Resolve(ctx context.Context, req generator.Request) (generator.Source, error) {
	model := a.model
	if req.Params.Model != "" {
		model = req.Params.Model
	}

	var created prediction
	body := predictionRequest{Input: buildInput(model, req)}
	if err := a.client.DoJSON(ctx, http.MethodPost, "/models/"+model+"/predictions", body, &created); err != nil {
		return generator.Source{}, err
	}
	if created.ID == "" {
		return generator.Source{}, &generator.GenerationError{Provider: providerName, Status: "rejected", Reason: "response carried no prediction id"}
	}
	req.Announce(generator.StageSubmitted)
	req.Announce(generator.StageAwaitingResult)

	var videoURL string
	err := a.client.Poll(ctx, func(ctx context.Context) (bool, error) {
		var p prediction
		if err := a.client.DoJSON(ctx, http.MethodGet, "/predictions/"+created.ID, nil, &p); err != nil {
			return false, err
		}
		switch p.Status {
		case StatusSucceeded:
			url, ok := p.outputURL()
			if !ok {
				return false, &generator.GenerationError{Provider: providerName, Status: p.Status, Reason: "unexpected output " + string(p.Output)}
			}
			videoURL = url
			return true, nil
		case StatusFailed, StatusCanceled:
			reason := apiclient.ErrorText(p.Error)
			if reason == "" {
				reason = "unknown"
			}
			return false, &generator.GenerationError{Provider: providerName, Status: p.Status, Reason: reason}
		}
		return false, nil
	})
	if err != nil {
		return generator.Source{}, err
	}
	return generator.URLSource(videoURL), nil
}

// buildInput translates shared params into the model family's input schema.
func buildInput(model string, req generator.Request) map[string]any {
	p := req.Params
	input := map[string]any{"prompt": req.Prompt}

	switch {
	case strings.Contains(model, "hailuo") || strings.Contains(model, "minimax"):
		res := p.Resolution
		if res != hailuoDefaultRes && res != hailuoHighRes {
			res = hailuoDefaultRes
		}
		dur := hailuoShortDuration
		if p.DurationSec >= hailuoLongThreshold {
			dur = hailuoLongDuration
		}
		if res == hailuoHighRes {
			dur = hailuoMaxResDuration
		}
		input["duration"] = dur
		input["resolution"] = res
		if p.ImageDataURI != "" {
			input["first_frame_image"] = p.ImageDataURI
		}
	case strings.Contains(model, "wan"):
		if p.AspectRatio != "" {
			input["aspect_ratio"] = string(p.AspectRatio)
		}
	case strings.Contains(model, "kling"):
		if p.AspectRatio != "" {
			input["aspect_ratio"] = string(p.AspectRatio)
		}
		if p.DurationSec > 0 {
			input["duration"] = min(p.DurationSec, klingMaxDuration)
		}
		if p.ImageDataURI != "" {
			input["start_image"] = p.ImageDataURI
		}
	}
	return input
}
