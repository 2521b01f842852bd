// Package replicate adapts Replicate model predictions (Hailuo, Wan, Kling)
// to generator.Adapter.
package replicate

import "encoding/json"

// DefaultBaseURL is the Replicate API root.
const DefaultBaseURL = "https://api.replicate.com/v1"

// Prediction statuses.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Model family quirks.
const (
	hailuoMaxResDuration = 6
	hailuoLongDuration   = 10
	hailuoShortDuration  = 6
	hailuoLongThreshold  = 8
	hailuoDefaultRes     = "768p"
	hailuoHighRes        = "1080p"
	klingMaxDuration     = 10
)

// predictionRequest is the body for POST /models/{owner}/{name}/predictions.
type predictionRequest struct {
	Input map[string]any `json:"input"`
}

// prediction is the shape returned both on create and on poll.
type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// outputURL extracts the video URL from an output that is either a string
// or a list whose first element is the URL.
func (p prediction) outputURL() (string, bool) {
	var s string
	if err := json.Unmarshal(p.Output, &s); err == nil && s != "" {
		return s, true
	}
	var list []string
	if err := json.Unmarshal(p.Output, &list); err == nil && len(list) > 0 && list[0] != "" {
		return list[0], true
	}
	return "", false
}
