// Package sora adapts the OpenAI video API to generator.Adapter. Finished
// clips are streamed back from the content endpoint instead of a URL.
package sora

import "encoding/json"

// DefaultBaseURL is the OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultModel is the video model requested when none is configured.
const DefaultModel = "sora-2"

// Video statuses.
const (
	StatusQueued     = "queued"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// allowedSeconds lists the clip lengths the API accepts.
var allowedSeconds = []int{4, 8, 12}

// createRequest is the JSON body for POST /videos.
type createRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Seconds string `json:"seconds"`
}

type video struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Error  json.RawMessage `json:"error,omitempty"`
}
