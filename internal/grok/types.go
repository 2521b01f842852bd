// Package grok adapts the xAI Grok Imagine video API to generator.Adapter.
package grok

import "encoding/json"

// DefaultBaseURL is the xAI API root.
const DefaultBaseURL = "https://api.x.ai/v1"

// DefaultModel is the video model used when the request names none.
const DefaultModel = "grok-imagine-video"

// Status values reported by the poll endpoint.
const (
	StatusPending = "pending"
	StatusExpired = "expired"
)

type imageRef struct {
	URL string `json:"url"`
}

// generateRequest is the body for POST /videos/generations.
type generateRequest struct {
	Model       string    `json:"model"`
	Prompt      string    `json:"prompt"`
	Duration    int       `json:"duration,omitempty"`
	AspectRatio string    `json:"aspect_ratio,omitempty"`
	Resolution  string    `json:"resolution,omitempty"`
	Image       *imageRef `json:"image,omitempty"`
}

type generateResponse struct {
	RequestID string `json:"request_id"`
}

// videoResponse is returned by GET /videos/{request_id}. The video field
// appears only once generation has finished.
type videoResponse struct {
	Status string `json:"status"`
	Video  *struct {
		URL string `json:"url"`
	} `json:"video,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}
