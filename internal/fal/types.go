// Package fal adapts the FAL.ai queue API (Wan, Kling, Ovi) to
// generator.Adapter.
package fal

// DefaultBaseURL is the FAL queue root.
const DefaultBaseURL = "https://queue.fal.run"

// Queue statuses.
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusCancelled  = "CANCELLED"
)

const maxDuration = 10

// submitRequest is the body for POST /{model}. Fields a model does not
// accept are left empty and omitted.
type submitRequest struct {
	Prompt      string `json:"prompt"`
	Duration    string `json:"duration,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type videoFile struct {
	URL string `json:"url"`
}

type resultResponse struct {
	Video  *videoFile `json:"video,omitempty"`
	Output *videoFile `json:"output,omitempty"`
}
