// Package luma adapts the Luma Dream Machine API to generator.Adapter.
package luma

// DefaultBaseURL is the Dream Machine API root.
const DefaultBaseURL = "https://api.lumalabs.ai/dream-machine/v1"

// DefaultModel is the Ray model requested when none is configured.
const DefaultModel = "ray-2"

// Generation states.
const (
	StateQueued    = "queued"
	StateDreaming  = "dreaming"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

const maxDuration = 10

type keyFrame struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type keyFrames struct {
	Frame0 *keyFrame `json:"frame0,omitempty"`
}

// generationRequest is the body for POST /generations.
type generationRequest struct {
	Prompt      string     `json:"prompt"`
	Model       string     `json:"model"`
	Resolution  string     `json:"resolution,omitempty"`
	Duration    string     `json:"duration,omitempty"`
	AspectRatio string     `json:"aspect_ratio,omitempty"`
	KeyFrames   *keyFrames `json:"key_frames,omitempty"`
}

type generation struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason,omitempty"`
	Assets        struct {
		Video string `json:"video"`
	} `json:"assets"`
}
