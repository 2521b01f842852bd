// Package media provides video inspection and reframing via ffmpeg.
package media

import (
	"context"
	"math"
)

// Info describes the primary video stream of a media file.
type Info struct {
	Width       int
	Height      int
	DurationSec float64
}

// Processor defines the video operations the pipeline needs after download.
type Processor interface {
	// CropToAspect center-crops src to the w:h frame shape and writes the
	// result to dst. Audio is copied without re-encoding.
	CropToAspect(ctx context.Context, src, dst string, w, h int) error

	// Probe reads the dimensions and duration of the first video stream.
	Probe(ctx context.Context, path string) (Info, error)
}

// aspectTolerance absorbs the rounding introduced by even-pixel crops.
const aspectTolerance = 0.02

// MatchesAspect reports whether the frame already has the w:h shape.
func (i Info) MatchesAspect(w, h int) bool {
	if i.Width <= 0 || i.Height <= 0 || w <= 0 || h <= 0 {
		return false
	}
	want := float64(w) / float64(h)
	got := float64(i.Width) / float64(i.Height)
	return math.Abs(got-want)/want <= aspectTolerance
}
