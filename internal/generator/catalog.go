package generator

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Delivery describes how a provider hands back the finished video.
type Delivery string

const (
	// DeliveryURL providers return a fetchable URL after polling a handle.
	DeliveryURL Delivery = "url"
	// DeliveryStream providers return the video bytes directly.
	DeliveryStream Delivery = "stream"
)

// Credential requirement keys. Config maps each one to a secret.
const (
	CredentialXAI       = "xai"
	CredentialFAL       = "fal"
	CredentialLuma      = "luma"
	CredentialReplicate = "replicate"
	CredentialOpenAI    = "openai"
)

// Capabilities describes what a provider can produce.
type Capabilities struct {
	AspectRatios   []AspectRatio `yaml:"aspect_ratios" json:"aspect_ratios"`
	Delivery       Delivery      `yaml:"delivery" json:"delivery"`
	MaxDurationSec int           `yaml:"max_duration_sec" json:"max_duration_sec"`
	// LandscapeOnly providers ignore the requested aspect ratio and always
	// return 16:9; other shapes need a crop pass after download.
	LandscapeOnly bool `yaml:"landscape_only" json:"landscape_only"`
}

// Descriptor is the immutable description of one provider.
type Descriptor struct {
	ID            string       `yaml:"id" json:"id"`
	Name          string       `yaml:"name" json:"name"`
	CredentialKey string       `yaml:"credential" json:"key_id"`
	Pricing       string       `yaml:"pricing" json:"pricing,omitempty"`
	Model         string       `yaml:"model" json:"model"`
	Capabilities  Capabilities `yaml:"capabilities" json:"capabilities"`
}

// Supports reports whether the provider natively produces the ratio.
func (d Descriptor) Supports(a AspectRatio) bool {
	return slices.Contains(d.Capabilities.AspectRatios, a)
}

// NeedsReframe reports whether output for the requested ratio must be
// cropped after download.
func (d Descriptor) NeedsReframe(a AspectRatio) bool {
	if a == "" || !d.Capabilities.LandscapeOnly {
		return false
	}
	return a != AspectLandscape
}

// ValidateParams checks params against the descriptor's capabilities.
func (d Descriptor) ValidateParams(p Params) error {
	if max := d.Capabilities.MaxDurationSec; max > 0 && p.DurationSec > max {
		return &UnsupportedParameterError{
			Provider: d.ID,
			Param:    "duration",
			Reason:   fmt.Sprintf("%ds exceeds maximum of %ds", p.DurationSec, max),
		}
	}
	if p.AspectRatio == "" {
		return nil
	}
	if _, _, ok := p.AspectRatio.Parts(); !ok {
		return &UnsupportedParameterError{Provider: d.ID, Param: "aspect_ratio", Reason: fmt.Sprintf("malformed ratio %q", p.AspectRatio)}
	}
	if d.Supports(p.AspectRatio) {
		return nil
	}
	// Landscape-only output can be cropped to anything narrower.
	if d.Capabilities.LandscapeOnly && !p.AspectRatio.IsLandscape() {
		return nil
	}
	return &UnsupportedParameterError{
		Provider: d.ID,
		Param:    "aspect_ratio",
		Reason:   fmt.Sprintf("%s not supported", p.AspectRatio),
	}
}

// ErrEmptyCatalog is returned when a catalog file lists no providers.
var ErrEmptyCatalog = errors.New("generator: catalog has no providers")

var commonRatios = []AspectRatio{AspectPortrait, AspectLandscape, AspectSquare}

// DefaultCatalog returns the built-in provider descriptors in display order.
func DefaultCatalog() []Descriptor {
	return []Descriptor{
		{
			ID: "grok", Name: "Grok Imagine", CredentialKey: CredentialXAI,
			Pricing: "~$5/10s video", Model: "grok-imagine-video",
			Capabilities: Capabilities{AspectRatios: commonRatios, Delivery: DeliveryURL, MaxDurationSec: 15},
		},
		{
			ID: "rep-minimax", Name: "MiniMax Hailuo 2.3", CredentialKey: CredentialReplicate,
			Pricing: "~$0.28/video", Model: "minimax/hailuo-2.3",
			Capabilities: Capabilities{AspectRatios: []AspectRatio{AspectLandscape}, Delivery: DeliveryURL, MaxDurationSec: 10, LandscapeOnly: true},
		},
		{
			ID: "rep-wan", Name: "Wan 2.1 720p", CredentialKey: CredentialReplicate,
			Pricing: "~$0.06/sec", Model: "wavespeedai/wan-2.1-t2v-720p",
			Capabilities: Capabilities{AspectRatios: []AspectRatio{AspectPortrait, AspectLandscape}, Delivery: DeliveryURL, MaxDurationSec: 10},
		},
		{
			ID: "rep-kling", Name: "Kling v2.1", CredentialKey: CredentialReplicate,
			Pricing: "~$0.07/sec", Model: "kwaivgi/kling-v2.1-master",
			Capabilities: Capabilities{AspectRatios: commonRatios, Delivery: DeliveryURL, MaxDurationSec: 10},
		},
		{
			ID: "fal-wan", Name: "Wan 2.5 (FAL)", CredentialKey: CredentialFAL,
			Pricing: "$0.05/sec", Model: "fal-ai/wan-25-preview/text-to-video",
			Capabilities: Capabilities{AspectRatios: commonRatios, Delivery: DeliveryURL, MaxDurationSec: 10},
		},
		{
			ID: "fal-kling", Name: "Kling 2.5 (FAL)", CredentialKey: CredentialFAL,
			Pricing: "$0.07/sec", Model: "fal-ai/kling-video/v2.5-turbo/pro",
			Capabilities: Capabilities{AspectRatios: commonRatios, Delivery: DeliveryURL, MaxDurationSec: 10},
		},
		{
			ID: "fal-ovi", Name: "Ovi (FAL)", CredentialKey: CredentialFAL,
			Pricing: "$0.20/video", Model: "fal-ai/ovi",
			Capabilities: Capabilities{AspectRatios: commonRatios, Delivery: DeliveryURL, MaxDurationSec: 10},
		},
		{
			ID: "luma", Name: "Luma Ray 2", CredentialKey: CredentialLuma,
			Pricing: "~$1-2/video", Model: "ray-2",
			Capabilities: Capabilities{AspectRatios: commonRatios, Delivery: DeliveryURL, MaxDurationSec: 10},
		},
		{
			ID: "sora", Name: "Sora 2", CredentialKey: CredentialOpenAI,
			Pricing: "~$0.10/sec (720p)", Model: "sora-2",
			Capabilities: Capabilities{AspectRatios: []AspectRatio{AspectPortrait, AspectLandscape}, Delivery: DeliveryStream, MaxDurationSec: 12},
		},
	}
}

type catalogFile struct {
	Providers []Descriptor `yaml:"providers"`
}

// LoadCatalog reads provider descriptors from a YAML file of the form
//
//	providers:
//	  - id: fal-wan
//	    name: Wan 2.5 (FAL)
//	    credential: fal
//	    model: fal-ai/wan-25-preview/text-to-video
//	    capabilities: {aspect_ratios: ["9:16"], delivery: url, max_duration_sec: 10}
func LoadCatalog(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("generator: read catalog: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("generator: parse catalog: %w", err)
	}
	if len(f.Providers) == 0 {
		return nil, ErrEmptyCatalog
	}

	seen := make(map[string]bool, len(f.Providers))
	for i, d := range f.Providers {
		if d.ID == "" {
			return nil, fmt.Errorf("generator: catalog entry %d has no id", i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("generator: duplicate catalog id %q", d.ID)
		}
		seen[d.ID] = true
		if d.Capabilities.Delivery == "" {
			f.Providers[i].Capabilities.Delivery = DeliveryURL
		}
	}
	return f.Providers, nil
}
