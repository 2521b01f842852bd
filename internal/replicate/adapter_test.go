package replicate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/apiclient"
	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
)

func newTestAdapter(t *testing.T, url, model string) *Adapter {
	t.Helper()
	a, err := New("r8-token", model, apiclient.WithBaseURL(url),
		apiclient.WithPollInterval(time.Millisecond),
		apiclient.WithBaseBackoff(time.Millisecond))
	require.NoError(t, err)
	return a
}

func TestBuildInput(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		params generator.Params
		want   map[string]any
	}{
		{
			name:   "hailuo long clip at default resolution",
			model:  "minimax/hailuo-2.3",
			params: generator.Params{DurationSec: 9, AspectRatio: generator.AspectPortrait, ImageDataURI: "data:x"},
			want:   map[string]any{"prompt": "p", "duration": 10, "resolution": "768p", "first_frame_image": "data:x"},
		},
		{
			name:   "hailuo short clip",
			model:  "minimax/hailuo-2.3",
			params: generator.Params{DurationSec: 5, Resolution: "720p"},
			want:   map[string]any{"prompt": "p", "duration": 6, "resolution": "768p"},
		},
		{
			name:   "hailuo 1080p forces six seconds",
			model:  "minimax/hailuo-2.3",
			params: generator.Params{DurationSec: 10, Resolution: "1080p"},
			want:   map[string]any{"prompt": "p", "duration": 6, "resolution": "1080p"},
		},
		{
			name:   "wan sends aspect ratio only",
			model:  "wavespeedai/wan-2.1-t2v-720p",
			params: generator.Params{DurationSec: 5, AspectRatio: generator.AspectLandscape},
			want:   map[string]any{"prompt": "p", "aspect_ratio": "16:9"},
		},
		{
			name:   "kling",
			model:  "kwaivgi/kling-v2.1-master",
			params: generator.Params{DurationSec: 10, AspectRatio: generator.AspectSquare, ImageDataURI: "data:y"},
			want:   map[string]any{"prompt": "p", "aspect_ratio": "1:1", "duration": 10, "start_image": "data:y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildInput(tt.model, generator.Request{Prompt: "p", Params: tt.params})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Success(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"string output", `"https://replicate.delivery/a.mp4"`},
		{"list output", `["https://replicate.delivery/a.mp4","https://replicate.delivery/b.mp4"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var polls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Token r8-token", r.Header.Get("Authorization"))
				switch r.URL.Path {
				case "/models/kwaivgi/kling-v2.1-master/predictions":
					var body predictionRequest
					assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
					assert.Equal(t, "dancing robot", body.Input["prompt"])
					w.WriteHeader(http.StatusCreated)
					_, _ = w.Write([]byte(`{"id":"pred-1","status":"starting"}`))
				case "/predictions/pred-1":
					if atomic.AddInt32(&polls, 1) == 1 {
						_, _ = w.Write([]byte(`{"id":"pred-1","status":"processing"}`))
						return
					}
					_, _ = w.Write([]byte(`{"id":"pred-1","status":"succeeded","output":` + tt.output + `}`))
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
				}
			}))
			defer server.Close()

			src, err := newTestAdapter(t, server.URL, "kwaivgi/kling-v2.1-master").Resolve(context.Background(),
				generator.Request{Prompt: "dancing robot", Params: generator.Params{DurationSec: 5}})
			require.NoError(t, err)
			assert.Equal(t, "https://replicate.delivery/a.mp4", src.URL)
		})
	}
}

func TestResolve_Failures(t *testing.T) {
	tests := []struct {
		name   string
		poll   string
		status string
		reason string
	}{
		{"failed", `{"id":"p","status":"failed","error":"NSFW content detected"}`, StatusFailed, "NSFW content detected"},
		{"canceled", `{"id":"p","status":"canceled"}`, StatusCanceled, "unknown"},
		{"empty output", `{"id":"p","status":"succeeded","output":[]}`, StatusSucceeded, "unexpected output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodPost {
					_, _ = w.Write([]byte(`{"id":"p"}`))
					return
				}
				_, _ = w.Write([]byte(tt.poll))
			}))
			defer server.Close()

			_, err := newTestAdapter(t, server.URL, "wavespeedai/wan-2.1-t2v-720p").Resolve(context.Background(), generator.Request{Prompt: "x"})
			var ge *generator.GenerationError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tt.status, ge.Status)
			assert.Contains(t, ge.Reason, tt.reason)
		})
	}
}

func TestResolve_ValidationRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"duration must be 6 or 10"}`))
	}))
	defer server.Close()

	_, err := newTestAdapter(t, server.URL, "minimax/hailuo-2.3").Resolve(context.Background(), generator.Request{Prompt: "x"})
	var ue *generator.UnsupportedParameterError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Reason, "duration must be 6 or 10")
}
