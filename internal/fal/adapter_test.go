package fal

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
	a, err := New("fal-key", model, apiclient.WithBaseURL(url),
		apiclient.WithPollInterval(time.Millisecond),
		apiclient.WithBaseBackoff(time.Millisecond))
	require.NoError(t, err)
	return a
}

func TestBuildRequest(t *testing.T) {
	params := generator.Params{
		AspectRatio:  generator.AspectPortrait,
		Resolution:   "720p",
		DurationSec:  12,
		ImageDataURI: "data:image/png;base64,AA",
	}

	tests := []struct {
		model string
		want  submitRequest
	}{
		{"fal-ai/wan-25-preview/text-to-video", submitRequest{Prompt: "p", Duration: "10", Resolution: "720p", AspectRatio: "9:16"}},
		{"fal-ai/wan-25-preview/image-to-video", submitRequest{Prompt: "p", Duration: "10", Resolution: "720p", AspectRatio: "9:16", ImageURL: "data:image/png;base64,AA"}},
		{"fal-ai/kling-video/v2.5-turbo/pro", submitRequest{Prompt: "p", Duration: "10", AspectRatio: "9:16"}},
		{"fal-ai/ovi", submitRequest{Prompt: "p", AspectRatio: "9:16"}},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, buildRequest(tt.model, generator.Request{Prompt: "p", Params: params}))
		})
	}
}

func TestResolve_Success(t *testing.T) {
	const model = "fal-ai/ovi"
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Key fal-key", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/"+model:
			var body submitRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ocean at dusk", body.Prompt)
			_, _ = w.Write([]byte(`{"request_id":"abc"}`))
		case r.URL.Path == "/"+model+"/requests/abc/status":
			if atomic.AddInt32(&polls, 1) == 1 {
				_, _ = w.Write([]byte(`{"status":"IN_PROGRESS"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"COMPLETED"}`))
		case r.URL.Path == "/"+model+"/requests/abc":
			_, _ = w.Write([]byte(`{"video":{"url":"https://v3.fal.media/out.mp4"}}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	var stages []generator.Stage
	src, err := newTestAdapter(t, server.URL, model).Resolve(context.Background(), generator.Request{
		Prompt: "ocean at dusk",
		Report: func(s generator.Stage) { stages = append(stages, s) },
	})
	require.NoError(t, err)
	assert.Equal(t, "https://v3.fal.media/out.mp4", src.URL)
	assert.Len(t, stages, 2)
}

func TestResolve_UsesQueueURLs(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fal-ai/kling-video/v2.5-turbo/pro":
			_ = json.NewEncoder(w).Encode(submitResponse{
				RequestID:   "k1",
				StatusURL:   server.URL + "/fal-ai/kling-video/requests/k1/status",
				ResponseURL: server.URL + "/fal-ai/kling-video/requests/k1",
			})
		case "/fal-ai/kling-video/requests/k1/status":
			_, _ = w.Write([]byte(`{"status":"COMPLETED"}`))
		case "/fal-ai/kling-video/requests/k1":
			_, _ = w.Write([]byte(`{"output":{"url":"https://v3.fal.media/k.mp4"}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	src, err := newTestAdapter(t, server.URL, "fal-ai/kling-video/v2.5-turbo/pro").Resolve(context.Background(), generator.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "https://v3.fal.media/k.mp4", src.URL)
}

func TestResolve_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		result  string
		wantMsg string
	}{
		{"failed", `{"status":"FAILED","error":"gpu oom"}`, "", "gpu oom"},
		{"cancelled", `{"status":"CANCELLED"}`, "", "CANCELLED"},
		{"missing url", `{"status":"COMPLETED"}`, `{}`, "no video url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/fal-ai/ovi":
					_, _ = w.Write([]byte(`{"request_id":"z"}`))
				case "/fal-ai/ovi/requests/z/status":
					_, _ = w.Write([]byte(tt.status))
				default:
					_, _ = w.Write([]byte(tt.result))
				}
			}))
			defer server.Close()

			_, err := newTestAdapter(t, server.URL, "fal-ai/ovi").Resolve(context.Background(), generator.Request{Prompt: "x"})
			var ge *generator.GenerationError
			require.ErrorAs(t, err, &ge)
			assert.Contains(t, ge.Error(), tt.wantMsg)
		})
	}
}
