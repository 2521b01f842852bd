package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewS3Mirror(t *testing.T) {
	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566", // LocalStack-like endpoint
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	mirror, err := NewS3Mirror(context.Background(), "projects", cfg)
	if err != nil {
		t.Fatalf("NewS3Mirror() error = %v", err)
	}

	if mirror.bucket != cfg.Bucket {
		t.Errorf("bucket = %v, want %v", mirror.bucket, cfg.Bucket)
	}
	if mirror.region != cfg.Region {
		t.Errorf("region = %v, want %v", mirror.region, cfg.Region)
	}
}

func TestNewS3Mirror_RequiresBucket(t *testing.T) {
	_, err := NewS3Mirror(context.Background(), "projects", S3Config{Region: "us-east-1"})
	if !errors.Is(err, ErrBucketRequired) {
		t.Errorf("expected ErrBucketRequired, got %v", err)
	}
}

func TestS3Mirror_URL(t *testing.T) {
	aws := &S3Mirror{bucket: "clips", region: "eu-west-1"}
	if got := aws.URL("a/b.mp4"); got != "https://clips.s3.eu-west-1.amazonaws.com/a/b.mp4" {
		t.Errorf("URL() = %s", got)
	}

	custom := &S3Mirror{bucket: "clips", endpoint: "http://localhost:9000"}
	if got := custom.URL("a/b.mp4"); got != "http://localhost:9000/clips/a/b.mp4" {
		t.Errorf("URL() = %s", got)
	}
}

func TestS3Mirror_Mirror_MockServer(t *testing.T) {
	// Create a mock S3 server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}

		if r.URL.Path != "/test-bucket/quick-test/videos/abc_0.mp4" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "video/mp4" {
			t.Errorf("unexpected content type: %s", ct)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if !strings.Contains(string(body), "test content") {
			t.Errorf("unexpected body: %s", string(body))
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	root := t.TempDir()
	clip := filepath.Join(root, "quick-test", "videos", "abc_0.mp4")
	if err := os.MkdirAll(filepath.Dir(clip), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(clip, []byte("test content"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	mirror, err := NewS3Mirror(context.Background(), root, cfg)
	if err != nil {
		t.Fatalf("NewS3Mirror() error = %v", err)
	}

	url, err := mirror.Mirror(context.Background(), clip)
	if err != nil {
		t.Fatalf("Mirror() error = %v", err)
	}

	expectedURL := server.URL + "/test-bucket/quick-test/videos/abc_0.mp4"
	if url != expectedURL {
		t.Errorf("url = %v, want %v", url, expectedURL)
	}
}

func TestS3Mirror_Mirror_MissingFile(t *testing.T) {
	mirror, err := NewS3Mirror(context.Background(), "", S3Config{Bucket: "b", Region: "us-east-1", Endpoint: "http://localhost:1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mirror.Mirror(context.Background(), filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
}
