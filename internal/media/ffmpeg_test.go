package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}
}

// createTestVideo creates a short solid-color clip with silent audio.
func createTestVideo(t *testing.T, path string, width, height int) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=blue:s=%dx%d:d=1", width, height),
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=mono:d=1",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestNewFFmpegProcessor(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		p := NewFFmpegProcessor("")
		if p.ffmpegPath != "ffmpeg" {
			t.Errorf("expected default path 'ffmpeg', got %q", p.ffmpegPath)
		}
		if p.ffprobePath != "ffprobe" {
			t.Errorf("expected default ffprobe path, got %q", p.ffprobePath)
		}
	})

	t.Run("custom path", func(t *testing.T) {
		p := NewFFmpegProcessor("/usr/local/bin/ffmpeg")
		if p.ffmpegPath != "/usr/local/bin/ffmpeg" {
			t.Errorf("expected custom path, got %q", p.ffmpegPath)
		}
		if p.ffprobePath != "/usr/local/bin/ffprobe" {
			t.Errorf("expected sibling ffprobe, got %q", p.ffprobePath)
		}
	})

	t.Run("explicit ffprobe", func(t *testing.T) {
		p := NewFFmpegProcessor("/opt/ffmpeg").WithFFprobePath("/usr/bin/ffprobe")
		if p.ffprobePath != "/usr/bin/ffprobe" {
			t.Errorf("expected explicit ffprobe, got %q", p.ffprobePath)
		}
		if NewFFmpegProcessor("").WithFFprobePath("").ffprobePath != "ffprobe" {
			t.Error("empty override must keep the derived path")
		}
	})
}

func TestCropFilter(t *testing.T) {
	tests := []struct {
		w, h int
		want string
	}{
		{9, 16, "crop=trunc(ih*9/16/2)*2:ih"},
		{1, 1, "crop=trunc(min(iw\\,ih*1/1)/2)*2:trunc(min(ih\\,iw*1/1)/2)*2"},
	}
	for _, tt := range tests {
		if got := CropFilter(tt.w, tt.h); got != tt.want {
			t.Errorf("CropFilter(%d, %d) = %q, want %q", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestInfo_MatchesAspect(t *testing.T) {
	tests := []struct {
		info Info
		w, h int
		want bool
	}{
		{Info{Width: 720, Height: 1280}, 9, 16, true},
		{Info{Width: 404, Height: 720}, 9, 16, true},
		{Info{Width: 1280, Height: 720}, 9, 16, false},
		{Info{Width: 1280, Height: 720}, 16, 9, true},
		{Info{}, 9, 16, false},
	}
	for _, tt := range tests {
		if got := tt.info.MatchesAspect(tt.w, tt.h); got != tt.want {
			t.Errorf("%+v.MatchesAspect(%d, %d) = %v, want %v", tt.info, tt.w, tt.h, got, tt.want)
		}
	}
}

func TestCropToAspect(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	p := NewFFmpegProcessor("")

	t.Run("landscape to portrait", func(t *testing.T) {
		src := filepath.Join(tmpDir, "landscape.mp4")
		dst := filepath.Join(tmpDir, "portrait.mp4")
		createTestVideo(t, src, 320, 180)

		if err := p.CropToAspect(context.Background(), src, dst, 9, 16); err != nil {
			t.Fatalf("CropToAspect failed: %v", err)
		}

		info, err := p.Probe(context.Background(), dst)
		if err != nil {
			t.Fatalf("Probe failed: %v", err)
		}
		if info.Height != 180 {
			t.Errorf("expected height 180, got %d", info.Height)
		}
		if info.Width != 100 {
			t.Errorf("expected even width 100, got %d", info.Width)
		}
		if !info.MatchesAspect(9, 16) {
			t.Errorf("expected 9:16 output, got %dx%d", info.Width, info.Height)
		}
	})

	t.Run("invalid dimensions", func(t *testing.T) {
		err := p.CropToAspect(context.Background(), "a.mp4", "b.mp4", 0, 16)
		if !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("expected ErrInvalidDimensions, got %v", err)
		}
	})

	t.Run("non-existent source", func(t *testing.T) {
		err := p.CropToAspect(context.Background(), "/nonexistent/video.mp4", filepath.Join(tmpDir, "out.mp4"), 9, 16)
		if err == nil {
			t.Fatal("expected error for non-existent source, got nil")
		}
		var ffErr *FFmpegError
		if !errors.As(err, &ffErr) {
			t.Fatalf("expected FFmpegError, got %T", err)
		}
		if ffErr.Diagnostic() == "" {
			t.Error("expected a diagnostic line from stderr")
		}
	})

	t.Run("context timeout", func(t *testing.T) {
		src := filepath.Join(tmpDir, "timeout.mp4")
		createTestVideo(t, src, 320, 180)

		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-1*time.Second))
		defer cancel()

		if err := p.CropToAspect(ctx, src, filepath.Join(tmpDir, "timeout_out.mp4"), 9, 16); err == nil {
			t.Error("expected error for timed out context, got nil")
		}
	})
}

func TestProbe(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	p := NewFFmpegProcessor("")

	t.Run("reads dimensions", func(t *testing.T) {
		src := filepath.Join(tmpDir, "probe.mp4")
		createTestVideo(t, src, 128, 96)

		info, err := p.Probe(context.Background(), src)
		if err != nil {
			t.Fatalf("Probe failed: %v", err)
		}
		if info.Width != 128 || info.Height != 96 {
			t.Errorf("expected 128x96, got %dx%d", info.Width, info.Height)
		}
		if info.DurationSec <= 0 {
			t.Errorf("expected positive duration, got %f", info.DurationSec)
		}
	})

	t.Run("not a video", func(t *testing.T) {
		path := filepath.Join(tmpDir, "garbage.mp4")
		if err := os.WriteFile(path, []byte("not a video"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := p.Probe(context.Background(), path); err == nil {
			t.Error("expected error for garbage input, got nil")
		}
	})
}

func TestFFmpegError(t *testing.T) {
	err := &FFmpegError{
		Args:   []string{"-i", "input.mp4", "-vf", "crop=1:1", "output.mp4"},
		Stderr: "ffmpeg version 6.1\n  built with gcc\ninput.mp4: Invalid data found when processing input\n",
		Err:    fmt.Errorf("exit status 1"),
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "exit status 1") {
		t.Error("Error() should contain underlying error")
	}
	if !strings.Contains(errStr, "Invalid data found") {
		t.Error("Error() should contain stderr")
	}

	if got := err.Diagnostic(); got != "input.mp4: Invalid data found when processing input" {
		t.Errorf("Diagnostic() = %q", got)
	}

	if unwrapped := err.Unwrap(); unwrapped == nil || unwrapped.Error() != "exit status 1" {
		t.Errorf("Unwrap() returned wrong error: %v", unwrapped)
	}

	empty := &FFmpegError{Err: fmt.Errorf("signal: killed")}
	if got := empty.Diagnostic(); got != "signal: killed" {
		t.Errorf("Diagnostic() without stderr = %q", got)
	}
}
