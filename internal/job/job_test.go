package job

import (
	"errors"
	"sync"
	"testing"
)

func TestNewWithID(t *testing.T) {
	job := NewWithID("abc123def456", "a prompt", "grok", "quick-test", 3)

	if job.ID != "abc123def456" {
		t.Errorf("expected ID abc123def456, got %s", job.ID)
	}
	if len(job.Units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(job.Units))
	}
	for i, u := range job.Units {
		if u.Index != i {
			t.Errorf("unit %d has index %d", i, u.Index)
		}
		if u.Status != StatusQueued {
			t.Errorf("expected unit %d queued, got %s", i, u.Status)
		}
		if u.ResultPath != "" || u.Error != "" {
			t.Errorf("unit %d must not carry a result before terminal", i)
		}
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestJob_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		// Forward path
		{"queued to submitted", StatusQueued, StatusSubmitted, false},
		{"submitted to awaiting_result", StatusSubmitted, StatusAwaitingResult, false},
		{"submitted to downloading", StatusSubmitted, StatusDownloading, false},
		{"awaiting_result to downloading", StatusAwaitingResult, StatusDownloading, false},
		{"downloading to post_processing", StatusDownloading, StatusPostProcessing, false},
		{"downloading to done", StatusDownloading, StatusDone, false},
		{"post_processing to done", StatusPostProcessing, StatusDone, false},
		// Failure from every working state
		{"queued to failed", StatusQueued, StatusFailed, false},
		{"submitted to failed", StatusSubmitted, StatusFailed, false},
		{"awaiting_result to failed", StatusAwaitingResult, StatusFailed, false},
		{"downloading to failed", StatusDownloading, StatusFailed, false},
		{"post_processing to failed", StatusPostProcessing, StatusFailed, false},
		// Invalid transitions
		{"queued to downloading", StatusQueued, StatusDownloading, true},
		{"queued to done", StatusQueued, StatusDone, true},
		{"awaiting_result to submitted", StatusAwaitingResult, StatusSubmitted, true},
		{"post_processing to downloading", StatusPostProcessing, StatusDownloading, true},
		{"done to failed", StatusDone, StatusFailed, true},
		{"done to queued", StatusDone, StatusQueued, true},
		{"failed to done", StatusFailed, StatusDone, true},
		{"failed to submitted", StatusFailed, StatusSubmitted, true},
		{"unknown state", Status("bogus"), StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canTransition(tt.from, tt.to); got == tt.wantErr {
				t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, !tt.wantErr)
			}
		})
	}
}

func TestJob_Apply(t *testing.T) {
	t.Run("success path sets result path only at done", func(t *testing.T) {
		job := NewWithID("j", "p", "grok", "", 1)
		steps := []Transition{Advance(StatusSubmitted), Advance(StatusDownloading)}
		for _, s := range steps {
			if _, err := job.Apply(0, s); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		u, err := job.Apply(0, Succeed("/tmp/j_0.mp4"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.Status != StatusDone || u.ResultPath != "/tmp/j_0.mp4" || u.Error != "" {
			t.Errorf("unexpected unit %+v", u)
		}
		if job.Version != 3 {
			t.Errorf("expected version 3, got %d", job.Version)
		}
	})

	t.Run("failure sets error only", func(t *testing.T) {
		job := NewWithID("j", "p", "grok", "", 1)
		u, err := job.Apply(0, Fail("grok: authentication failed"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.Status != StatusFailed || u.Error == "" || u.ResultPath != "" {
			t.Errorf("unexpected unit %+v", u)
		}
	})

	t.Run("terminal state is final", func(t *testing.T) {
		job := NewWithID("j", "p", "grok", "", 1)
		_, _ = job.Apply(0, Fail("boom"))
		if _, err := job.Apply(0, Advance(StatusSubmitted)); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
		if job.Units[0].Error != "boom" {
			t.Errorf("rejected transition must not change the unit")
		}
	})

	t.Run("mismatched payloads are rejected", func(t *testing.T) {
		job := NewWithID("j", "p", "grok", "", 1)
		_, _ = job.Apply(0, Advance(StatusSubmitted))
		_, _ = job.Apply(0, Advance(StatusDownloading))

		if _, err := job.Apply(0, Transition{To: StatusDone}); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("done without a path: expected ErrInvalidTransition, got %v", err)
		}
		if _, err := job.Apply(0, Transition{To: StatusPostProcessing, Error: "x"}); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("working state with error: expected ErrInvalidTransition, got %v", err)
		}
		if _, err := job.Apply(0, Transition{To: StatusFailed, Error: "x", ResultPath: "/p"}); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("failed with a path: expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("unknown index", func(t *testing.T) {
		job := NewWithID("j", "p", "grok", "", 2)
		if _, err := job.Apply(2, Advance(StatusSubmitted)); !errors.Is(err, ErrUnitNotFound) {
			t.Errorf("expected ErrUnitNotFound, got %v", err)
		}
		if _, err := job.Apply(-1, Advance(StatusSubmitted)); !errors.Is(err, ErrUnitNotFound) {
			t.Errorf("expected ErrUnitNotFound, got %v", err)
		}
	})
}

func TestFail_DefaultsCause(t *testing.T) {
	if got := Fail(""); got.Error != "unknown error" {
		t.Errorf("expected default cause, got %q", got.Error)
	}
}

func TestJob_CountsAndComplete(t *testing.T) {
	job := NewWithID("j", "p", "grok", "", 3)
	if job.Complete() {
		t.Error("fresh job must not be complete")
	}

	_, _ = job.Apply(0, Fail("x"))
	_, _ = job.Apply(1, Advance(StatusSubmitted))
	_, _ = job.Apply(1, Advance(StatusDownloading))
	_, _ = job.Apply(1, Succeed("/out/j_1.mp4"))

	c := job.Counts()
	if c != (Counts{Total: 3, Running: 1, Done: 1, Failed: 1}) {
		t.Errorf("unexpected counts %+v", c)
	}
	if job.Complete() {
		t.Error("job with a queued unit must not be complete")
	}

	_, _ = job.Apply(2, Fail("y"))
	if !job.Complete() {
		t.Error("expected job to be complete")
	}
}

func TestJob_Clone(t *testing.T) {
	job := NewWithID("j", "p", "grok", "proj", 2)
	clone := job.Clone()

	clone.Units[0].Status = StatusDone
	if job.Units[0].Status != StatusQueued {
		t.Error("modifying clone must not affect original")
	}
	if clone.Project != "proj" || clone.Prompt != "p" || clone.ProviderID != "grok" {
		t.Errorf("clone lost fields: %+v", clone)
	}
}

func TestJob_ConcurrentApply(t *testing.T) {
	const units = 50
	job := NewWithID("j", "p", "grok", "", units)

	var wg sync.WaitGroup
	for i := 0; i < units; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = job.Apply(i, Advance(StatusSubmitted))
			_, _ = job.Apply(i, Advance(StatusDownloading))
			_, _ = job.Apply(i, Succeed("/out"))
			_ = job.Clone()
		}(i)
	}
	wg.Wait()

	if c := job.Counts(); c.Done != units {
		t.Errorf("expected %d done, got %+v", units, c)
	}
}
