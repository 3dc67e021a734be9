package ops

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkt0401/kanasub/internal/errors"
	"github.com/pkt0401/kanasub/internal/oracle/mock"
)

// TestRuns tests history listing with failures attached.
func TestRuns(t *testing.T) {
	deps, _ := setupTestDeps(t)
	writeInput(t, deps, "lecture.srt", sampleSRT)

	if _, err := Correct(context.Background(), deps, RunInput{InputPath: "lecture.srt"}); err != nil {
		t.Fatalf("correct failed: %v", err)
	}

	deps.Cfg.MaxAttempts = 1
	deps.Oracle = &mock.Oracle{Err: fmt.Errorf("model overloaded")}
	if _, err := Correct(context.Background(), deps, RunInput{InputPath: "lecture.srt"}); err != nil {
		t.Fatalf("partial correct failed: %v", err)
	}

	out, err := Runs(deps, RunsInput{})
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(out.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(out.Runs))
	}
	// Newest first: the failed run.
	if out.Runs[0].FailedCount == 0 {
		t.Errorf("expected failed run first, got %+v", out.Runs[0].Run)
	}
	if len(out.Runs[0].Failures) != out.Runs[0].FailedCount {
		t.Errorf("failures not attached: %+v", out.Runs[0])
	}
	if len(out.Runs[1].Failures) != 0 {
		t.Errorf("unexpected failures on clean run: %+v", out.Runs[1])
	}
}

// TestRunsLimitClamp tests limit defaults and the upper bound.
func TestRunsLimitClamp(t *testing.T) {
	deps, _ := setupTestDeps(t)

	out, err := Runs(deps, RunsInput{Limit: -5})
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(out.Runs) != 0 {
		t.Errorf("expected no runs, got %d", len(out.Runs))
	}

	if _, err := Runs(deps, RunsInput{Limit: MaxRunsLimit + 1}); err != nil {
		t.Errorf("oversized limit should clamp, got %v", err)
	}
}

// TestRunsWithoutDB tests that a nil DB is rejected.
func TestRunsWithoutDB(t *testing.T) {
	deps, _ := setupTestDeps(t)
	deps.DB = nil
	if _, err := Runs(deps, RunsInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
}
