package ops

import (
	"github.com/pkt0401/kanasub/internal/errors"
	"github.com/pkt0401/kanasub/internal/history"
)

// Run history listing limits.
const (
	DefaultRunsLimit = 20
	MaxRunsLimit     = 100
)

// RunsInput contains parameters for the Runs operation.
type RunsInput struct {
	Limit int
}

// RunsOutput contains recent runs with their batch failures attached.
type RunsOutput struct {
	Runs []RunWithFailures `json:"runs"`
}

// RunWithFailures pairs a run record with its failure manifest.
type RunWithFailures struct {
	history.Run
	Failures []history.Failure `json:"failures,omitempty"`
}

// Runs lists recent correction/restoration runs, newest first.
func Runs(deps Deps, input RunsInput) (*RunsOutput, error) {
	if deps.DB == nil {
		return nil, errors.NewInvalidRequest("run history is not available")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultRunsLimit
	}
	if limit > MaxRunsLimit {
		limit = MaxRunsLimit
	}

	runs, err := history.ListRuns(deps.DB, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &RunsOutput{Runs: make([]RunWithFailures, 0, len(runs))}
	for _, r := range runs {
		entry := RunWithFailures{Run: r}
		if r.FailedCount > 0 {
			failures, err := history.FailuresForRun(deps.DB, r.ID)
			if err != nil {
				return nil, errors.NewInternal(err)
			}
			entry.Failures = failures
		}
		out.Runs = append(out.Runs, entry)
	}
	return out, nil
}
