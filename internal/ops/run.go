package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkt0401/kanasub/internal/errors"
	"github.com/pkt0401/kanasub/internal/history"
	"github.com/pkt0401/kanasub/internal/oracle"
	"github.com/pkt0401/kanasub/internal/pipeline"
	"github.com/pkt0401/kanasub/internal/srt"
)

// RunInput contains parameters for the Correct and Restore operations.
type RunInput struct {
	// InputPath is the SRT file to rewrite. Bare names resolve against the
	// configured input directory (corrected directory for Restore).
	InputPath string

	// OutputPath overrides the default output location. Relative paths are
	// placed under the direction's output directory.
	OutputPath string

	// BatchSize overrides the configured batch size when > 0.
	BatchSize int

	// Strict overrides config: fail the whole file on any batch failure.
	Strict bool
}

// RunOutput contains the result of a Correct or Restore operation.
type RunOutput struct {
	RunID      string                  `json:"run_id,omitempty"`
	Direction  string                  `json:"direction"`
	InputPath  string                  `json:"input_path"`
	OutputPath string                  `json:"output_path"`
	Cues       int                     `json:"cues"`
	Batches    int                     `json:"batches"`
	Changed    int                     `json:"changed"`
	Failures   []pipeline.BatchFailure `json:"failures,omitempty"`
}

// Correct rewrites ambiguous kanji/numeral spans of an SRT file into kana
// and writes the result into the corrected directory.
func Correct(ctx context.Context, deps Deps, input RunInput) (*RunOutput, error) {
	return runFile(ctx, deps, input, oracle.DirectionCorrect)
}

// Restore maps a corrected SRT file back to its original orthography and
// writes the result into the restored directory.
func Restore(ctx context.Context, deps Deps, input RunInput) (*RunOutput, error) {
	return runFile(ctx, deps, input, oracle.DirectionRestore)
}

func runFile(ctx context.Context, deps Deps, input RunInput, direction oracle.Direction) (*RunOutput, error) {
	cfg := deps.Cfg

	if input.InputPath == "" {
		return nil, errors.NewInvalidRequest("input path is required")
	}
	if err := ensureDirs(cfg); err != nil {
		return nil, err
	}

	inputPath := ResolveInputPath(cfg, input.InputPath, direction)

	outDir := cfg.CorrectedDir
	suffix := "corrected"
	if direction == oracle.DirectionRestore {
		outDir = cfg.RestoredDir
		suffix = "restored"
	}
	outputPath := input.OutputPath
	if outputPath == "" {
		outputPath = defaultOutputPath(outDir, inputPath, suffix)
	} else if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(outDir, filepath.Base(outputPath))
	}

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(inputPath)
		}
		return nil, errors.NewInternal(fmt.Errorf("read input: %w", err))
	}

	doc, err := srt.Parse(string(raw))
	if err != nil {
		return nil, err
	}

	batchSize := input.BatchSize
	if batchSize == 0 {
		batchSize = cfg.BatchSize
	}

	runner, err := pipeline.New(deps.Store, deps.Oracle, pipeline.Options{
		BatchSize:   batchSize,
		Parallelism: cfg.Parallelism,
		MaxAttempts: cfg.MaxAttempts,
		Timeout:     time.Duration(cfg.OracleTimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	startedAt := time.Now().Unix()
	var report *pipeline.Report
	if direction == oracle.DirectionRestore {
		report, err = runner.Restore(ctx, doc)
	} else {
		report, err = runner.Correct(ctx, doc)
	}
	if err != nil {
		return nil, err
	}

	strict := input.Strict || cfg.Strict
	written := !(strict && report.Failed())
	if written {
		if err := writeOutput(outputPath, srt.Serialize(doc)); err != nil {
			return nil, err
		}
	}

	out := &RunOutput{
		Direction:  string(direction),
		InputPath:  inputPath,
		OutputPath: outputPath,
		Cues:       report.Cues,
		Batches:    report.Batches,
		Changed:    report.Changed,
		Failures:   report.Failures,
	}
	if !written {
		out.OutputPath = ""
	}

	if deps.DB != nil {
		runID, err := recordRun(deps, out, startedAt)
		if err != nil {
			return nil, err
		}
		out.RunID = runID
	}

	if strict && report.Failed() {
		f := report.Failures[0]
		return out, errors.NewPipeline(f.Batch, f.CueStart, f.CueEnd,
			fmt.Errorf("%s (strict mode, %d of %d batches failed, no output written)",
				f.Message, len(report.Failures), report.Batches))
	}

	return out, nil
}

func writeOutput(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewInternal(fmt.Errorf("create output directory: %w", err))
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.NewInternal(fmt.Errorf("write output: %w", err))
	}
	return nil
}

func recordRun(deps Deps, out *RunOutput, startedAt int64) (string, error) {
	runID, err := history.NewRunID()
	if err != nil {
		return "", errors.NewInternal(err)
	}

	run := &history.Run{
		ID:           runID,
		Direction:    out.Direction,
		InputPath:    out.InputPath,
		Model:        deps.Model,
		CueCount:     out.Cues,
		BatchCount:   out.Batches,
		ChangedCount: out.Changed,
		FailedCount:  len(out.Failures),
		StartedAt:    startedAt,
		FinishedAt:   time.Now().Unix(),
	}
	if out.OutputPath != "" {
		run.OutputPath = &out.OutputPath
	}

	failures := make([]history.Failure, 0, len(out.Failures))
	for _, f := range out.Failures {
		failures = append(failures, history.Failure{
			BatchIndex: f.Batch,
			CueStart:   f.CueStart,
			CueEnd:     f.CueEnd,
			Message:    f.Message,
		})
	}

	if err := history.InsertRun(deps.DB, run, failures); err != nil {
		return "", errors.NewInternal(err)
	}
	return runID, nil
}
