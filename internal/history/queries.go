package history

import (
	"database/sql"
	"fmt"
)

// Run is one recorded pipeline run.
type Run struct {
	ID           string  `json:"id"`
	Direction    string  `json:"direction"`
	InputPath    string  `json:"input_path"`
	OutputPath   *string `json:"output_path,omitempty"`
	Model        string  `json:"model"`
	CueCount     int     `json:"cue_count"`
	BatchCount   int     `json:"batch_count"`
	ChangedCount int     `json:"changed_count"`
	FailedCount  int     `json:"failed_count"`
	StartedAt    int64   `json:"started_at"`
	FinishedAt   int64   `json:"finished_at"`
}

// Failure is one recorded batch failure within a run.
type Failure struct {
	RunID      string `json:"run_id,omitempty"`
	BatchIndex int    `json:"batch"`
	CueStart   int    `json:"cue_start"`
	CueEnd     int    `json:"cue_end"`
	Message    string `json:"message"`
}

// InsertRun records a completed run and its batch failures in one transaction.
func InsertRun(db *sql.DB, run *Run, failures []Failure) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin run insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, direction, input_path, output_path, model,
		  cue_count, batch_count, changed_count, failed_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Direction, run.InputPath, run.OutputPath, run.Model,
		run.CueCount, run.BatchCount, run.ChangedCount, run.FailedCount,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, f := range failures {
		_, err = tx.Exec(`
			INSERT INTO batch_failures (run_id, batch_index, cue_start, cue_end, message)
			VALUES (?, ?, ?, ?, ?)`,
			run.ID, f.BatchIndex, f.CueStart, f.CueEnd, f.Message,
		)
		if err != nil {
			return fmt.Errorf("insert batch failure: %w", err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func ListRuns(db *sql.DB, limit int) ([]Run, error) {
	rows, err := db.Query(`
		SELECT id, direction, input_path, output_path, model,
		  cue_count, batch_count, changed_count, failed_count, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var r Run
		var outputPath sql.NullString
		err := rows.Scan(&r.ID, &r.Direction, &r.InputPath, &outputPath, &r.Model,
			&r.CueCount, &r.BatchCount, &r.ChangedCount, &r.FailedCount,
			&r.StartedAt, &r.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if outputPath.Valid {
			r.OutputPath = &outputPath.String
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FailuresForRun returns the batch failures of one run, in batch order.
func FailuresForRun(db *sql.DB, runID string) ([]Failure, error) {
	rows, err := db.Query(`
		SELECT batch_index, cue_start, cue_end, message
		FROM batch_failures WHERE run_id = ? ORDER BY batch_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list batch failures: %w", err)
	}
	defer rows.Close()

	failures := make([]Failure, 0)
	for rows.Next() {
		f := Failure{RunID: runID}
		if err := rows.Scan(&f.BatchIndex, &f.CueStart, &f.CueEnd, &f.Message); err != nil {
			return nil, fmt.Errorf("scan batch failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
