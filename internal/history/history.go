// Package history persists run summaries to a SQLite database under the
// repository's .sqfix directory, so past runs can be reviewed from the CLI.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"sqfix/internal/workflow"
)

// RunSummary is one recorded run.
type RunSummary struct {
	RunID       string    `json:"runId"`
	Provider    string    `json:"provider"`
	DryRun      bool      `json:"dryRun"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	SuccessRate float64   `json:"successRate"`
}

// FixRecord is one per-issue outcome within a run.
type FixRecord struct {
	RunID      string `json:"runId"`
	IssueKey   string `json:"issueKey"`
	FilePath   string `json:"filePath"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Iterations int    `json:"iterations"`
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database under repoRoot/.sqfix.
func Open(repoRoot string) (*Store, error) {
	dir := filepath.Join(repoRoot, ".sqfix")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			dry_run INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			success_rate REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fixes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			issue_key TEXT NOT NULL,
			file_path TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			iterations INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_fixes_run ON fixes(run_id)`,
	}
	for _, stmt := range tables {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun stores a finished run and all its per-issue outcomes.
func (s *Store) RecordRun(report *workflow.Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	dryRun := 0
	if report.DryRun {
		dryRun = 1
	}
	_, err = tx.Exec(`
		INSERT INTO runs (run_id, provider, dry_run, started_at, finished_at, total, succeeded, failed, success_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID, report.Provider, dryRun,
		report.StartedAt.Format(time.RFC3339), report.FinishedAt.Format(time.RFC3339),
		report.Total, report.Succeeded, report.Failed, report.SuccessRate,
	)
	if err != nil {
		return err
	}

	for _, fix := range report.Fixes {
		if _, err := tx.Exec(`
			INSERT INTO fixes (run_id, issue_key, file_path, status, error, iterations)
			VALUES (?, ?, ?, ?, '', ?)
		`, report.RunID, fix.IssueKey, fix.FilePath, string(fix.Status), fix.Iterations); err != nil {
			return err
		}
	}
	for _, failure := range report.Failures {
		if _, err := tx.Exec(`
			INSERT INTO fixes (run_id, issue_key, file_path, status, error, iterations)
			VALUES (?, ?, ?, ?, ?, ?)
		`, report.RunID, failure.IssueKey, failure.FilePath, string(failure.Status), failure.Error, failure.Iterations); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT run_id, provider, dry_run, started_at, finished_at, total, succeeded, failed, success_rate
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var dryRun int
		var startedAt, finishedAt string
		if err := rows.Scan(&r.RunID, &r.Provider, &dryRun, &startedAt, &finishedAt,
			&r.Total, &r.Succeeded, &r.Failed, &r.SuccessRate); err != nil {
			return nil, err
		}
		r.DryRun = dryRun != 0
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListFixes returns the per-issue outcomes of one run.
func (s *Store) ListFixes(runID string) ([]FixRecord, error) {
	rows, err := s.db.Query(`
		SELECT run_id, issue_key, file_path, status, error, iterations
		FROM fixes
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixes []FixRecord
	for rows.Next() {
		var f FixRecord
		var errStr sql.NullString
		if err := rows.Scan(&f.RunID, &f.IssueKey, &f.FilePath, &f.Status, &errStr, &f.Iterations); err != nil {
			return nil, err
		}
		if errStr.Valid {
			f.Error = errStr.String
		}
		fixes = append(fixes, f)
	}
	return fixes, rows.Err()
}
