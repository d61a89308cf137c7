package store

import (
	"context"
	"fmt"
	"time"
)

// Run kinds recorded in history.
const (
	RunKindEnrich     = "enrich"
	RunKindDistribute = "distribute"
)

// Run is one recorded pipeline or distribution run.
type Run struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"run_id"`
	Kind           string    `json:"kind"`
	Language       string    `json:"language,omitempty"`
	WordsRequested int       `json:"words_requested"`
	Created        int       `json:"created"`
	Duplicates     int       `json:"duplicates"`
	Errors         int       `json:"errors"`
	Detail         string    `json:"detail,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Duration reports how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecordRun appends a run to history and returns its row id.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	ctx = ensureContext(ctx)
	var id int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx,
			`INSERT INTO runs (run_id, kind, language, words_requested, created, duplicates, errors, detail, started_at, finished_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Kind, run.Language,
			run.WordsRequested, run.Created, run.Duplicates, run.Errors,
			run.Detail,
			run.StartedAt.UTC().Format(time.RFC3339),
			run.FinishedAt.UTC().Format(time.RFC3339),
		)
		if execErr != nil {
			return execErr
		}
		id, execErr = res.LastInsertId()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	return id, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, kind, language, words_requested, created, duplicates, errors, detail, started_at, finished_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                  Run
			startedAt, finishedAt string
		)
		if err := rows.Scan(
			&run.ID, &run.RunID, &run.Kind, &run.Language,
			&run.WordsRequested, &run.Created, &run.Duplicates, &run.Errors,
			&run.Detail, &startedAt, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if parsed, parseErr := time.Parse(time.RFC3339, startedAt); parseErr == nil {
			run.StartedAt = parsed
		}
		if parsed, parseErr := time.Parse(time.RFC3339, finishedAt); parseErr == nil {
			run.FinishedAt = parsed
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
