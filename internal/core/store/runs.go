package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/namelens/listlens/internal/core"
)

// Run is a stored run header.
type Run struct {
	RunID      string     `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Properties []string   `json:"properties" yaml:"properties"`
	Totals     RunTotals  `json:"totals" yaml:"totals"`
}

// RunTotals holds the per-status counts of a run.
type RunTotals struct {
	Total   int `json:"total" yaml:"total"`
	Found   int `json:"found" yaml:"found"`
	NoMatch int `json:"no_match" yaml:"no_match"`
	Errors  int `json:"errors" yaml:"errors"`
}

// BeginRun inserts a run header. Calling it again for the same run is a no-op.
func (s *Store) BeginRun(ctx context.Context, runID string, startedAt time.Time, properties []string) error {
	if err := s.ready(); err != nil {
		return err
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return errors.New("run id is required")
	}

	encoded, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("encode run properties: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.DB.ExecContext(ctx, `INSERT INTO runs (run_id, started_at, properties)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING`,
		runID, startedAt.UTC().UnixMilli(), string(encoded))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the run with its completion time and totals.
func (s *Store) FinishRun(ctx context.Context, runID string, totals RunTotals, finishedAt time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.DB.ExecContext(ctx, `UPDATE runs
		SET finished_at = ?, total = ?, found = ?, no_match = ?, errors = ?
		WHERE run_id = ?`,
		finishedAt.UTC().UnixMilli(), totals.Total, totals.Found, totals.NoMatch, totals.Errors, runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// Record stores a single check result. A repeated list id within a run replaces the earlier row.
func (s *Store) Record(ctx context.Context, result *core.CheckResult) error {
	if err := s.ready(); err != nil {
		return err
	}
	if result == nil {
		return errors.New("result is nil")
	}
	runID := result.Provenance.RunID
	if runID == "" {
		return fmt.Errorf("result for list %s has no run id", result.Target.ListID)
	}

	matched, err := json.Marshal(result.Matched)
	if err != nil {
		return fmt.Errorf("encode matched properties: %w", err)
	}

	resolvedAt := result.Provenance.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now().UTC()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.DB.ExecContext(ctx, `INSERT INTO check_results (
			run_id, list_id, list_name, status, matched, status_code, message, error_kind, check_id, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, list_id) DO UPDATE SET
			list_name = excluded.list_name,
			status = excluded.status,
			matched = excluded.matched,
			status_code = excluded.status_code,
			message = excluded.message,
			error_kind = excluded.error_kind,
			check_id = excluded.check_id,
			resolved_at = excluded.resolved_at`,
		runID,
		result.Target.ListID,
		result.Target.Name,
		string(result.Status),
		string(matched),
		result.StatusCode,
		result.Message,
		result.ErrorKind,
		result.Provenance.CheckID,
		resolvedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert check result: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of zero or less returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `SELECT run_id, started_at, finished_at, properties, total, found, no_match, errors
		FROM runs ORDER BY started_at DESC, run_id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedAt  int64
			finishedAt sql.NullInt64
			properties string
		)
		if err := rows.Scan(&run.RunID, &startedAt, &finishedAt, &properties,
			&run.Totals.Total, &run.Totals.Found, &run.Totals.NoMatch, &run.Totals.Errors); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.UnixMilli(startedAt).UTC()
		if finishedAt.Valid {
			ts := time.UnixMilli(finishedAt.Int64).UTC()
			run.FinishedAt = &ts
		}
		if properties != "" {
			if err := json.Unmarshal([]byte(properties), &run.Properties); err != nil {
				return nil, fmt.Errorf("decode run properties: %w", err)
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListResults returns the stored results of a run ordered by list id.
func (s *Store) ListResults(ctx context.Context, runID string) ([]*core.CheckResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT list_id, list_name, status, matched, status_code, message, error_kind, check_id, resolved_at
		FROM check_results WHERE run_id = ? ORDER BY list_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query check results: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var results []*core.CheckResult
	for rows.Next() {
		var (
			result     core.CheckResult
			status     string
			matched    sql.NullString
			statusCode sql.NullInt64
			message    sql.NullString
			errorKind  sql.NullString
			checkID    sql.NullString
			resolvedAt int64
		)
		if err := rows.Scan(&result.Target.ListID, &result.Target.Name, &status, &matched,
			&statusCode, &message, &errorKind, &checkID, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scan check result: %w", err)
		}
		result.Status = core.Status(status)
		if matched.Valid && matched.String != "" && matched.String != "null" {
			if err := json.Unmarshal([]byte(matched.String), &result.Matched); err != nil {
				return nil, fmt.Errorf("decode matched properties: %w", err)
			}
		}
		result.StatusCode = int(statusCode.Int64)
		result.Message = message.String
		result.ErrorKind = errorKind.String
		result.Provenance = core.Provenance{
			CheckID:    checkID.String,
			RunID:      runID,
			ResolvedAt: time.UnixMilli(resolvedAt).UTC(),
			Source:     "store",
		}
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	core.SortResults(results)
	return results, nil
}
