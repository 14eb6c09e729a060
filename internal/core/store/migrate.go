package store

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		properties TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		found INTEGER NOT NULL DEFAULT 0,
		no_match INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS check_results (
		run_id TEXT NOT NULL,
		list_id TEXT NOT NULL,
		list_name TEXT NOT NULL,
		status TEXT NOT NULL,
		matched TEXT,
		status_code INTEGER,
		message TEXT,
		error_kind TEXT,
		check_id TEXT,
		resolved_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, list_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_check_results_status ON check_results(run_id, status);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}
	return nil
}
