// Command migrate creates the tables the remediation agent persists runs
// into: remediation_runs, run_summaries, component_results, and llm_calls.
// Statements are idempotent, so re-running against an existing database is
// safe.
//
// Usage:
//
//	go run cmd/tools/migrate/main.go
//
// Requires DATABASE_URL environment variable to be set.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var statements = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS remediation_runs (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		target       TEXT NOT NULL,
		flow         TEXT NOT NULL,
		run_dir      TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'running',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS run_summaries (
		run_id     UUID PRIMARY KEY REFERENCES remediation_runs(id) ON DELETE CASCADE,
		summary    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS component_results (
		run_id     UUID NOT NULL REFERENCES remediation_runs(id) ON DELETE CASCADE,
		path       TEXT NOT NULL,
		status     TEXT NOT NULL,
		reason     TEXT NOT NULL DEFAULT '',
		violations INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, path)
	)`,

	`CREATE TABLE IF NOT EXISTS llm_calls (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		run_id      UUID NOT NULL REFERENCES remediation_runs(id) ON DELETE CASCADE,
		call_type   TEXT NOT NULL,
		model       TEXT NOT NULL,
		prompt      TEXT NOT NULL,
		response    TEXT NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_remediation_runs_created_at
		ON remediation_runs (created_at DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_llm_calls_run_id
		ON llm_calls (run_id, created_at)`,
}

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "ERROR: DATABASE_URL environment variable not set")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to ping database: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Schema Migration ===")
	fmt.Println()

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Statement failed: %v\n\n%s\n", err, stmt)
			os.Exit(1)
		}
	}

	fmt.Println("  ✓ remediation_runs")
	fmt.Println("  ✓ run_summaries")
	fmt.Println("  ✓ component_results")
	fmt.Println("  ✓ llm_calls")
	fmt.Println()
	fmt.Println("=== Migration Complete ===")
}
