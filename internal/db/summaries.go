package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/a11y-remediator/internal/types"
)

// SaveRunSummary stores the run summary JSON for a remediation run
func (db *DB) SaveRunSummary(ctx context.Context, runID uuid.UUID, report *types.RunReport) error {
	jsonBytes, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO run_summaries (run_id, summary)
		 VALUES ($1, $2)
		 ON CONFLICT (run_id) DO UPDATE SET summary = $2, created_at = NOW()`,
		runID, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}
	return nil
}

// GetRunSummary retrieves the raw run summary JSON for a run
func (db *DB) GetRunSummary(ctx context.Context, runID uuid.UUID) ([]byte, error) {
	var summary []byte
	err := db.pool.QueryRow(ctx,
		`SELECT summary FROM run_summaries WHERE run_id = $1`,
		runID,
	).Scan(&summary)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run summary: %w", err)
	}
	return summary, nil
}

// SaveComponentResult stores the terminal state of one processed component
func (db *DB) SaveComponentResult(ctx context.Context, runID uuid.UUID, res types.ComponentResult) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO component_results (run_id, path, status, reason, violations)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, path) DO UPDATE SET status = $3, reason = $4, violations = $5`,
		runID, res.Path, string(res.Status), res.Reason, res.Violations,
	)
	if err != nil {
		return fmt.Errorf("failed to save component result %s: %w", res.Path, err)
	}
	return nil
}

// ListComponentResults retrieves the component results recorded for a run
func (db *DB) ListComponentResults(ctx context.Context, runID uuid.UUID) ([]types.ComponentResult, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT path, status, COALESCE(reason, ''), violations
		 FROM component_results WHERE run_id = $1 ORDER BY path`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list component results: %w", err)
	}
	defer rows.Close()

	var results []types.ComponentResult
	for rows.Next() {
		var res types.ComponentResult
		var status string
		if err := rows.Scan(&res.Path, &status, &res.Reason, &res.Violations); err != nil {
			return nil, fmt.Errorf("failed to scan component result: %w", err)
		}
		res.Status = types.ArtifactStatus(status)
		results = append(results, res)
	}
	return results, nil
}
