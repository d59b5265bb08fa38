package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LLMCall records one round trip to the language model
type LLMCall struct {
	ID         uuid.UUID `json:"id"`
	RunID      uuid.UUID `json:"run_id"`
	CallType   string    `json:"call_type"`
	Model      string    `json:"model"`
	Prompt     string    `json:"prompt"`
	Response   string    `json:"response"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordLLMCall stores one model round trip for a run
func (db *DB) RecordLLMCall(ctx context.Context, runID uuid.UUID, callType, model, prompt, response string, duration time.Duration) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO llm_calls (run_id, call_type, model, prompt, response, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		runID, callType, model, prompt, response, duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record llm call: %w", err)
	}
	return nil
}

// ListLLMCalls retrieves the model calls recorded for a run, oldest first
func (db *DB) ListLLMCalls(ctx context.Context, runID uuid.UUID) ([]LLMCall, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, call_type, model, prompt, response, duration_ms, created_at
		 FROM llm_calls WHERE run_id = $1 ORDER BY created_at ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list llm calls: %w", err)
	}
	defer rows.Close()

	var calls []LLMCall
	for rows.Next() {
		var call LLMCall
		if err := rows.Scan(&call.ID, &call.RunID, &call.CallType, &call.Model,
			&call.Prompt, &call.Response, &call.DurationMs, &call.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan llm call: %w", err)
		}
		calls = append(calls, call)
	}
	return calls, nil
}
