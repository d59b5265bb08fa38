// Package types provides type definitions for structured data used throughout the a11y-remediator system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// RunStats aggregates counters for one processing run.
type RunStats struct {
	Discovered int `json:"discovered"`
	Updated    int `json:"updated"`
	Errors     int `json:"errors"`
	Unmapped   int `json:"unmapped,omitempty"`
}

// ComponentResult records the terminal state of one processed artifact.
type ComponentResult struct {
	Path       string         `json:"path"`
	Status     ArtifactStatus `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Violations int            `json:"violations"`
}

// ChangeEntry groups the changes produced for one component, keyed by the
// artifact family each change touches.
type ChangeEntry struct {
	Component string                `json:"component"`
	Changes   map[ChangeKind]Change `json:"changes"`
}

// RunReport is the persisted audit trail of one run: per-artifact terminal
// states, counters, and the full change list.
type RunReport struct {
	RunID      string            `json:"run_id"`
	Stats      RunStats          `json:"stats"`
	Components []ComponentResult `json:"components"`
	ChangesMap []ChangeEntry     `json:"changes_map"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	BuildOK    *bool             `json:"build_ok,omitempty"`
}

// Elapsed returns the wall-clock duration of the run.
func (r RunReport) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// AddComponent appends a component result and keeps the counters consistent.
func (r *RunReport) AddComponent(res ComponentResult) {
	r.Components = append(r.Components, res)
	r.Stats.Discovered++
	switch res.Status {
	case StatusApplied:
		r.Stats.Updated++
	case StatusError, StatusRejected:
		r.Stats.Errors++
	}
}
