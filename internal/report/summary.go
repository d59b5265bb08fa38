// Package report writes the artifacts a run leaves behind for review: the
// machine-readable run summary and the human-readable comparison page.
package report

import (
	"encoding/json"
	"log"
	"os"

	"github.com/jonathan/a11y-remediator/internal/schemas"
	"github.com/jonathan/a11y-remediator/internal/types"
)

// WriteSummary marshals the run report, checks it against the run summary
// schema, and writes it to path. Nothing is written when validation fails;
// a summary our own schema rejects is a bug, not a report.
func WriteSummary(path string, rep *types.RunReport) error {
	if rep == nil {
		return &Error{Message: "nil run report"}
	}

	// The schema wants arrays, not null, for runs that produced nothing.
	out := *rep
	if out.Components == nil {
		out.Components = []types.ComponentResult{}
	}
	if out.ChangesMap == nil {
		out.ChangesMap = []types.ChangeEntry{}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return &Error{Message: "summary marshal failed", Cause: err}
	}
	if err := schemas.ValidateJSONString(schemas.RunSummarySchema, string(data)); err != nil {
		return &Error{Message: "summary failed schema validation", Cause: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &Error{Message: "summary write failed", Cause: err}
	}

	log.Printf("[REPORT] Run summary written to %s", path)
	return nil
}
