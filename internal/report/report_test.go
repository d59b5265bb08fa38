package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/a11y-remediator/internal/types"
)

func TestWriteSummary_RoundTrip(t *testing.T) {
	rep := &types.RunReport{
		RunID:     "run-20260825-103000",
		StartedAt: time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC),
	}
	rep.AddComponent(types.ComponentResult{
		Path:       "src/app/banner/banner.component.html",
		Status:     types.StatusApplied,
		Violations: 3,
	})
	rep.AddComponent(types.ComponentResult{
		Path:       "src/app/nav/nav.component.html",
		Status:     types.StatusRejected,
		Reason:     "candidate shrank below the safety floor",
		Violations: 1,
	})
	rep.ChangesMap = []types.ChangeEntry{{
		Component: "src/app/banner/banner.component.html",
		Changes: map[types.ChangeKind]types.Change{
			types.ChangeTemplate: {
				Path:      "src/app/banner/banner.component.html",
				Original:  "<button></button>",
				Corrected: `<button aria-label="Open"></button>`,
				Kind:      types.ChangeTemplate,
			},
		},
	}}
	rep.FinishedAt = rep.StartedAt.Add(90 * time.Second)

	path := filepath.Join(t.TempDir(), "run_summary.json")
	require.NoError(t, WriteSummary(path, rep))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded types.RunReport
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, rep.RunID, loaded.RunID)
	assert.Equal(t, 2, loaded.Stats.Discovered)
	assert.Equal(t, 1, loaded.Stats.Updated)
	assert.Equal(t, 1, loaded.Stats.Errors)
	require.Len(t, loaded.Components, 2)
	assert.Equal(t, types.StatusApplied, loaded.Components[0].Status)
	require.Len(t, loaded.ChangesMap, 1)
	assert.Equal(t, `<button aria-label="Open"></button>`,
		loaded.ChangesMap[0].Changes[types.ChangeTemplate].Corrected)
}

func TestWriteSummary_EmptyRunStillValidates(t *testing.T) {
	rep := &types.RunReport{RunID: "run-empty"}

	path := filepath.Join(t.TempDir(), "run_summary.json")
	require.NoError(t, WriteSummary(path, rep))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"components": []`)
	assert.Contains(t, string(data), `"changes_map": []`)
}

func TestWriteSummary_RejectsInvalidReport(t *testing.T) {
	// A blank run ID violates the schema; nothing must reach disk.
	path := filepath.Join(t.TempDir(), "run_summary.json")
	err := WriteSummary(path, &types.RunReport{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteSummary_NilReport(t *testing.T) {
	err := WriteSummary(filepath.Join(t.TempDir(), "x.json"), nil)
	require.Error(t, err)
}

func TestComparisonMath(t *testing.T) {
	c := Comparison{InitialTotal: 12, FinalTotal: 4}
	assert.Equal(t, 8, c.Reduction())
	assert.InDelta(t, 66.67, c.ImprovementPercent(), 0.01)

	clean := Comparison{InitialTotal: 0, FinalTotal: 0}
	assert.Equal(t, 0, clean.Reduction())
	assert.Equal(t, 0.0, clean.ImprovementPercent())

	worse := Comparison{InitialTotal: 4, FinalTotal: 6}
	assert.Equal(t, -2, worse.Reduction())
	assert.InDelta(t, -50.0, worse.ImprovementPercent(), 0.01)
}

func TestWriteComparison(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comparison_report.html")
	c := Comparison{InitialTotal: 12, FinalTotal: 4, Elapsed: 83 * time.Second}
	require.NoError(t, WriteComparison(path, c))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, ">12<")
	assert.Contains(t, html, ">4<")
	assert.Contains(t, html, ">+8<")
	assert.Contains(t, html, "66.67%")
	assert.Contains(t, html, "1m23s")
	assert.Contains(t, html, `class="value positive"`)
}

func TestWriteComparison_Regression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comparison_report.html")
	require.NoError(t, WriteComparison(path, Comparison{InitialTotal: 4, FinalTotal: 6}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), ">-2<")
	assert.Contains(t, string(data), `class="value negative"`)
}
