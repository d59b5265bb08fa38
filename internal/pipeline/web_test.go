package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/a11y-remediator/internal/audit"
	"github.com/jonathan/a11y-remediator/internal/types"
)

func stateResult(violations ...types.Violation) *audit.Result {
	return &audit.Result{Report: &audit.Report{Violations: violations}}
}

func TestMergeStateViolations(t *testing.T) {
	imageAlt := types.Violation{RuleID: "image-alt", Selectors: []string{"img.hero"}}
	linkName := types.Violation{RuleID: "link-name", Selectors: []string{"a.cta"}}
	modalLabel := types.Violation{RuleID: "aria-dialog-name", Selectors: []string{"div.modal"}}

	merged := mergeStateViolations([]*audit.Result{
		stateResult(imageAlt, linkName),
		stateResult(imageAlt, modalLabel),
	})

	require.Len(t, merged, 3)
	assert.Equal(t, "image-alt", merged[0].RuleID)
	assert.Equal(t, "link-name", merged[1].RuleID)
	assert.Equal(t, "aria-dialog-name", merged[2].RuleID)
}

func TestMergeStateViolationsSameRuleDifferentNodes(t *testing.T) {
	merged := mergeStateViolations([]*audit.Result{
		stateResult(types.Violation{RuleID: "image-alt", Selectors: []string{"img.hero"}}),
		stateResult(types.Violation{RuleID: "image-alt", Selectors: []string{"img.footer"}}),
	})

	assert.Len(t, merged, 2)
}
