package audit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.NotNil(t, opts)
	assert.Equal(t, DefaultMaxRetries, opts.MaxRetries)
	assert.Equal(t, DefaultRetryDelay, opts.RetryDelay)
	assert.Equal(t, DefaultPageLoadWait, opts.PageLoadWait)
	assert.Equal(t, DefaultPollTimeout, opts.PollTimeout)
}

func TestNewRunner_NilOptionsUsesDefaults(t *testing.T) {
	r := NewRunner(&fakePage{}, "// engine", nil)
	require.NotNil(t, r.opts)
	assert.Equal(t, DefaultMaxRetries, r.opts.MaxRetries)
}

func TestStartExpression_IncludesRunTags(t *testing.T) {
	expr := startExpression()

	for _, tag := range runTags {
		assert.Contains(t, expr, `"`+tag+`"`)
	}
	assert.Contains(t, expr, "window.__a11yAuditDone")
	assert.Contains(t, expr, "window.__a11yAuditResults")
	assert.True(t, strings.Contains(expr, "axe.run(document"))
}

func TestRunTags_CoverWCAGLevels(t *testing.T) {
	joined := strings.Join(runTags, " ")
	assert.Contains(t, joined, "wcag2a")
	assert.Contains(t, joined, "wcag2aa")
	assert.Contains(t, joined, "wcag21aa")
	assert.Contains(t, joined, "wcag22aa")
}
