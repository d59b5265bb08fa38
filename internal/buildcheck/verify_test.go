package buildcheck

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrors_EmptyOutput(t *testing.T) {
	assert.Empty(t, parseErrors(""))
}

func TestParseErrors_CleanBuild(t *testing.T) {
	output := `✔ Browser application bundle generation complete.
Initial chunk files | Names | Raw size
main.js             | main  | 1.02 MB
Build at: 2024-01-15T10:00:00.000Z`

	assert.Empty(t, parseErrors(output))
}

func TestParseErrors_AccumulatesContinuationLines(t *testing.T) {
	output := `ERROR in src/app/app.component.html:10:5
  Property 'items' does not exist on type 'AppComponent'.
  10   <li *ngFor="let item of items">`

	errs := parseErrors(output)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "ERROR in src/app/app.component.html")
	assert.Contains(t, errs[0], "does not exist on type")
	assert.Contains(t, errs[0], "*ngFor")
}

func TestParseErrors_SplitsAtNextErrorLine(t *testing.T) {
	output := `ERROR in src/app/a.component.ts:1:1
  first detail
ERROR in src/app/b.component.ts:2:2
  second detail`

	errs := parseErrors(output)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "first detail")
	assert.NotContains(t, errs[0], "second detail")
	assert.Contains(t, errs[1], "b.component.ts")
}

func TestParseErrors_BlankLineClosesSingleLineBlock(t *testing.T) {
	output := `Error: NG0301: Export of name 'ngModel' not found.

unrelated summary line
another unrelated line`

	errs := parseErrors(output)
	require.Len(t, errs, 1)
	assert.Equal(t, "Error: NG0301: Export of name 'ngModel' not found.", errs[0])
}

func TestParseErrors_BlankLineInsideBlockIsAbsorbed(t *testing.T) {
	output := `ERROR in src/app/a.component.ts
  some context

  more context after the gap`

	errs := parseErrors(output)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "more context after the gap")
}

func TestParseErrors_ModuleResolutionWithoutErrorWord(t *testing.T) {
	output := "Module not found: Can't resolve 'chart.js' in '/app/src/app'"

	errs := parseErrors(output)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "chart.js")
}

func TestParseErrors_CappedAtTwenty(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, "ERROR %d in src/app/file%d.ts\n", i, i)
	}

	errs := parseErrors(b.String())
	require.Len(t, errs, maxParsedErrors)
	assert.Contains(t, errs[19], "ERROR 19")
}

func TestIsErrorLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"ERROR in main.ts", true},
		{"src/app/a.ts:5:3 - error TS2304: Cannot find name 'x'.", true},
		{"An unexpected Error occurred", true},
		{"Module not found: 'chart.js'", true},
		{"Can't resolve '@angular/material'", true},
		{"Cannot find module 'left-pad'", true},
		{"npm ERR! code ELIFECYCLE", false},
		{"✔ Compiled successfully", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isErrorLine(tt.line), "line: %q", tt.line)
	}
}

func writeFixture(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func TestHasBuildScript(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "package.json", `{"name":"app","scripts":{"build":"ng build","test":"ng test"}}`)
	assert.True(t, hasBuildScript(root))
}

func TestHasBuildScript_NoBuildEntry(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "package.json", `{"name":"app","scripts":{"start":"ng serve"}}`)
	assert.False(t, hasBuildScript(root))
}

func TestHasBuildScript_MissingOrInvalidFile(t *testing.T) {
	assert.False(t, hasBuildScript(t.TempDir()))

	root := t.TempDir()
	writeFixture(t, root, "package.json", "{not json")
	assert.False(t, hasBuildScript(root))
}

func TestDefaultProjectName_SingleProject(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "angular.json", `{"projects":{"app":{"root":""}}}`)
	assert.Equal(t, "", defaultProjectName(root))
}

func TestDefaultProjectName_MissingFile(t *testing.T) {
	assert.Equal(t, "", defaultProjectName(t.TempDir()))
}

func TestDefaultProjectName_UsesDefaultProject(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "angular.json",
		`{"defaultProject":"site","projects":{"site":{},"site-e2e":{}}}`)
	assert.Equal(t, "site", defaultProjectName(root))
}

func TestDefaultProjectName_PrefersProjectWithBuildTarget(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "angular.json",
		`{"projects":{"docs":{"architect":{"lint":{}}},"web":{"architect":{"build":{}}}}}`)
	assert.Equal(t, "web", defaultProjectName(root))
}

func TestDefaultProjectName_StaleDefaultFallsThrough(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "angular.json",
		`{"defaultProject":"gone","projects":{"docs":{},"web":{"architect":{"build":{}}}}}`)
	assert.Equal(t, "web", defaultProjectName(root))
}

func TestDefaultProjectName_NoBuildTargetAnywhere(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "angular.json", `{"projects":{"beta":{},"alpha":{}}}`)
	assert.Equal(t, "alpha", defaultProjectName(root))
}

func TestNgBuildArgs(t *testing.T) {
	assert.Equal(t, []string{"build", "--configuration", "production"}, ngBuildArgs(""))
	assert.Equal(t, []string{"build", "site", "--configuration", "production"}, ngBuildArgs("site"))
}

func toolOnPath(names ...string) bool {
	for _, name := range names {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func TestVerify_NoToolchain(t *testing.T) {
	if toolOnPath("npm", "ng", "npx") {
		t.Skip("node toolchain present, skipping unavailability test")
	}

	res := Verify(context.Background(), t.TempDir())
	assert.True(t, res.Success)
	assert.False(t, res.Available)
	assert.Empty(t, res.Errors)
}

func TestVerify_NpmBuildScriptSucceeds(t *testing.T) {
	if !toolOnPath("npm") {
		t.Skip("npm not available, skipping build test")
	}

	root := t.TempDir()
	writeFixture(t, root, "package.json",
		`{"name":"fixture","version":"1.0.0","scripts":{"build":"exit 0"}}`)

	res := Verify(context.Background(), root)
	require.True(t, res.Available)
	assert.True(t, res.Success)
	assert.Empty(t, res.Errors)
}

func TestVerify_NpmBuildScriptCapturesErrors(t *testing.T) {
	if !toolOnPath("npm") {
		t.Skip("npm not available, skipping build test")
	}

	root := t.TempDir()
	writeFixture(t, root, "package.json",
		`{"name":"fixture","version":"1.0.0","scripts":{"build":"echo \"src/app/app.component.ts:5:3 - error TS2304: Cannot find name 'items'.\" && exit 1"}}`)

	res := Verify(context.Background(), root)
	require.True(t, res.Available)
	assert.False(t, res.Success)

	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "error TS2304") {
			found = true
			break
		}
	}
	assert.True(t, found, "expected the TS2304 line in parsed errors, got %v", res.Errors)
}
