// Package buildcheck verifies that the target project still compiles and
// repairs compilation errors, both pre-existing ones and ones introduced by
// an applied remediation.
package buildcheck

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// buildTimeout bounds a single build invocation.
	buildTimeout = 5 * time.Minute

	// maxParsedErrors caps how many error blocks are extracted from one
	// build output.
	maxParsedErrors = 20
)

// Result reports one build attempt. Available is false when no build tool
// could be located, in which case Success is true so a missing toolchain
// never blocks the run.
type Result struct {
	Success   bool     `json:"success"`
	Available bool     `json:"available"`
	Errors    []string `json:"errors"`
	Output    string   `json:"-"`
}

// Verify compiles the project under root and reports whether it builds.
// Strategies are tried in order: npm run build (when package.json declares a
// build script), ng build, npx @angular/cli build, then the project-local
// node_modules/.bin/ng. Errors are parsed from the output even when the
// build exits zero, since template type errors can survive a "successful"
// build.
func Verify(ctx context.Context, root string) *Result {
	project := defaultProjectName(root)
	if project != "" {
		log.Printf("[BUILD] Multi-project workspace, building %s", project)
	}

	var fallback *Result
	if hasBuildScript(root) {
		log.Printf("[BUILD] Verifying with npm run build")
		if res, ran := runBuild(ctx, root, "npm", "run", "build"); ran {
			if res.Success || len(res.Errors) > 0 {
				return res
			}
			// Failed without a parseable error; ng output is usually richer.
			fallback = res
		}
	}

	args := ngBuildArgs(project)
	log.Printf("[BUILD] Verifying with ng %s", strings.Join(args, " "))
	if res, ran := runBuild(ctx, root, "ng", args...); ran {
		return res
	}
	if fallback != nil {
		return fallback
	}

	log.Printf("[BUILD] Verifying with npx @angular/cli")
	if res, ran := runBuild(ctx, root, "npx", append([]string{"-y", "@angular/cli"}, args...)...); ran {
		return res
	}

	localNg := filepath.Join(root, "node_modules", ".bin", "ng")
	if _, err := os.Stat(localNg); err == nil {
		log.Printf("[BUILD] Verifying with %s", localNg)
		if res, ran := runBuild(ctx, root, localNg, args...); ran {
			return res
		}
	}

	log.Printf("[BUILD] No build tool found (npm, ng, npx), continuing without verification")
	return &Result{Success: true, Available: false, Errors: []string{}}
}

func ngBuildArgs(project string) []string {
	args := []string{"build"}
	if project != "" {
		args = append(args, project)
	}
	return append(args, "--configuration", "production")
}

// runBuild executes one build command under root. The second return value is
// false when the binary itself could not be found, so the caller can move on
// to the next strategy.
func runBuild(ctx context.Context, root, name string, args ...string) (*Result, bool) {
	cctx, cancel := context.WithTimeout(ctx, buildTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	cmd.Dir = root

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if errors.Is(runErr, exec.ErrNotFound) {
		return nil, false
	}
	if cctx.Err() == context.DeadlineExceeded {
		log.Printf("[BUILD] %s timed out after %s", name, buildTimeout)
	}

	output := stderr.String() + stdout.String()
	parsed := parseErrors(output)
	if len(parsed) > 0 {
		log.Printf("[BUILD] Build completed with %d errors", len(parsed))
	} else if runErr != nil {
		log.Printf("[BUILD] Build failed: %v", runErr)
	}

	return &Result{
		Success:   runErr == nil && len(parsed) == 0,
		Available: true,
		Errors:    parsed,
		Output:    output,
	}, true
}

// hasBuildScript reports whether package.json under root declares a build
// script.
func hasBuildScript(root string) bool {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return false
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}
	_, ok := pkg.Scripts["build"]
	return ok
}

// defaultProjectName resolves which project to build in a multi-project
// workspace. Returns "" for single-project workspaces, where naming the
// project is unnecessary.
func defaultProjectName(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "angular.json"))
	if err != nil {
		return ""
	}
	var cfg struct {
		DefaultProject string                     `json:"defaultProject"`
		Projects       map[string]json.RawMessage `json:"projects"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ""
	}
	if len(cfg.Projects) <= 1 {
		return ""
	}
	if cfg.DefaultProject != "" {
		if _, ok := cfg.Projects[cfg.DefaultProject]; ok {
			return cfg.DefaultProject
		}
	}

	names := make([]string, 0, len(cfg.Projects))
	for name := range cfg.Projects {
		names = append(names, name)
	}
	sort.Strings(names)

	// Prefer the first project that declares a build target.
	for _, name := range names {
		var proj struct {
			Architect map[string]json.RawMessage `json:"architect"`
		}
		if err := json.Unmarshal(cfg.Projects[name], &proj); err != nil {
			continue
		}
		if _, ok := proj.Architect["build"]; ok {
			return name
		}
	}
	return names[0]
}

// parseErrors extracts error blocks from raw build output. A block starts at
// any line mentioning an error or an unresolvable module and accumulates
// continuation lines until the next error line; a blank line closes a block
// that never grew past its opening line.
func parseErrors(output string) []string {
	var blocks []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(output, "\n") {
		if isErrorLine(line) {
			flush()
			current = append(current, line)
			continue
		}
		if len(current) == 0 {
			continue
		}
		if strings.TrimSpace(line) == "" {
			if len(current) > 1 {
				current = append(current, line)
			} else {
				flush()
			}
			continue
		}
		current = append(current, line)
	}
	flush()

	kept := blocks[:0]
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			kept = append(kept, b)
		}
	}
	if len(kept) > maxParsedErrors {
		kept = kept[:maxParsedErrors]
	}
	return kept
}

// isErrorLine is deliberately broad: webpack, the TypeScript compiler, and
// the Angular CLI disagree on casing and prefixes, and module resolution
// failures sometimes omit the word entirely.
func isErrorLine(line string) bool {
	if strings.Contains(strings.ToUpper(line), "ERROR") {
		return true
	}
	return strings.Contains(line, "Module not found") ||
		strings.Contains(line, "Can't resolve") ||
		strings.Contains(line, "Cannot find module")
}
