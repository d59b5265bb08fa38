package buildcheck

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/a11y-remediator/internal/llm"
	"github.com/jonathan/a11y-remediator/internal/prompts"
	"github.com/jonathan/a11y-remediator/internal/types"
)

const (
	// installTimeout bounds one npm install invocation.
	installTimeout = 2 * time.Minute

	// maxRepairFiles caps how many files one repair round sends to the LLM.
	maxRepairFiles = 10

	// maxErrorsPerFile caps how many error blocks are quoted per file.
	maxErrorsPerFile = 3

	// repairContentLimit caps how much file content is quoted in the prompt.
	repairContentLimit = 3000
)

var (
	// moduleNotFoundRe is the fallback for bare "Module not found" lines.
	// The opening quote must follow whitespace so the apostrophe in "Can't"
	// never starts the capture.
	moduleNotFoundRe = regexp.MustCompile(`Module not found.*?\s'([^'\s]+)'`)
	installableRe    = regexp.MustCompile(`Can't resolve '([^']+)'|Cannot find module '([^']+)'`)
	autoFixFileRe   = regexp.MustCompile(`(?:\./)?src/([^\s:]+\.(?:ts|html|scss|css|sass))`)
	errorFileRe     = regexp.MustCompile(`((?:\./)?(?:projects/[^\s:]+/)?src/[^\s:]+\.(?:ts|html|scss|css|sass))`)

	doubleCommaRe = regexp.MustCompile(`,\s*,`)
	commaSpaceRe  = regexp.MustCompile(`,\s+`)
)

// Repair attempts to clear compilation errors in three passes: mechanical
// missing-module fixes, npm install for unresolvable packages, then per-file
// LLM fixes. Mechanical fixes are written to disk immediately; LLM fixes are
// only proposed until Apply. All fixes are returned so the run report can
// account for them.
func Repair(ctx context.Context, client llm.Client, root string, buildErrors []string) []types.Change {
	if len(buildErrors) == 0 {
		return nil
	}
	log.Printf("[BUILD] Analysing %d errors for automatic fixes", len(buildErrors))
	changes := autoFixMissingModules(root, buildErrors)
	installMissingModules(ctx, root, buildErrors)
	return append(changes, repairWithLLM(ctx, client, root, buildErrors)...)
}

// Apply writes each corrected file under root. Failures are logged and
// skipped so one bad path does not discard the remaining fixes.
func Apply(root string, fixes []types.Change) int {
	applied := 0
	for _, fix := range fixes {
		full := filepath.Join(root, fix.Path)
		if err := os.WriteFile(full, []byte(fix.Corrected), 0644); err != nil {
			log.Printf("[BUILD] Could not apply fix to %s: %v", fix.Path, err)
			continue
		}
		applied++
	}
	return applied
}

// autoFixMissingModules handles the most common post-remediation breakage, a
// reference to a package that is not installed, without an LLM round trip:
// the import line is commented out and the imported symbols are removed from
// @Component imports arrays.
func autoFixMissingModules(root string, buildErrors []string) []types.Change {
	var changes []types.Change
	for _, buildErr := range buildErrors {
		if !mentionsMissingModule(buildErr) {
			continue
		}
		module := extractModuleName(buildErr)
		fileMatch := autoFixFileRe.FindStringSubmatch(buildErr)
		if module == "" || fileMatch == nil {
			log.Printf("[BUILD] Missing-module error without a usable module or path, leaving to the LLM pass")
			continue
		}

		rel := "src/" + fileMatch[1]
		full := filepath.Join(root, rel)
		raw, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		content := string(raw)
		corrected := disableModuleReferences(content, module)
		if corrected == content {
			continue
		}
		if err := os.WriteFile(full, []byte(corrected), 0644); err != nil {
			log.Printf("[BUILD] Could not write automatic fix to %s: %v", rel, err)
			continue
		}
		log.Printf("[BUILD] Commented out missing module %s in %s", module, rel)
		changes = append(changes, types.Change{
			Path:      rel,
			Original:  content,
			Corrected: corrected,
			Kind:      kindForPath(rel),
		})
	}
	return changes
}

// installMissingModules tries npm install for each package the build could
// not resolve. Best effort: a package that genuinely does not exist on npm
// falls through to the mechanical and LLM fixes.
func installMissingModules(ctx context.Context, root string, buildErrors []string) {
	var modules []string
	seen := make(map[string]bool)
	for _, buildErr := range buildErrors {
		if !mentionsMissingModule(buildErr) {
			continue
		}
		m := installableRe.FindStringSubmatch(buildErr)
		if m == nil {
			continue
		}
		module := m[1]
		if module == "" {
			module = m[2]
		}
		if module != "" && !seen[module] {
			seen[module] = true
			modules = append(modules, module)
		}
	}
	if len(modules) == 0 {
		return
	}

	log.Printf("[BUILD] %d missing modules detected, attempting npm install", len(modules))
	for _, module := range modules {
		cctx, cancel := context.WithTimeout(ctx, installTimeout)
		cmd := exec.CommandContext(cctx, "npm", "install", module)
		cmd.Dir = root
		var stderr strings.Builder
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			msg := strings.TrimSpace(stderr.String())
			if len(msg) > 200 {
				msg = msg[:200]
			}
			log.Printf("[BUILD] npm install %s failed: %v %s", module, err, msg)
		} else {
			log.Printf("[BUILD] Installed %s", module)
		}
		cancel()
	}
}

// repairWithLLM groups the remaining errors by source file and asks for a
// corrected version of each file, quoting at most maxErrorsPerFile blocks.
func repairWithLLM(ctx context.Context, client llm.Client, root string, buildErrors []string) []types.Change {
	grouped, orphaned := groupErrorsByFile(root, buildErrors)
	log.Printf("[BUILD] Errors span %d files (%d without a recognizable path)", len(grouped), orphaned)

	paths := make([]string, 0, len(grouped))
	for p := range grouped {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	if len(paths) > maxRepairFiles {
		paths = paths[:maxRepairFiles]
	}

	system := prompts.MustGet("buildcheck.json", "system-compiler")
	var changes []types.Change
	for _, rel := range paths {
		fileErrors := grouped[rel]
		if len(fileErrors) > maxErrorsPerFile {
			fileErrors = fileErrors[:maxErrorsPerFile]
		}
		raw, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			continue
		}
		original := string(raw)

		prompt := system + "\n\n" + compileFixPrompt(rel, original, fileErrors)
		response, err := client.GenerateWithImages(ctx, prompt, nil, llm.TierAdvanced)
		if err != nil {
			log.Printf("[BUILD] Fix for %s failed: %v", rel, err)
			continue
		}
		corrected := strings.TrimSpace(llm.CleanCodeFences(response))
		if corrected == "" || corrected == strings.TrimSpace(original) {
			log.Printf("[BUILD] No usable fix generated for %s", rel)
			continue
		}
		log.Printf("[BUILD] Fix generated for %s", rel)
		changes = append(changes, types.Change{
			Path:      rel,
			Original:  original,
			Corrected: corrected,
			Kind:      kindForPath(rel),
		})
	}
	return changes
}

func compileFixPrompt(rel, content string, fileErrors []string) string {
	errorsText := strings.Join(fileErrors, "\n\n")
	excerpt := content
	if len(excerpt) > repairContentLimit {
		excerpt = excerpt[:repairContentLimit]
	}

	if mentionsMissingModule(errorsText) {
		module := extractModuleName(errorsText)
		if module == "" {
			module = "unknown"
		}
		return prompts.Format(prompts.MustGet("buildcheck.json", "compile-fix-missing-module"), map[string]string{
			"FilePath": rel,
			"Errors":   errorsText,
			"Module":   module,
			"Content":  excerpt,
		})
	}
	return prompts.Format(prompts.MustGet("buildcheck.json", "compile-fix"), map[string]string{
		"FilePath": rel,
		"Errors":   errorsText,
		"Content":  excerpt,
	})
}

// groupErrorsByFile buckets error blocks by the first referenced path that
// exists under root. The second return value counts blocks that named no
// existing file.
func groupErrorsByFile(root string, buildErrors []string) (map[string][]string, int) {
	grouped := make(map[string][]string)
	orphaned := 0
	for _, buildErr := range buildErrors {
		rel := ""
		for _, line := range strings.Split(buildErr, "\n") {
			if !strings.Contains(line, "src/") && !strings.Contains(line, "projects/") {
				continue
			}
			m := errorFileRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			candidate := strings.TrimPrefix(m[1], "./")
			if _, err := os.Stat(filepath.Join(root, candidate)); err == nil {
				rel = candidate
				break
			}
		}
		if rel == "" {
			orphaned++
			continue
		}
		grouped[rel] = append(grouped[rel], buildErr)
	}
	return grouped, orphaned
}

func mentionsMissingModule(text string) bool {
	return strings.Contains(text, "Module not found") ||
		strings.Contains(text, "Cannot find module") ||
		strings.Contains(text, "Can't resolve")
}

// extractModuleName pulls the package specifier out of a resolution error,
// whichever of the three compiler phrasings produced it. The precise
// resolver phrasings are tried before the loose "Module not found" fallback
// because webpack emits both on one line.
func extractModuleName(text string) string {
	if m := installableRe.FindStringSubmatch(text); m != nil {
		for _, group := range m[1:] {
			if group != "" {
				return group
			}
		}
	}
	if m := moduleNotFoundRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// disableModuleReferences comments out imports of module and strips the
// imported symbols from @Component imports arrays, leaving a note on the
// commented line so the edit is explainable.
func disableModuleReferences(content, module string) string {
	var symbols []string
	importRe := regexp.MustCompile(`import\s+\{([^}]+)\}\s+from\s+["']` + regexp.QuoteMeta(module) + `["']`)
	if m := importRe.FindStringSubmatch(content); m != nil {
		for _, name := range strings.Split(m[1], ",") {
			if name = strings.TrimSpace(name); name != "" {
				symbols = append(symbols, name)
			}
		}
	}
	rules := symbolRules(symbols)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		switch {
		case strings.Contains(line, module) && strings.Contains(line, "import") && strings.Contains(line, "from"):
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "//") {
				continue
			}
			indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			lines[i] = fmt.Sprintf("%s// %s // Module not available: %s", indent, trimmed, module)
		case containsAnySymbol(line, symbols) && hasImportsArray(line):
			fixed := line
			for _, rule := range rules {
				fixed = rule.re.ReplaceAllString(fixed, rule.repl)
			}
			if fixed != line {
				fixed = doubleCommaRe.ReplaceAllString(fixed, ",")
				fixed = commaSpaceRe.ReplaceAllString(fixed, ", ")
			}
			lines[i] = fixed
		}
	}
	return strings.Join(lines, "\n")
}

type symbolRule struct {
	re   *regexp.Regexp
	repl string
}

// symbolRules covers the four positions a symbol can occupy in an array
// literal: between commas, last, first, and alone.
func symbolRules(symbols []string) []symbolRule {
	var rules []symbolRule
	for _, symbol := range symbols {
		q := regexp.QuoteMeta(symbol)
		rules = append(rules,
			symbolRule{regexp.MustCompile(`,\s*` + q + `\s*,`), ","},
			symbolRule{regexp.MustCompile(`,\s*` + q + `\s*\]`), "]"},
			symbolRule{regexp.MustCompile(`\[\s*` + q + `\s*,`), "["},
			symbolRule{regexp.MustCompile(`\[\s*` + q + `\s*\]`), "[]"},
		)
	}
	return rules
}

func containsAnySymbol(line string, symbols []string) bool {
	for _, symbol := range symbols {
		if strings.Contains(line, symbol) {
			return true
		}
	}
	return false
}

func hasImportsArray(line string) bool {
	return strings.Contains(line, "imports:") ||
		(strings.Contains(line, "imports") && strings.Contains(line, "["))
}

func kindForPath(rel string) types.ChangeKind {
	switch filepath.Ext(rel) {
	case ".html":
		return types.ChangeTemplate
	case ".css", ".scss", ".sass":
		return types.ChangeStylesheet
	default:
		return types.ChangeCompanion
	}
}
