package templates

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/a11y-remediator/internal/types"
)

// readConcurrency bounds parallel file reads while building an index.
const readConcurrency = 8

// skipDirs are directory names never worth indexing.
var skipDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
	".git":         true,
	".angular":     true,
}

// Index holds every source artifact of a project, keyed by project-relative
// path with forward slashes.
type Index struct {
	Root      string
	Artifacts []*types.SourceArtifact

	byPath       map[string]*types.SourceArtifact
	usedFallback bool
}

// Get returns the artifact at a project-relative path.
func (idx *Index) Get(path string) (*types.SourceArtifact, bool) {
	a, ok := idx.byPath[path]
	return a, ok
}

// Len returns the number of indexed artifacts.
func (idx *Index) Len() int {
	return len(idx.Artifacts)
}

// UsedFallback reports whether the whole-tree HTML fallback was taken
// because the project had no component templates.
func (idx *Index) UsedFallback() bool {
	return idx.usedFallback
}

// StaticIndex returns the project's static index page artifact, if one was
// found. Document-level rules attach to it.
func (idx *Index) StaticIndex() (*types.SourceArtifact, bool) {
	for _, a := range idx.Artifacts {
		if a.Kind == types.ArtifactStatic {
			return a, true
		}
	}
	return nil, false
}

// NewIndex builds an index from already-loaded artifacts. Used where
// artifacts come from somewhere other than a project walk, such as a page
// downloaded for direct remediation.
func NewIndex(root string, artifacts []*types.SourceArtifact) *Index {
	idx := &Index{Root: root, byPath: make(map[string]*types.SourceArtifact)}
	idx.Artifacts = append(idx.Artifacts, artifacts...)
	idx.finish()
	return idx
}

type walkInventory struct {
	componentTemplates []string
	allHTML            []string
	sourceFiles        []string
	staticIndex        string
}

// BuildAngularIndex walks an Angular project and indexes its component
// templates, inline templates, and static index page. Projects without any
// component templates fall back to indexing every HTML file in the tree.
func BuildAngularIndex(root string) (*Index, error) {
	inv, err := walkProject(root, func(rel string, inv *walkInventory) {
		base := filepath.Base(rel)
		switch {
		case strings.HasSuffix(rel, ".component.html"):
			inv.componentTemplates = append(inv.componentTemplates, rel)
			inv.allHTML = append(inv.allHTML, rel)
		case strings.HasSuffix(rel, ".html"):
			inv.allHTML = append(inv.allHTML, rel)
			if base == "index.html" && isIndexLocation(rel) && (inv.staticIndex == "" || len(rel) < len(inv.staticIndex)) {
				inv.staticIndex = rel
			}
		case isComponentSource(rel, ".ts"):
			inv.sourceFiles = append(inv.sourceFiles, rel)
		}
	})
	if err != nil {
		return nil, err
	}

	idx := &Index{Root: root, byPath: make(map[string]*types.SourceArtifact)}

	templatePaths := inv.componentTemplates
	if len(templatePaths) == 0 {
		idx.usedFallback = true
		for _, rel := range inv.allHTML {
			if rel != inv.staticIndex {
				templatePaths = append(templatePaths, rel)
			}
		}
		log.Printf("[INDEX] No component templates found, falling back to %d HTML files", len(templatePaths))
	}

	if err := idx.loadArtifacts(templatePaths, types.ArtifactTemplate, NormalizeAngular); err != nil {
		return nil, err
	}
	if inv.staticIndex != "" {
		if err := idx.loadArtifacts([]string{inv.staticIndex}, types.ArtifactStatic, NormalizeAngular); err != nil {
			return nil, err
		}
	}
	if err := idx.loadInlineTemplates(inv.sourceFiles); err != nil {
		return nil, err
	}

	idx.finish()
	log.Printf("[INDEX] Indexed %d artifacts under %s", idx.Len(), root)
	return idx, nil
}

// BuildReactIndex walks a React project and indexes its component source
// files plus the static index page. Files under src/ are preferred; projects
// without a src directory are walked from the root.
func BuildReactIndex(root string) (*Index, error) {
	inv, err := walkProject(root, func(rel string, inv *walkInventory) {
		base := filepath.Base(rel)
		switch {
		case base == "index.html" && isIndexLocation(rel):
			if inv.staticIndex == "" || len(rel) < len(inv.staticIndex) {
				inv.staticIndex = rel
			}
		case isComponentSource(rel, ".js", ".jsx", ".ts", ".tsx"):
			inv.sourceFiles = append(inv.sourceFiles, rel)
		}
	})
	if err != nil {
		return nil, err
	}

	components := inv.sourceFiles
	if underSrc := filterPrefix(components, "src/"); len(underSrc) > 0 {
		components = underSrc
	}

	idx := &Index{Root: root, byPath: make(map[string]*types.SourceArtifact)}
	if err := idx.loadArtifacts(components, types.ArtifactComponent, NormalizeReact); err != nil {
		return nil, err
	}
	if inv.staticIndex != "" {
		if err := idx.loadArtifacts([]string{inv.staticIndex}, types.ArtifactStatic, NormalizeReact); err != nil {
			return nil, err
		}
	}

	idx.finish()
	log.Printf("[INDEX] Indexed %d artifacts under %s", idx.Len(), root)
	return idx, nil
}

func walkProject(root string, visit func(rel string, inv *walkInventory)) (*walkInventory, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	inv := &walkInventory{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		visit(filepath.ToSlash(rel), inv)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk project: %w", err)
	}
	return inv, nil
}

// isIndexLocation accepts index.html at the project root, directly under a
// src directory, or under a public directory. Those are the documents that
// carry the html element.
func isIndexLocation(rel string) bool {
	dir := filepath.ToSlash(filepath.Dir(rel))
	if dir == "." {
		return true
	}
	return dir == "src" || dir == "public" ||
		strings.HasSuffix(dir, "/src") || strings.HasSuffix(dir, "/public")
}

// isComponentSource accepts source files while excluding tests and
// declaration files.
func isComponentSource(rel string, exts ...string) bool {
	base := filepath.Base(rel)
	if strings.HasSuffix(base, ".d.ts") {
		return false
	}
	for _, marker := range []string{".spec.", ".test."} {
		if strings.Contains(base, marker) {
			return false
		}
	}
	for _, ext := range exts {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

func filterPrefix(paths []string, prefix string) []string {
	var out []string
	for _, p := range paths {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// loadArtifacts reads files concurrently and registers one artifact per
// file. Unreadable files are logged and skipped so one bad file does not
// abort the index.
func (idx *Index) loadArtifacts(paths []string, kind types.ArtifactKind, normalize func(string) string) error {
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(readConcurrency)

	for _, rel := range paths {
		g.Go(func() error {
			raw, err := os.ReadFile(filepath.Join(idx.Root, filepath.FromSlash(rel)))
			if err != nil {
				log.Printf("[INDEX] Skipping unreadable file %s: %v", rel, err)
				return nil
			}
			artifact := &types.SourceArtifact{
				Path:       rel,
				Kind:       kind,
				Raw:        string(raw),
				Normalized: normalize(string(raw)),
			}
			mu.Lock()
			idx.Artifacts = append(idx.Artifacts, artifact)
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// loadInlineTemplates scans component source files for template literals and
// registers each as a virtual artifact.
func (idx *Index) loadInlineTemplates(sourcePaths []string) error {
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(readConcurrency)

	for _, rel := range sourcePaths {
		g.Go(func() error {
			raw, err := os.ReadFile(filepath.Join(idx.Root, filepath.FromSlash(rel)))
			if err != nil {
				log.Printf("[INDEX] Skipping unreadable file %s: %v", rel, err)
				return nil
			}
			inlines := ExtractInlineTemplates(string(raw))
			if len(inlines) == 0 {
				return nil
			}
			mu.Lock()
			for _, inline := range inlines {
				idx.Artifacts = append(idx.Artifacts, &types.SourceArtifact{
					Path:       InlinePath(rel, inline.Ordinal),
					Kind:       types.ArtifactInline,
					Raw:        inline.Body,
					Normalized: NormalizeAngular(inline.Body),
				})
			}
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// finish sorts artifacts for deterministic iteration and builds the path
// lookup.
func (idx *Index) finish() {
	sort.Slice(idx.Artifacts, func(i, j int) bool {
		return idx.Artifacts[i].Path < idx.Artifacts[j].Path
	})
	for _, a := range idx.Artifacts {
		idx.byPath[a.Path] = a
	}
}

// CompanionPath returns the logic file that backs a template artifact: the
// host file for inline templates, the sibling .ts file for external ones.
func CompanionPath(templatePath string) (string, bool) {
	if host, _, ok := ParseInlinePath(templatePath); ok {
		return host, true
	}
	if strings.HasSuffix(templatePath, ".html") {
		return strings.TrimSuffix(templatePath, ".html") + ".ts", true
	}
	return "", false
}

// StylesheetPath returns the component stylesheet next to a template, trying
// the common extensions in order.
func StylesheetPath(root, templatePath string) (string, bool) {
	if IsInlinePath(templatePath) || !strings.HasSuffix(templatePath, ".html") {
		return "", false
	}
	base := strings.TrimSuffix(templatePath, ".html")
	for _, ext := range []string{".scss", ".css", ".sass"} {
		candidate := base + ext
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(candidate))); err == nil {
			return candidate, true
		}
	}
	return "", false
}
