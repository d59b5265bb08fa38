package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/a11y-remediator/internal/types"
)

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildAngularIndex_FindsComponentTemplates(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "src/index.html", "<html><head></head><body></body></html>")
	writeProjectFile(t, root, "src/app/app.component.html", "<header>\n  <h1>Shop</h1>\n</header>")
	writeProjectFile(t, root, "src/app/cart/cart.component.html", "<ul class=\"cart\"></ul>")
	writeProjectFile(t, root, "src/app/app.component.ts", "export class AppComponent {}")
	writeProjectFile(t, root, "node_modules/lib/ignored.component.html", "<div>ignored</div>")

	idx, err := BuildAngularIndex(root)
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	assert.False(t, idx.UsedFallback())

	app, ok := idx.Get("src/app/app.component.html")
	require.True(t, ok)
	assert.Equal(t, types.ArtifactTemplate, app.Kind)
	assert.Contains(t, app.Raw, "<h1>Shop</h1>")
	assert.Equal(t, "<header> <h1>Shop</h1> </header>", app.Normalized)

	_, ok = idx.Get("node_modules/lib/ignored.component.html")
	assert.False(t, ok)
}

func TestBuildAngularIndex_StaticIndexPage(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "src/index.html", "<html lang=\"\"><body></body></html>")
	writeProjectFile(t, root, "src/app/app.component.html", "<div></div>")

	idx, err := BuildAngularIndex(root)
	require.NoError(t, err)

	static, ok := idx.StaticIndex()
	require.True(t, ok)
	assert.Equal(t, "src/index.html", static.Path)
	assert.Equal(t, types.ArtifactStatic, static.Kind)
}

func TestBuildAngularIndex_InlineTemplates(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "src/app/app.component.html", "<div></div>")
	writeProjectFile(t, root, "src/app/badge.component.ts",
		"@Component({ template: `<span class=\"badge\">{{ n }}</span>` })\nexport class BadgeComponent {}\n")

	idx, err := BuildAngularIndex(root)
	require.NoError(t, err)

	inline, ok := idx.Get("src/app/badge.component.ts::inline_template_1")
	require.True(t, ok)
	assert.Equal(t, types.ArtifactInline, inline.Kind)
	assert.Contains(t, inline.Raw, `class="badge"`)
}

func TestBuildAngularIndex_SkipsSpecFiles(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "src/app/app.component.html", "<div></div>")
	writeProjectFile(t, root, "src/app/badge.component.spec.ts",
		"@Component({ template: `<span>test harness</span>` })")

	idx, err := BuildAngularIndex(root)
	require.NoError(t, err)

	_, ok := idx.Get("src/app/badge.component.spec.ts::inline_template_1")
	assert.False(t, ok)
}

func TestBuildAngularIndex_WholeTreeFallback(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "index.html", "<html><body><main></main></body></html>")
	writeProjectFile(t, root, "pages/about.html", "<section>About</section>")
	writeProjectFile(t, root, "pages/contact.html", "<form></form>")

	idx, err := BuildAngularIndex(root)
	require.NoError(t, err)

	assert.True(t, idx.UsedFallback())
	assert.Equal(t, 3, idx.Len())

	about, ok := idx.Get("pages/about.html")
	require.True(t, ok)
	assert.Equal(t, types.ArtifactTemplate, about.Kind)

	static, ok := idx.StaticIndex()
	require.True(t, ok)
	assert.Equal(t, "index.html", static.Path)
}

func TestBuildAngularIndex_MissingRoot(t *testing.T) {
	_, err := BuildAngularIndex(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestBuildReactIndex_PrefersSrcTree(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "public/index.html", "<html><body><div id=\"root\"></div></body></html>")
	writeProjectFile(t, root, "src/App.jsx", "export default function App() { return <div className=\"app\" />; }")
	writeProjectFile(t, root, "src/components/Nav.jsx", "export function Nav() { return <nav />; }")
	writeProjectFile(t, root, "src/App.test.jsx", "test('renders', () => {});")
	writeProjectFile(t, root, "scripts/build.js", "console.log('build');")

	idx, err := BuildReactIndex(root)
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())

	app, ok := idx.Get("src/App.jsx")
	require.True(t, ok)
	assert.Equal(t, types.ArtifactComponent, app.Kind)

	_, ok = idx.Get("src/App.test.jsx")
	assert.False(t, ok)
	_, ok = idx.Get("scripts/build.js")
	assert.False(t, ok)

	static, ok := idx.StaticIndex()
	require.True(t, ok)
	assert.Equal(t, "public/index.html", static.Path)
}

func TestCompanionPath(t *testing.T) {
	companion, ok := CompanionPath("src/app/cart/cart.component.html")
	require.True(t, ok)
	assert.Equal(t, "src/app/cart/cart.component.ts", companion)

	companion, ok = CompanionPath("src/app/badge.component.ts::inline_template_1")
	require.True(t, ok)
	assert.Equal(t, "src/app/badge.component.ts", companion)

	_, ok = CompanionPath("src/styles.scss")
	assert.False(t, ok)
}

func TestStylesheetPath_TriesExtensionsInOrder(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "src/app/cart/cart.component.html", "<div></div>")
	writeProjectFile(t, root, "src/app/cart/cart.component.scss", ".cart {}")

	path, ok := StylesheetPath(root, "src/app/cart/cart.component.html")
	require.True(t, ok)
	assert.Equal(t, "src/app/cart/cart.component.scss", path)

	_, ok = StylesheetPath(root, "src/app/missing/missing.component.html")
	assert.False(t, ok)

	_, ok = StylesheetPath(root, "src/app/badge.component.ts::inline_template_1")
	assert.False(t, ok)
}
