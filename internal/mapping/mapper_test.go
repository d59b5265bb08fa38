package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/a11y-remediator/internal/templates"
	"github.com/jonathan/a11y-remediator/internal/types"
)

func templateArtifact(path, raw string) *types.SourceArtifact {
	return &types.SourceArtifact{
		Path:       path,
		Kind:       types.ArtifactTemplate,
		Raw:        raw,
		Normalized: templates.NormalizeAngular(raw),
	}
}

func componentArtifact(path, raw string) *types.SourceArtifact {
	return &types.SourceArtifact{
		Path:       path,
		Kind:       types.ArtifactComponent,
		Raw:        raw,
		Normalized: templates.NormalizeReact(raw),
	}
}

func staticArtifact(path, raw string) *types.SourceArtifact {
	return &types.SourceArtifact{
		Path:       path,
		Kind:       types.ArtifactStatic,
		Raw:        raw,
		Normalized: templates.NormalizeAngular(raw),
	}
}

func TestMap_NormalizedSubstringMatch(t *testing.T) {
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		templateArtifact("src/app/hero.component.html",
			"<section>\n  <button class=\"cta\">Buy now</button>\n</section>"),
		templateArtifact("src/app/other.component.html", "<footer>something else</footer>"),
	})
	mapper := NewAngularMapper(idx)

	result := mapper.Map([]types.Violation{{
		RuleID:       "button-name",
		Impact:       types.ImpactCritical,
		Selectors:    []string{"button.cta"},
		HTMLFragment: `<button _ngcontent-abc-c12="" class="cta">Buy now</button>`,
	}})

	require.Len(t, result.Entries, 1)
	assert.Empty(t, result.Unmapped)
	entry := result.Entries[0]
	assert.Equal(t, "src/app/hero.component.html", entry.Path)
	require.Len(t, entry.Violations, 1)
	assert.Equal(t, "normalized-substring", entry.Violations[0].MatchMethod)
}

func TestMap_RawSubstringFallsBackWhenNormalizedMisses(t *testing.T) {
	artifact := &types.SourceArtifact{
		Path:       "src/app/export.component.html",
		Kind:       types.ArtifactTemplate,
		Raw:        `<div _ngcontent-exported="" class="card">kept verbatim</div>`,
		Normalized: "totally different after custom processing",
	}
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{artifact})
	mapper := NewAngularMapper(idx)

	result := mapper.Map([]types.Violation{{
		RuleID:       "color-contrast",
		HTMLFragment: `<div _ngcontent-exported="" class="card">kept verbatim</div>`,
		Selectors:    []string{".card"},
	}})

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "raw-substring", result.Entries[0].Violations[0].MatchMethod)
}

func TestMap_SelectorDecomposition(t *testing.T) {
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		templateArtifact("src/app/cart.component.html",
			`<span id="main-cart" class="cart-badge" [matBadge]="count"></span>`),
		templateArtifact("src/app/nav.component.html", `<nav class="top-nav"></nav>`),
	})
	mapper := NewAngularMapper(idx)

	// Fragment text differs from the source because of bindings, so only the
	// selector can place it.
	result := mapper.Map([]types.Violation{{
		RuleID:       "aria-valid-attr-value",
		Selectors:    []string{"span.cart-badge#main-cart"},
		HTMLFragment: `<span id="main-cart" class="cart-badge" aria-describedby="cdk-describedby-1">3</span>`,
	}})

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "src/app/cart.component.html", result.Entries[0].Path)
	assert.Equal(t, "selector-parts", result.Entries[0].Violations[0].MatchMethod)
}

func TestMap_DocumentLanguageRoutesToStaticIndex(t *testing.T) {
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		templateArtifact("src/app/app.component.html", "<router-outlet></router-outlet>"),
		staticArtifact("src/index.html", "<html><head></head><body></body></html>"),
	})
	mapper := NewAngularMapper(idx)

	result := mapper.Map([]types.Violation{{
		RuleID:       "html-has-lang",
		Selectors:    []string{"html"},
		HTMLFragment: "<html><head></head><body></body></html>",
	}})

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "src/index.html", result.Entries[0].Path)
	assert.Equal(t, MethodDocument, result.Entries[0].Violations[0].MatchMethod)
}

func TestMap_NonLanguageRuleOnHTMLWalksCascade(t *testing.T) {
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		templateArtifact("src/app/app.component.html", `<div class="page-shell">content</div>`),
		staticArtifact("src/index.html", "<html><head></head><body></body></html>"),
	})
	mapper := NewAngularMapper(idx)

	result := mapper.Map([]types.Violation{{
		RuleID:       "landmark-one-main",
		Selectors:    []string{"html"},
		HTMLFragment: `<div class="page-shell">content</div>`,
	}})

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "src/app/app.component.html", result.Entries[0].Path)
}

func TestMap_DocumentRuleWithoutStaticIndexIsUnmapped(t *testing.T) {
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		templateArtifact("src/app/app.component.html", "<div></div>"),
	})
	mapper := NewAngularMapper(idx)

	result := mapper.Map([]types.Violation{{
		RuleID:    "html-lang-valid",
		Selectors: []string{"html"},
	}})

	assert.Empty(t, result.Entries)
	assert.Len(t, result.Unmapped, 1)
}

func TestMap_AmbiguousMatchAttributesToAllCandidates(t *testing.T) {
	shared := "<button class=\"icon-btn\"><i class=\"fa fa-trash\"></i></button>"
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		templateArtifact("src/app/list.component.html", "<ul>"+shared+"</ul>"),
		templateArtifact("src/app/grid.component.html", "<table>"+shared+"</table>"),
	})
	mapper := NewAngularMapper(idx)

	result := mapper.Map([]types.Violation{{
		RuleID:       "button-name",
		Selectors:    []string{"button.icon-btn"},
		HTMLFragment: shared,
	}})

	require.Len(t, result.Entries, 2)
	assert.Equal(t, 2, result.MappedCount())
	assert.Empty(t, result.Unmapped)
	for _, entry := range result.Entries {
		require.Len(t, entry.Violations, 1)
		assert.Equal(t, "button-name", entry.Violations[0].Violation.RuleID)
	}
}

func TestMap_NoMatchIsReportedNotGuessed(t *testing.T) {
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		templateArtifact("src/app/app.component.html", "<main><h1>Home</h1></main>"),
	})
	mapper := NewAngularMapper(idx)

	result := mapper.Map([]types.Violation{{
		RuleID:       "image-alt",
		Selectors:    []string{"img.from-cdn"},
		HTMLFragment: `<img src="https://cdn.example.com/x.png" class="from-cdn">`,
	}})

	assert.Empty(t, result.Entries)
	require.Len(t, result.Unmapped, 1)
	assert.Equal(t, "image-alt", result.Unmapped[0].RuleID)
}

func TestMap_StaticIndexNotScannedByContentMatchers(t *testing.T) {
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		staticArtifact("src/index.html", `<html><body><div class="shared">hi</div></body></html>`),
		templateArtifact("src/app/app.component.html", `<div class="shared">hi</div>`),
	})
	mapper := NewAngularMapper(idx)

	result := mapper.Map([]types.Violation{{
		RuleID:       "color-contrast",
		Selectors:    []string{".shared"},
		HTMLFragment: `<div class="shared">hi</div>`,
	}})

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "src/app/app.component.html", result.Entries[0].Path)
}

func TestMap_ReactClassSetMatch(t *testing.T) {
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		componentArtifact("src/components/Card.jsx",
			`export function Card() { return <div className="card card-shadow"><img src={src} /></div>; }`),
		componentArtifact("src/components/Footer.jsx",
			`export function Footer() { return <footer className="footer" />; }`),
	})
	mapper := NewReactMapper(idx)

	result := mapper.Map([]types.Violation{{
		RuleID:       "image-alt",
		Selectors:    []string{".card > img"},
		HTMLFragment: `<div class="card card-shadow"><img src="/p.png"></div>`,
	}})

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "src/components/Card.jsx", result.Entries[0].Path)
}

func TestMap_ReactSelectorVariants(t *testing.T) {
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		componentArtifact("src/components/NavBar.jsx",
			`export function NavBar() { return <nav className="nav_bar">links</nav>; }`),
	})
	mapper := NewReactMapper(idx)

	// Rendered class uses a hyphen, source uses an underscore.
	result := mapper.Map([]types.Violation{{
		RuleID:       "landmark-unique",
		Selectors:    []string{".nav-bar"},
		HTMLFragment: `<custom-rendered>no direct text</custom-rendered>`,
	}})

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "src/components/NavBar.jsx", result.Entries[0].Path)
	assert.Equal(t, "selector-variants", result.Entries[0].Violations[0].MatchMethod)
}

func TestMap_ReactVisibleTextMatch(t *testing.T) {
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		componentArtifact("src/components/Promo.jsx",
			`export function Promo() { return <div className="promo">{icon}Discover seasonal offers today</div>; }`),
	})
	mapper := NewReactMapper(idx)

	// The rendered fragment carries an inlined svg icon the source builds
	// elsewhere, so only the text can place it.
	result := mapper.Map([]types.Violation{{
		RuleID:       "color-contrast",
		Selectors:    []string{".promo-banner"},
		HTMLFragment: `<div class="promo-banner"><svg viewBox="0 0 24 24"></svg>Discover seasonal offers today</div>`,
	}})

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "src/components/Promo.jsx", result.Entries[0].Path)
	assert.Equal(t, "visible-text", result.Entries[0].Violations[0].MatchMethod)
}

func TestMap_ReactFrameFallbackToShell(t *testing.T) {
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		componentArtifact("src/App.jsx", `export default function App() { return <Routes />; }`),
		componentArtifact("src/components/Widget.jsx", `export function Widget() { return <p>w</p>; }`),
	})
	mapper := NewReactMapper(idx)

	result := mapper.Map([]types.Violation{{
		RuleID:       "frame-title",
		Selectors:    []string{"iframe"},
		HTMLFragment: `<iframe src="https://maps.example.com/embed"></iframe>`,
	}})

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "src/App.jsx", result.Entries[0].Path)
	assert.Equal(t, MethodFallback, result.Entries[0].Violations[0].MatchMethod)
}

func TestMap_ReactNonFrameViolationNeverUsesFallback(t *testing.T) {
	idx := templates.NewIndex("/proj", []*types.SourceArtifact{
		componentArtifact("src/App.jsx", `export default function App() { return <Routes />; }`),
	})
	mapper := NewReactMapper(idx)

	result := mapper.Map([]types.Violation{{
		RuleID:       "image-alt",
		Selectors:    []string{"img"},
		HTMLFragment: `<img src="/unknown.png">`,
	}})

	assert.Empty(t, result.Entries)
	assert.Len(t, result.Unmapped, 1)
}
