package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/a11y-remediator/internal/templates"
	"github.com/jonathan/a11y-remediator/internal/types"
)

func TestBuildFragment_ExtractsStructure(t *testing.T) {
	v := types.Violation{
		Selectors:    []string{"div.alert.alert-warning > span#msg"},
		HTMLFragment: `<div class="alert alert-warning" _ngcontent-x=""><span id="msg">Low stock</span></div>`,
	}
	f := buildFragment(v, templates.NormalizeAngular)

	assert.Equal(t, "div", f.RootTag)
	assert.ElementsMatch(t, []string{"div", "span"}, f.Tags)
	assert.ElementsMatch(t, []string{"alert", "alert-warning"}, f.ClassTokens)
	assert.Equal(t, "Low stock", f.VisibleText)
	assert.Equal(t, `<div class="alert alert-warning"><span id="msg">Low stock</span></div>`, f.Normalized)

	assert.ElementsMatch(t, []string{"alert", "alert-warning"}, f.SelectorClasses)
	assert.ElementsMatch(t, []string{"msg"}, f.SelectorIDs)
	assert.ElementsMatch(t, []string{"div", "span"}, f.SelectorTags)
}

func TestBuildFragment_EmptyFragment(t *testing.T) {
	f := buildFragment(types.Violation{Selectors: []string{"html"}}, templates.NormalizeAngular)
	assert.Empty(t, f.RootTag)
	assert.Empty(t, f.Tags)
	assert.Empty(t, f.Normalized)
}

func TestBuildFragment_SelectorTagsSkipDocumentElements(t *testing.T) {
	v := types.Violation{Selectors: []string{"html > body > main"}}
	f := buildFragment(v, templates.NormalizeAngular)
	assert.Equal(t, []string{"main"}, f.SelectorTags)
}

func TestContainsOpeningTag(t *testing.T) {
	assert.True(t, containsOpeningTag(`<button class="x">`, "button"))
	assert.True(t, containsOpeningTag(`<BUTTON>`, "button"))
	assert.True(t, containsOpeningTag("<br/>", "br"))
	assert.False(t, containsOpeningTag(`<buttonish>`, "button"))
	assert.False(t, containsOpeningTag(`press the button here`, "button"))
	assert.False(t, containsOpeningTag("<button>", ""))
}

func TestClassVariants(t *testing.T) {
	variants := classVariants("nav-bar")
	assert.Contains(t, variants, "nav-bar")
	assert.Contains(t, variants, "Nav-bar")
	assert.Contains(t, variants, "nav_bar")
}

func TestMatchVisibleText_RootTagGuard(t *testing.T) {
	f := &Fragment{
		RootTag:     "carousel",
		VisibleText: "Next slide preview available",
	}
	artifact := &types.SourceArtifact{
		Raw: `<div>Next slide preview available</div>`,
	}
	assert.False(t, matchVisibleText(f, artifact), "matching text must not count without the element itself")

	artifact.Raw = `<carousel>Next slide preview available</carousel>`
	assert.True(t, matchVisibleText(f, artifact))
}

func TestMatchVisibleText_SignificantWords(t *testing.T) {
	f := &Fragment{
		RootTag:     "p",
		VisibleText: "Your order ships tomorrow morning",
	}
	artifact := &types.SourceArtifact{
		Raw: `<p>{{ greeting }} order ships {{ when }} morning</p>`,
	}
	assert.True(t, matchVisibleText(f, artifact))

	sparse := &types.SourceArtifact{Raw: `<p>order placed</p>`}
	assert.False(t, matchVisibleText(f, sparse))
}
