package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAngular_StripsScopingAttributes(t *testing.T) {
	rendered := `<button _ngcontent-abc-c123="" class="cta" _nghost-xyz-c45="">Buy</button>`
	assert.Equal(t, `<button class="cta">Buy</button>`, NormalizeAngular(rendered))
}

func TestNormalizeAngular_StripsReflectAttributes(t *testing.T) {
	rendered := `<app-card ng-reflect-title="Hello world" class="card"></app-card>`
	assert.Equal(t, `<app-card class="card"></app-card>`, NormalizeAngular(rendered))
}

func TestNormalizeAngular_CollapsesWhitespace(t *testing.T) {
	rendered := "<div>\n\t  <span>text</span>\n</div>"
	assert.Equal(t, "<div> <span>text</span> </div>", NormalizeAngular(rendered))
}

func TestNormalizeAngular_LeavesSourceAttributesAlone(t *testing.T) {
	source := `<input id="email" aria-label="Email address" [value]="email">`
	assert.Equal(t, source, NormalizeAngular(source))
}

func TestNormalizeReact_StripsRuntimeAttributes(t *testing.T) {
	rendered := `<div data-reactroot="" data-react-checksum="12345" class="app">hi</div>`
	assert.Equal(t, `<div class="app">hi</div>`, NormalizeReact(rendered))
}

func TestCollapseWhitespace_TrimsEnds(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a\n b\t\tc  "))
}
