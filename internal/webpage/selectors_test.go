package webpage

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func TestNormalizeSelector(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"div[_ngcontent-abc-c12] > button.cta", "div > button.cta"},
		{"section[_nghost-xyz-c4] p", "section p"},
		{`span[attr="_ngcontent-a-b"]`, "span"},
		{"button.cta", "button.cta"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSelector(tt.in), "selector: %q", tt.in)
	}
}

func TestStripPseudoClasses(t *testing.T) {
	assert.Equal(t, "ul > li", StripPseudoClasses("ul > li:nth-child(3)"))
	assert.Equal(t, "a.nav", StripPseudoClasses("a.nav:hover:focus"))
	assert.Equal(t, "p", StripPseudoClasses("p:first-child"))
	assert.Equal(t, "div.box", StripPseudoClasses("div.box"))
}

func TestFindNode_DirectSelector(t *testing.T) {
	doc := parseDoc(t, `<div><button id="save">Save</button></div>`)

	node, ok := FindNode(doc, "#save", "")
	require.True(t, ok)
	assert.Equal(t, "button", goquery.NodeName(node))
}

func TestFindNode_AngularScopedSelector(t *testing.T) {
	// The saved page has no runtime attributes; the normalized form must hit.
	doc := parseDoc(t, `<body><button class="save-btn"></button></body>`)

	node, ok := FindNode(doc, "button[_ngcontent-xyz-c8].save-btn", "")
	require.True(t, ok)
	assert.Equal(t, "save-btn", node.AttrOr("class", ""))
}

func TestFindNode_DisambiguatesByFragment(t *testing.T) {
	doc := parseDoc(t, `<ul><li class="item">First</li><li class="item">Second</li></ul>`)

	node, ok := FindNode(doc, ".item", `<li class="item">Second</li>`)
	require.True(t, ok)
	assert.Equal(t, "Second", node.Text())
}

func TestFindNode_MultipleWithoutFragmentTakesFirst(t *testing.T) {
	doc := parseDoc(t, `<ul><li class="item">First</li><li class="item">Second</li></ul>`)

	node, ok := FindNode(doc, ".item", "")
	require.True(t, ok)
	assert.Equal(t, "First", node.Text())
}

func TestFindNode_StripsPseudoClasses(t *testing.T) {
	doc := parseDoc(t, `<ul><li class="row">Only</li></ul>`)

	// cascadia resolves :nth-child against the real tree, where the li is
	// child one; the stripped retry is what finds it.
	node, ok := FindNode(doc, "li.row:nth-child(4)", "")
	require.True(t, ok)
	assert.Equal(t, "Only", node.Text())
}

func TestFindNode_ByFragmentScan(t *testing.T) {
	doc := parseDoc(t, `<main><span class="badge" data-id="7">New</span></main>`)

	node, ok := FindNode(doc, ".does-not-exist", `<span class="badge" data-id="7">New</span>`)
	require.True(t, ok)
	assert.Equal(t, "7", node.AttrOr("data-id", ""))
}

func TestFindNode_FragmentScanRequiresMatchingTag(t *testing.T) {
	doc := parseDoc(t, `<main><div class="badge">New</div></main>`)

	_, ok := FindNode(doc, ".does-not-exist", `<span class="badge">New</span>`)
	assert.False(t, ok)
}

func TestFindNode_FallsBackToTrailingClass(t *testing.T) {
	doc := parseDoc(t, `<article><p class="note">Remember</p></article>`)

	node, ok := FindNode(doc, "section.missing-parent > p.note", "")
	require.True(t, ok)
	assert.Equal(t, "Remember", node.Text())
}

func TestFindNode_FallsBackToAttribute(t *testing.T) {
	doc := parseDoc(t, `<div><span data-role="chip">Go</span></div>`)

	node, ok := FindNode(doc, `div.nope [data-role="chip"]`, "")
	require.True(t, ok)
	assert.Equal(t, "Go", node.Text())
}

func TestFindNode_FallsBackToTrailingSegment(t *testing.T) {
	doc := parseDoc(t, `<div><ul><li>a</li></ul></div>`)

	node, ok := FindNode(doc, "#ghost > ul", "")
	require.True(t, ok)
	assert.Equal(t, "ul", goquery.NodeName(node))
}

func TestFindNode_TagNameLastResortNeedsTextMatch(t *testing.T) {
	doc := parseDoc(t, `<ul><li>Target text</li></ul>`)

	node, ok := FindNode(doc, "#ghost > li.zzz", `<li class="zzz">Target text</li>`)
	require.True(t, ok)
	assert.Equal(t, "Target text", node.Text())
}

func TestFindNode_NotFound(t *testing.T) {
	doc := parseDoc(t, `<div><p>content</p></div>`)

	_, ok := FindNode(doc, ".nothing", "")
	assert.False(t, ok)
}

func TestFindNode_MalformedSelectorDoesNotPanic(t *testing.T) {
	doc := parseDoc(t, `<div><p class="safe">content</p></div>`)

	_, ok := FindNode(doc, "p[unclosed", "")
	assert.False(t, ok)
}

func TestCompileSelector_RejectsEmptyAndMalformed(t *testing.T) {
	_, ok := compileSelector("")
	assert.False(t, ok)
	_, ok = compileSelector("   ")
	assert.False(t, ok)
	_, ok = compileSelector("div[")
	assert.False(t, ok)
	_, ok = compileSelector("div.item")
	assert.True(t, ok)
}
