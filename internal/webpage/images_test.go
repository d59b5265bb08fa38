package webpage

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateImageKeys(t *testing.T) {
	base, err := url.Parse("https://example.com/site/")
	require.NoError(t, err)

	keys := candidateImageKeys("img/logo.png?v=2", base)
	assert.Equal(t, []string{
		"img/logo.png?v=2",
		"https://example.com/site/img/logo.png?v=2",
		"img/logo.png",
		"https://example.com/site/img/logo.png",
	}, keys)
}

func TestCandidateImageKeys_NoBase(t *testing.T) {
	keys := candidateImageKeys("/assets/pic.jpg", nil)
	assert.Equal(t, []string{"/assets/pic.jpg"}, keys)

	assert.Nil(t, candidateImageKeys("", nil))
}

func TestApplyImageDescriptions(t *testing.T) {
	base, err := url.Parse("https://example.com/")
	require.NoError(t, err)

	doc := parseDoc(t, `<body>
		<img src="logo.png">
		<img src="hero.jpg" alt="old alt">
		<img src="unknown.gif">
	</body>`)

	descriptions := map[string]string{
		"logo.png":                     "Company logo",
		"https://example.com/hero.jpg": "Team at the summit",
	}

	applied := ApplyImageDescriptions(doc, descriptions, base)
	assert.Equal(t, 2, applied)

	logo := doc.Find(`img[src="logo.png"]`)
	assert.Equal(t, "Company logo", logo.AttrOr("alt", ""))
	assert.Equal(t, "Company logo", logo.AttrOr("title", ""))

	// Captions win over whatever alt text the page shipped with.
	hero := doc.Find(`img[src="hero.jpg"]`)
	assert.Equal(t, "Team at the summit", hero.AttrOr("alt", ""))
	assert.Equal(t, "Team at the summit", hero.AttrOr("title", ""))

	unknown := doc.Find(`img[src="unknown.gif"]`)
	_, hasAlt := unknown.Attr("alt")
	assert.False(t, hasAlt)
}

func TestApplyImageDescriptions_EmptyMap(t *testing.T) {
	doc := parseDoc(t, `<body><img src="logo.png"></body>`)
	assert.Equal(t, 0, ApplyImageDescriptions(doc, nil, nil))
}

func TestFragmentImageNotes(t *testing.T) {
	descriptions := map[string]string{"icons/star.svg": "Gold star rating icon"}

	note := fragmentImageNotes(`<div><img src="icons/star.svg"></div>`, descriptions, nil)
	assert.Contains(t, note, "  - icons/star.svg: Gold star rating icon")

	assert.Empty(t, fragmentImageNotes(`<div><p>no images</p></div>`, descriptions, nil))
	assert.Empty(t, fragmentImageNotes(`<div><img src="other.png"></div>`, descriptions, nil))
	assert.Empty(t, fragmentImageNotes(`<div><img src="icons/star.svg"></div>`, nil, nil))
}
