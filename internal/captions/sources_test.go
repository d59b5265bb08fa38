package captions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageSources(t *testing.T) {
	html := `<html><body>
		<img src="/logo.png" alt="">
		<img src="https://cdn.example.com/hero.jpg">
		<img src="/logo.png">
		<img src="   ">
		<img>
		<p>no image here</p>
	</body></html>`

	sources := ImageSources(html)
	assert.Equal(t, []string{"/logo.png", "https://cdn.example.com/hero.jpg"}, sources)
}

func TestImageSourcesNoImages(t *testing.T) {
	assert.Empty(t, ImageSources("<html><body><p>text only</p></body></html>"))
}

func TestImageSourcesPreservesRawValues(t *testing.T) {
	sources := ImageSources(`<img src="img/photo.jpg?v=2">`)
	assert.Equal(t, []string{"img/photo.jpg?v=2"}, sources)
}
