package browser

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// Viewport is a named emulated screen size.
type Viewport struct {
	Name   string
	Width  int64
	Height int64
}

// DefaultViewports are the screen sizes captured for visual context:
// a phone, a tablet, and a desktop monitor.
func DefaultViewports() []Viewport {
	return []Viewport{
		{Name: "mobile", Width: 375, Height: 667},
		{Name: "tablet", Width: 768, Height: 1024},
		{Name: "desktop", Width: 1920, Height: 1080},
	}
}

// desktopViewport is restored after a capture pass so later audits see the
// page at full size.
var desktopViewport = Viewport{Name: "desktop", Width: 1920, Height: 1080}

// Screenshot captures the current page at the given viewport as PNG bytes.
func (s *Session) Screenshot(viewport Viewport) ([]byte, error) {
	var buf []byte
	err := chromedp.Run(s.ctx,
		chromedp.EmulateViewport(viewport.Width, viewport.Height),
		chromedp.Sleep(1*time.Second),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("screenshot at %s (%dx%d) failed: %w", viewport.Name, viewport.Width, viewport.Height, err)
	}
	return buf, nil
}

// CaptureViewportScreenshots captures the page at every default viewport,
// writes the images into dir as <prefix>_<viewport>.png, and restores the
// desktop viewport. Failed captures are logged and skipped so one bad
// viewport does not lose the rest.
func (s *Session) CaptureViewportScreenshots(dir, prefix string) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	paths := make(map[string]string)
	for _, viewport := range DefaultViewports() {
		buf, err := s.Screenshot(viewport)
		if err != nil {
			log.Printf("[BROWSER] %v", err)
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", prefix, viewport.Name))
		if err := os.WriteFile(path, buf, 0o644); err != nil {
			log.Printf("[BROWSER] Failed to write %s: %v", path, err)
			continue
		}
		paths[viewport.Name] = path
	}

	if err := s.Run(chromedp.EmulateViewport(desktopViewport.Width, desktopViewport.Height)); err != nil {
		log.Printf("[BROWSER] Failed to restore desktop viewport: %v", err)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("all viewport captures failed")
	}
	return paths, nil
}
