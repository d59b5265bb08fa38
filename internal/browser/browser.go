// Package browser manages a persistent headless Chrome session used for
// auditing pages, driving interactions, and capturing screenshots.
package browser

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	// DefaultSettleWait is how long Navigate waits after the document is
	// ready so client-side rendering can finish.
	DefaultSettleWait = 3 * time.Second

	// startupRetries bounds browser launch attempts.
	startupRetries = 3
	// startupRetryDelay is the initial delay between launch attempts. It
	// doubles after each failure.
	startupRetryDelay = 2 * time.Second
)

// Options configures the browser session.
type Options struct {
	Headless   bool
	SettleWait time.Duration
	Verbose    bool
}

// DefaultOptions returns sensible defaults for a session.
func DefaultOptions() *Options {
	return &Options{
		Headless:   true,
		SettleWait: DefaultSettleWait,
	}
}

// Session is a long-lived browser the whole run shares. Unlike one-shot
// rendering, audits revisit the same origin many times, so paying the
// launch cost once matters.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
	opts    *Options
}

// NewSession launches a headless browser, retrying with doubling backoff
// when the launch fails. Requires Chrome/Chromium to be installed on the
// system.
func NewSession(ctx context.Context, opts *Options) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	delay := startupRetryDelay
	var lastErr error
	for attempt := 1; attempt <= startupRetries; attempt++ {
		session, err := launch(ctx, opts)
		if err == nil {
			return session, nil
		}
		lastErr = err
		log.Printf("[BROWSER] Launch attempt %d/%d failed: %v", attempt, startupRetries, err)
		if attempt < startupRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return nil, fmt.Errorf("browser launch failed after %d attempts: %w", startupRetries, lastErr)
}

func launch(ctx context.Context, opts *Options) (*Session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Run with no actions forces the browser process to start now, so a
	// broken Chrome install fails here instead of mid-run.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Session{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
		opts:    opts,
	}, nil
}

// Navigate loads a URL, waits for the document to be ready, then waits the
// settle period for JavaScript to render content.
func (s *Session) Navigate(url string) error {
	if s.opts.Verbose {
		log.Printf("[BROWSER] Navigating to: %s", url)
	}
	err := chromedp.Run(s.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(s.opts.SettleWait),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Run executes chromedp actions against the session's page.
func (s *Session) Run(actions ...chromedp.Action) error {
	return chromedp.Run(s.ctx, actions...)
}

// RunWithTimeout executes actions under a deadline derived from the session
// context.
func (s *Session) RunWithTimeout(timeout time.Duration, actions ...chromedp.Action) error {
	deadlineCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(deadlineCtx, actions...)
}

// HTML returns the rendered HTML of the current page.
func (s *Session) HTML() (string, error) {
	var html string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to extract HTML: %w", err)
	}
	if s.opts.Verbose {
		log.Printf("[BROWSER] Rendered HTML: %d bytes", len(html))
	}
	return html, nil
}

// DismissOverlays tries to close cookie banners and modal dialogs that would
// otherwise sit on top of the audited content. Missing overlays are not an
// error.
func (s *Session) DismissOverlays() {
	_ = chromedp.Run(s.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Click common "Accept" buttons - don't fail if not found
			clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			_ = chromedp.Click(`button[id*="accept"], button[class*="accept"], button[class*="cookie"]`, chromedp.NodeVisible).Do(clickCtx)
			return nil
		}),
		chromedp.Sleep(1*time.Second),
		chromedp.ActionFunc(func(ctx context.Context) error {
			clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			_ = chromedp.Click(`button[class*="close"], [class*="modal"] button[aria-label*="close"]`, chromedp.NodeVisible).Do(clickCtx)
			return nil
		}),
	)
}

// TriggerLazyContent scrolls the page to force lazy-loaded content to
// render: half way, then to the bottom, then back to the top.
func (s *Session) TriggerLazyContent() {
	_ = chromedp.Run(s.ctx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
		chromedp.Sleep(1*time.Second),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(1*time.Second),
		chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
		chromedp.Sleep(500*time.Millisecond),
	)
}

// Close shuts the browser down. Safe to call more than once.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}
