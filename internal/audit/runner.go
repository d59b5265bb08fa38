package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jonathan/a11y-remediator/internal/schemas"
)

// ScriptURL is the pinned accessibility engine build injected into audited
// pages. The version is pinned so repeated runs compare like with like.
const ScriptURL = "https://cdnjs.cloudflare.com/ajax/libs/axe-core/4.8.4/axe.min.js"

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; A11yAgent/1.0)"

const (
	// DefaultMaxRetries bounds audit and download attempts.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the initial backoff between attempts. It doubles
	// after each failure.
	DefaultRetryDelay = 5 * time.Second
	// DefaultPageLoadWait gives client-rendered apps time to paint before
	// the engine inspects the DOM.
	DefaultPageLoadWait = 5 * time.Second
	// DefaultPollTimeout bounds how long a single engine run may take.
	DefaultPollTimeout = 90 * time.Second

	pollInterval = 500 * time.Millisecond
)

// runTags scopes the engine to WCAG A/AA rules plus the review categories
// the remediation flow can act on.
var runTags = []string{
	"wcag2a", "wcag2aa", "wcag21aa", "wcag22aa",
	"reflow", "language", "navigation", "contrast",
	"keyboard", "focus", "text-spacing", "viewport", "zoom",
}

// Page is the subset of browser session behavior the runner needs. It is
// satisfied by browser.Session.
type Page interface {
	Navigate(url string) error
	Run(actions ...chromedp.Action) error
}

// Options configures audit execution.
type Options struct {
	MaxRetries   int
	RetryDelay   time.Duration
	PageLoadWait time.Duration
	PollTimeout  time.Duration
}

// DefaultOptions returns sensible defaults for auditing.
func DefaultOptions() *Options {
	return &Options{
		MaxRetries:   DefaultMaxRetries,
		RetryDelay:   DefaultRetryDelay,
		PageLoadWait: DefaultPageLoadWait,
		PollTimeout:  DefaultPollTimeout,
	}
}

// Result is one completed audit of one page state.
type Result struct {
	URL    string
	Raw    []byte
	Report *Report
	State  *StateInfo
}

// Runner injects the engine into a live page and collects its report.
type Runner struct {
	page   Page
	script string
	opts   *Options
}

// NewRunner creates a runner around an existing browser page. The script is
// the engine source previously downloaded with FetchScript.
func NewRunner(page Page, script string, opts *Options) *Runner {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Runner{page: page, script: script, opts: opts}
}

// FetchScript downloads the engine source, retrying with doubling backoff.
func FetchScript(ctx context.Context, client *http.Client) (string, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	delay := DefaultRetryDelay
	var lastErr error
	for attempt := 1; attempt <= DefaultMaxRetries; attempt++ {
		script, err := fetchScriptOnce(ctx, client)
		if err == nil {
			return script, nil
		}
		lastErr = err
		log.Printf("[AUDIT] Engine download attempt %d/%d failed: %v", attempt, DefaultMaxRetries, err)
		if attempt < DefaultMaxRetries {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return "", &Error{URL: ScriptURL, Message: "failed to download audit engine", Cause: lastErr}
}

func fetchScriptOnce(ctx context.Context, client *http.Client) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", ScriptURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// Run navigates to the URL and audits it, retrying the whole
// navigate-inject-collect sequence with doubling backoff.
func (r *Runner) Run(ctx context.Context, url string) (*Result, error) {
	delay := r.opts.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxRetries; attempt++ {
		result, err := r.runOnce(url)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Printf("[AUDIT] Attempt %d/%d for %s failed: %v", attempt, r.opts.MaxRetries, url, err)
		if attempt < r.opts.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return nil, &Error{URL: url, Message: fmt.Sprintf("audit failed after %d attempts", r.opts.MaxRetries), Cause: lastErr}
}

// Audit runs the engine against whatever page is currently loaded, without
// navigating. Used after interactions drive the page into a new state.
func (r *Runner) Audit(url string) (*Result, error) {
	raw, err := r.collect()
	if err != nil {
		return nil, err
	}
	if err := schemas.ValidateJSONString(schemas.AxeReportSchema, string(raw)); err != nil {
		return nil, &Error{URL: url, Message: "engine returned a malformed report", Cause: err}
	}
	report, err := ParseReport(raw)
	if err != nil {
		return nil, &Error{URL: url, Message: "failed to parse report", Cause: err}
	}
	return &Result{URL: url, Raw: raw, Report: report}, nil
}

func (r *Runner) runOnce(url string) (*Result, error) {
	if err := r.page.Navigate(url); err != nil {
		return nil, &Error{URL: url, Message: "navigation failed", Cause: err}
	}
	if err := r.page.Run(chromedp.Sleep(r.opts.PageLoadWait)); err != nil {
		return nil, &Error{URL: url, Message: "page settle wait failed", Cause: err}
	}
	return r.Audit(url)
}

// collect injects the engine, starts a run that stores its results in a
// window global, polls for completion, and pulls the serialized report out.
func (r *Runner) collect() ([]byte, error) {
	if err := r.page.Run(chromedp.Evaluate(r.script, nil)); err != nil {
		return nil, fmt.Errorf("failed to inject engine: %w", err)
	}
	if err := r.page.Run(chromedp.Evaluate(startExpression(), nil)); err != nil {
		return nil, fmt.Errorf("failed to start engine run: %w", err)
	}

	var done bool
	err := r.page.Run(chromedp.Poll(
		`window.__a11yAuditDone === true`,
		&done,
		chromedp.WithPollingTimeout(r.opts.PollTimeout),
		chromedp.WithPollingInterval(pollInterval),
	))
	if err != nil {
		return nil, fmt.Errorf("engine run did not complete: %w", err)
	}

	var raw string
	if err := r.page.Run(chromedp.Evaluate(`JSON.stringify(window.__a11yAuditResults)`, &raw)); err != nil {
		return nil, fmt.Errorf("failed to read engine results: %w", err)
	}
	return []byte(raw), nil
}

// startExpression builds the in-page bootstrap that runs the engine with the
// configured tag set and flags completion through window globals.
func startExpression() string {
	tags, _ := json.Marshal(runTags)
	return fmt.Sprintf(`(function() {
	window.__a11yAuditDone = false;
	window.__a11yAuditResults = null;
	axe.run(document, { runOnly: { type: 'tag', values: %s } })
		.then(function(results) {
			window.__a11yAuditResults = results;
			window.__a11yAuditDone = true;
		})
		.catch(function(err) {
			window.__a11yAuditResults = { violations: [], error: String(err) };
			window.__a11yAuditDone = true;
		});
	return true;
})()`, string(tags))
}
