// Package ports discovers where a development server is listening and picks
// free ports for the local preview server. Detection never starts a server;
// it only checks what is already running.
package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// tcpProbeTimeout bounds the raw connect check; a dev server that cannot
// accept a connection in a second is as good as down.
const tcpProbeTimeout = 1 * time.Second

// httpProbeTimeout bounds the follow-up GET.
const httpProbeTimeout = 3 * time.Second

const probeUserAgent = "Mozilla/5.0 (compatible; A11yAgent/1.0)"

// commonReactPorts are the defaults of the usual React toolchains, most
// likely first: CRA, Vite, webpack-dev-server and their spillover ports.
var commonReactPorts = []int{3000, 5173, 8080, 3001, 5174, 8081, 5000, 4000, 4200, 3002}

// viteDefaultPort is what Vite serves on when no config overrides it.
const viteDefaultPort = 5173

// Preview ports for serving generated reports locally.
const (
	previewPortMin = 8000
	previewPortMax = 8050
)

var (
	viteServerPortRe = regexp.MustCompile(`server\s*:\s*\{[^}]*port\s*:\s*(\d+)`)
	vitePortRe       = regexp.MustCompile(`port\s*:\s*(\d+)`)
	scriptPortRe     = regexp.MustCompile(`(?:--port|-p|PORT=)[=\s]*(\d+)`)
	urlPortRe        = regexp.MustCompile(`:(\d+)`)
)

// Probe reports whether a local port answers like a dev server: the TCP
// connect must succeed and a GET / must return a 2xx status or an HTML
// content type. Error pages still count when they are HTML, because dev
// servers render routes client-side.
func Probe(ctx context.Context, port int) bool {
	addr := net.JoinHostPort("localhost", strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, tcpProbeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()

	client := &http.Client{Timeout: httpProbeTimeout}
	req, err := http.NewRequestWithContext(ctx, "GET", "http://"+addr+"/", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", probeUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true
	}
	return strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html")
}

// Detector finds the port a React project's dev server is running on.
type Detector struct {
	// Root is the project directory whose config files are inspected.
	Root string

	probe func(context.Context, int) bool
}

// NewDetector builds a Detector for a project root.
func NewDetector(root string) *Detector {
	return &Detector{Root: root, probe: Probe}
}

// Detect walks the detection strategies in order: a port declared in a Vite
// config, a port implied by the package.json start/dev/serve scripts, then
// the common dev ports. Every candidate must pass the probe; a configured
// but dead port falls through to the next strategy.
func (d *Detector) Detect(ctx context.Context) (int, bool) {
	log.Printf("[PORTS] Detecting development server port in %s", d.Root)

	if port, ok := d.viteConfigPort(); ok && d.probe(ctx, port) {
		log.Printf("[PORTS] Active dev server on port %d (vite config)", port)
		return port, true
	}

	for _, port := range d.scriptPorts() {
		if d.probe(ctx, port) {
			log.Printf("[PORTS] Active dev server on port %d (package.json scripts)", port)
			return port, true
		}
	}

	for _, port := range commonReactPorts {
		if d.probe(ctx, port) {
			log.Printf("[PORTS] Active dev server on port %d (common ports)", port)
			return port, true
		}
	}

	log.Printf("[PORTS] No active development server detected")
	return 0, false
}

// viteConfigPort extracts the server port from vite.config.js/ts/mjs.
func (d *Detector) viteConfigPort() (int, bool) {
	for _, name := range []string{"vite.config.js", "vite.config.ts", "vite.config.mjs"} {
		content, err := os.ReadFile(filepath.Join(d.Root, name))
		if err != nil {
			continue
		}
		if port, ok := vitePortFromConfig(string(content)); ok {
			return port, true
		}
	}
	return 0, false
}

// vitePortFromConfig looks for a port in the server block first, then for
// any top-level port key.
func vitePortFromConfig(content string) (int, bool) {
	if m := viteServerPortRe.FindStringSubmatch(content); m != nil {
		return parsePort(m[1])
	}
	if m := vitePortRe.FindStringSubmatch(content); m != nil {
		return parsePort(m[1])
	}
	return 0, false
}

// scriptPorts lists candidate ports from the package.json start, dev, and
// serve scripts in that order.
func (d *Detector) scriptPorts() []int {
	raw, err := os.ReadFile(filepath.Join(d.Root, "package.json"))
	if err != nil {
		return nil
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(raw, &pkg); err != nil {
		log.Printf("[PORTS] Unreadable package.json: %v", err)
		return nil
	}

	var candidates []int
	for _, name := range []string{"start", "dev", "serve"} {
		script := pkg.Scripts[name]
		if script == "" {
			continue
		}
		if port, ok := portFromScript(script); ok {
			candidates = append(candidates, port)
		}
	}
	return candidates
}

// portFromScript reads a port out of one npm script: an explicit flag wins,
// a bare vite invocation implies the Vite default, and a localhost URL in
// the command is the last hint.
func portFromScript(script string) (int, bool) {
	if m := scriptPortRe.FindStringSubmatch(script); m != nil {
		return parsePort(m[1])
	}
	if strings.Contains(strings.ToLower(script), "vite") {
		return viteDefaultPort, true
	}
	if m := urlPortRe.FindStringSubmatch(script); m != nil {
		return parsePort(m[1])
	}
	return 0, false
}

func parsePort(s string) (int, bool) {
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return 0, false
	}
	return port, true
}

// PreviewListener binds the first free preview port and returns the
// listener with its port. The caller owns the listener.
func PreviewListener() (net.Listener, int, error) {
	for port := previewPortMin; port < previewPortMax; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return l, port, nil
		}
	}
	return nil, 0, fmt.Errorf("no free preview port between %d and %d", previewPortMin, previewPortMax-1)
}
