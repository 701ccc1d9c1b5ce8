// Package bundle serves the browser extension's build output on the proxy's
// own origin, from local disk in dev mode or from the extension CDN.
package bundle

import (
	"fmt"
	"net/http"
	"net/url"
)

// Paths are the extension files the proxied page loads from its own origin.
var Paths = []string{
	"/contentScript.bundle.js",
	"/content.styles.css",
	"/logo_x.svg",
	"/metabase.bundle.js",
}

// Server serves bundle paths. Implementations are picked once at startup.
type Server interface {
	http.Handler
	// Source names where files come from, for logs.
	Source() string
}

// New returns a LocalFileServer rooted at dir when dev is set, otherwise an
// UpstreamProxy to target.
func New(dev bool, dir, target string, client *http.Client) (Server, error) {
	if dev {
		return NewLocalFileServer(dir), nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("extension target: %w", err)
	}
	return NewUpstreamProxy(u, client), nil
}
