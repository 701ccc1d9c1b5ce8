package client

import (
	"net/http"
	"time"
)

type ClientOption func(*http.Client)

// WithTimeout bounds a whole upstream exchange. 0 means no limit.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *http.Client) {
		c.Timeout = timeout
	}
}

func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *http.Client) {
		c.Transport = transport
	}
}

// NewClient returns a client for talking to upstreams. Redirects are handed
// back to the caller instead of being followed, so the browser sees them.
func NewClient(opts ...ClientOption) *http.Client {
	client := &http.Client{
		Transport: NewTransport(),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	for _, opt := range opts {
		opt(client)
	}
	return client
}
