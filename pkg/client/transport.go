package client

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

type TransportOption func(*http.Transport)

func WithMaxIdleConns(maxIdleConns int) TransportOption {
	return func(t *http.Transport) {
		t.MaxIdleConns = maxIdleConns
	}
}

func WithMaxIdleConnsPerHost(maxIdleConnsPerHost int) TransportOption {
	return func(t *http.Transport) {
		t.MaxIdleConnsPerHost = maxIdleConnsPerHost
	}
}

func WithIdleConnTimeout(timeout time.Duration) TransportOption {
	return func(t *http.Transport) {
		t.IdleConnTimeout = timeout
	}
}

// NewTransport starts from cleanhttp's pooled transport (no shared global
// state, keep-alives on) and applies opts.
func NewTransport(opts ...TransportOption) *http.Transport {
	transport := cleanhttp.DefaultPooledTransport()
	for _, opt := range opts {
		opt(transport)
	}
	return transport
}
