package utils

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

func headerDict(h http.Header) *zerolog.Event {
	d := zerolog.Dict()
	for key, values := range h {
		d = d.Strs(key, values)
	}
	return d
}

// LogRequest logs a request at debug level with a title/label
func LogRequest(logger zerolog.Logger, req *http.Request, title string) {
	logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("host", req.Host).
		Dict("headers", headerDict(req.Header)).
		Msg(title)
}

// LogUpstreamRequest logs an outgoing request with the upstream it targets
func LogUpstreamRequest(logger zerolog.Logger, req *http.Request, title string, upstream *url.URL) {
	e := logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("host", req.Host).
		Dict("headers", headerDict(req.Header))
	if upstream != nil {
		e = e.Str("upstream", upstream.String())
	}
	e.Msg(title)
}
