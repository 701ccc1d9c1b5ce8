package utils

import (
	"net/http"
	"time"

	"github.com/justinas/alice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// AccessChain attaches logger to every request context and writes one access
// line per request once the handler returns.
func AccessChain(logger zerolog.Logger) alice.Chain {
	return alice.New(
		hlog.NewHandler(logger),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			level := zerolog.InfoLevel
			if status >= http.StatusBadRequest {
				level = zerolog.WarnLevel
			}
			if status >= http.StatusInternalServerError {
				level = zerolog.ErrorLevel
			}
			hlog.FromRequest(r).WithLevel(level).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Send()
		}),
		hlog.RequestIDHandler("request", "X-Request-Id"),
		hlog.MethodHandler("method"),
		hlog.URLHandler("url"),
		hlog.RemoteAddrHandler("client"),
		hlog.UserAgentHandler("agent"),
	)
}
