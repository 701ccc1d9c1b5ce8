package utils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const ShutdownTimeout = 30 * time.Second

// NewServer returns an http.Server with the timeouts used by both binaries.
// WriteTimeout stays 0 since upstream responses can be slow.
func NewServer(addr string, handler http.Handler, logger zerolog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ErrorLog:          StdLogger(logger),
	}
}

// Serve runs every server until ctx is done or one of them fails, then shuts
// all of them down.
func Serve(ctx context.Context, logger zerolog.Logger, servers ...*http.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		srv := srv
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
		logger.Info().Str("addr", ln.Addr().String()).Msg("listening")

		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	logger.Info().Msg("servers stopped")
	return err
}
