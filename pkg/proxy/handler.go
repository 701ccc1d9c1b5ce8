package proxy

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/ashpect/mxembed/pkg/assets"
	"github.com/ashpect/mxembed/pkg/bundle"
	"github.com/ashpect/mxembed/pkg/client"
	"github.com/ashpect/mxembed/pkg/config"
	"github.com/ashpect/mxembed/pkg/rewrite"
	"github.com/ashpect/mxembed/pkg/utils"
)

// NewRewriter builds the HTML/CSP transform from configuration.
func NewRewriter(cfg *config.ProxyCfg) *rewrite.Rewriter {
	frameSrc := []string{cfg.CSP.ExtensionOrigin}
	if cfg.DevMode() && cfg.CSP.DevOrigin != "" {
		frameSrc = append(frameSrc, cfg.CSP.DevOrigin)
	}
	opts := []rewrite.Option{rewrite.WithSources("frame-src", frameSrc...)}
	if len(cfg.CSP.ConnectSrc) > 0 {
		opts = append(opts, rewrite.WithSources("connect-src", cfg.CSP.ConnectSrc...))
	}
	return rewrite.New(opts...)
}

// Handler is the assembled proxy service.
type Handler struct {
	http.Handler
	assets *assets.Store
}

// Close releases background work owned by the handler.
func (h *Handler) Close() {
	if h.assets != nil {
		h.assets.Close()
	}
}

// NewHandler wires the whole proxy service: upstream client, asset cache,
// bundle strategy, routes and access logging.
func NewHandler(cfg *config.SystemCfg, logger zerolog.Logger) (*Handler, error) {
	upstream, err := url.Parse(cfg.Proxy.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("upstream url: %w", err)
	}

	httpClient := client.NewClient(
		client.WithTimeout(cfg.Proxy.Timeout),
		client.WithTransport(client.NewTransport(
			client.WithMaxIdleConns(cfg.Proxy.MaxIdleConns),
			client.WithMaxIdleConnsPerHost(cfg.Proxy.MaxIdleConnsPerHost),
			client.WithIdleConnTimeout(cfg.Proxy.IdleConnTimeout),
		)),
	)

	opts := []ProxyOption{
		WithClient(httpClient),
		WithPreserveOriginalHost(cfg.Proxy.PreserveOriginalHost),
		WithRewriter(NewRewriter(&cfg.Proxy)),
	}
	var store *assets.Store
	if cfg.Cache.Enabled {
		store, err = assets.NewLRUStore(cfg.Cache.Capacity, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithAssets(store))
	}

	bundles, err := bundle.New(cfg.Proxy.DevMode(), cfg.Proxy.ExtensionDir, cfg.Proxy.ExtensionURL, httpClient)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	logger.Info().
		Str("upstream", upstream.String()).
		Str("bundles", bundles.Source()).
		Str("mode", cfg.Proxy.Mode).
		Bool("assetCache", cfg.Cache.Enabled).
		Msg("proxy configured")

	router := NewRouter(Routes{
		EmbedHost: cfg.Proxy.EmbedHost,
		Files:     cfg.Proxy.Files,
		Bundles:   bundles,
		Proxy:     NewProxy(upstream, opts...),
	})
	return &Handler{
		Handler: utils.AccessChain(logger).Then(router),
		assets:  store,
	}, nil
}
