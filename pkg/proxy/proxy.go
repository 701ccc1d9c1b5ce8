package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/sync/singleflight"

	"github.com/ashpect/mxembed/pkg/assets"
	"github.com/ashpect/mxembed/pkg/client"
	"github.com/ashpect/mxembed/pkg/rewrite"
	"github.com/ashpect/mxembed/pkg/utils"
)

type proxy struct {
	upstream             *url.URL
	client               *http.Client
	preserveOriginalHost bool
	assets               *assets.Store
	rewriter             *rewrite.Rewriter

	// collapses concurrent first fetches of one static path
	inflight singleflight.Group
}

type ProxyOption func(*proxy)

func WithPreserveOriginalHost(preserve bool) ProxyOption {
	return func(p *proxy) {
		p.preserveOriginalHost = preserve
	}
}

func WithClient(client *http.Client) ProxyOption {
	return func(p *proxy) {
		p.client = client
	}
}

// WithAssets enables the static asset cache.
func WithAssets(store *assets.Store) ProxyOption {
	return func(p *proxy) {
		p.assets = store
	}
}

func WithRewriter(rw *rewrite.Rewriter) ProxyOption {
	return func(p *proxy) {
		p.rewriter = rw
	}
}

func NewProxy(upstream *url.URL, opts ...ProxyOption) *proxy {
	p := &proxy{
		upstream: upstream,
		client:   client.NewClient(),
		rewriter: rewrite.New(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)
	static := p.assets != nil && r.Method == http.MethodGet && assets.IsStaticPath(r.URL.Path)

	if static {
		if asset, ok := p.assets.Lookup(r.URL.Path); ok {
			utils.Debug("Cache hit for path: %s", r.URL.Path)
			p.assets.Serve(w, asset)
			return
		}
		utils.Debug("Cache miss for path: %s", r.URL.Path)
	}

	var (
		resp rewrite.Response
		err  error
	)
	if static && collapsible(r) {
		var v any
		v, err, _ = p.inflight.Do(r.URL.Path, func() (any, error) {
			// shared by every waiting client, so it must outlive the first one
			detached := r.WithContext(context.WithoutCancel(r.Context()))
			return p.exchange(detached, logger)
		})
		if err == nil {
			resp = v.(rewrite.Response)
		}
	} else {
		resp, err = p.exchange(r, logger)
	}
	if err != nil {
		p.fail(w, logger, err)
		return
	}

	emit(w, logger, resp, r.Method == http.MethodHead)
}

// collapsible reports whether r may share an upstream fetch with other
// requests for the same path. Conditional and range requests get answers
// (304, 206) that are only valid for the client that asked.
func collapsible(r *http.Request) bool {
	for name := range r.Header {
		if name == "Range" || strings.HasPrefix(name, "If-") {
			return false
		}
	}
	return true
}

// upstreamError marks failures talking to the upstream, as opposed to local ones.
type upstreamError struct{ err error }

func (e *upstreamError) Error() string { return e.err.Error() }
func (e *upstreamError) Unwrap() error { return e.err }

// exchange runs fetch, buffer and transform for one request.
func (p *proxy) exchange(r *http.Request, logger *zerolog.Logger) (rewrite.Response, error) {
	utils.LogRequest(*logger, r, "Initial request")
	outReq := client.UpstreamRequest(r, p.upstream, p.preserveOriginalHost)
	// Let the transport negotiate gzip and decode it, so cached and
	// rewritten bodies are always plain.
	outReq.Header.Del("Accept-Encoding")
	utils.LogUpstreamRequest(*logger, outReq, "Final request", p.upstream)

	start := time.Now()
	upstreamResp, err := p.client.Do(outReq)
	if err != nil {
		upstreamRequests.WithLabelValues("error").Inc()
		return rewrite.Response{}, &upstreamError{fmt.Errorf("upstream request: %w", err)}
	}
	defer upstreamResp.Body.Close()

	body, err := io.ReadAll(upstreamResp.Body)
	upstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamRequests.WithLabelValues("error").Inc()
		return rewrite.Response{}, fmt.Errorf("read upstream body: %w", err)
	}
	upstreamRequests.WithLabelValues(strconv.Itoa(upstreamResp.StatusCode)).Inc()

	client.RemoveHopByHopHeaders(upstreamResp.Header)
	out, err := p.rewriter.Apply(rewrite.RequestFrom(r), rewrite.Response{
		Status: upstreamResp.StatusCode,
		Header: upstreamResp.Header,
		Body:   body,
	})
	if err != nil {
		return rewrite.Response{}, fmt.Errorf("rewrite response: %w", err)
	}
	if len(out.Body) != len(body) {
		htmlRewrites.Inc()
	}

	p.maybeStore(r, out)
	return out, nil
}

// maybeStore caches successful static responses and marks them cacheable.
func (p *proxy) maybeStore(r *http.Request, resp rewrite.Response) {
	if p.assets == nil || r.Method != http.MethodGet || resp.Status != http.StatusOK {
		return
	}
	contentType := resp.Header.Get("Content-Type")
	if !assets.IsStatic(r.URL.Path, contentType) || resp.Header.Get("Content-Encoding") != "" {
		return
	}
	utils.Debug("Caching response for path: %s", r.URL.Path)
	p.assets.Store(r.URL.Path, resp.Body, contentType)
	p.assets.SetCacheHeaders(resp.Header)
}

func (p *proxy) fail(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	var ue *upstreamError
	if errors.As(err, &ue) {
		logger.Error().Err(err).Str("upstream", p.upstream.String()).Msg("upstream error")
		http.Error(w, "upstream error", http.StatusBadGateway)
		return
	}
	logger.Error().Err(err).Msg("error handling upstream response")
	http.Error(w, "error reading response", http.StatusInternalServerError)
}

// emit writes a fully buffered response.
func emit(w http.ResponseWriter, logger *zerolog.Logger, resp rewrite.Response, head bool) {
	client.CopyHeader(w.Header(), resp.Header)
	if !head && bodyAllowed(resp.Status) && w.Header().Get("Content-Length") == "" {
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	w.WriteHeader(resp.Status)

	if _, err := w.Write(resp.Body); err != nil {
		logger.Warn().Err(err).Msg("error writing response body")
	}
}

func bodyAllowed(status int) bool {
	return status >= http.StatusOK && status != http.StatusNoContent && status != http.StatusNotModified
}
