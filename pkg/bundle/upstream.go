package bundle

import (
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/hlog"

	"github.com/ashpect/mxembed/pkg/client"
)

// UpstreamProxy forwards bundle requests to the extension CDN and streams the
// response back unchanged.
type UpstreamProxy struct {
	target *url.URL
	client *http.Client
}

func NewUpstreamProxy(target *url.URL, c *http.Client) *UpstreamProxy {
	if c == nil {
		c = client.NewClient()
	}
	return &UpstreamProxy{target: target, client: c}
}

func (p *UpstreamProxy) Source() string {
	return p.target.String()
}

func (p *UpstreamProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	outReq := client.UpstreamRequest(r, p.target, false)
	resp, err := p.client.Do(outReq)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("upstream", p.target.String()).Msg("bundle upstream request failed")
		http.Error(w, "upstream error", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	client.RemoveHopByHopHeaders(resp.Header)
	client.CopyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("error copying bundle body")
	}
}
