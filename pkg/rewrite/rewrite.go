// Package rewrite holds the transform stage of the proxy: a pure function of
// request metadata and a fully buffered upstream response.
package rewrite

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ashpect/mxembed/pkg/csp"
)

const (
	DefaultScriptSrc = "/contentScript.bundle.js"

	ssoPathPrefix   = "/auth/sso"
	TokenCookieName = "mx_jwt"

	headClose = "</head>"
)

// Request is the part of the client request the transform looks at.
type Request struct {
	Method string
	Path   string
	Query  url.Values
}

// RequestFrom extracts Request metadata from r.
func RequestFrom(r *http.Request) Request {
	return Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
	}
}

// Response is a buffered upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

type Rewriter struct {
	scriptTag  string
	directives []string
	sources    map[string][]string
}

type Option func(*Rewriter)

// WithScriptSrc changes the injected script's src.
func WithScriptSrc(src string) Option {
	return func(rw *Rewriter) {
		rw.scriptTag = `<script src="` + src + `"></script>`
	}
}

// WithSources merges origins into a CSP directive of every HTML response.
func WithSources(directive string, origins ...string) Option {
	return func(rw *Rewriter) {
		directive = strings.ToLower(directive)
		if _, ok := rw.sources[directive]; !ok {
			rw.directives = append(rw.directives, directive)
		}
		rw.sources[directive] = append(rw.sources[directive], origins...)
	}
}

func New(opts ...Option) *Rewriter {
	rw := &Rewriter{
		sources: make(map[string][]string),
	}
	WithScriptSrc(DefaultScriptSrc)(rw)
	for _, opt := range opts {
		opt(rw)
	}
	return rw
}

// Apply returns the response to send to the client. resp is not modified.
// The only error source is a corrupt encoded HTML body.
func (rw *Rewriter) Apply(req Request, resp Response) (Response, error) {
	out := Response{
		Status: resp.Status,
		Header: resp.Header.Clone(),
		Body:   resp.Body,
	}
	if out.Header == nil {
		out.Header = make(http.Header)
	}

	if c := TokenCookie(req); c != nil {
		out.Header.Add("Set-Cookie", c.String())
	}

	if !IsHTML(out.Header.Get("Content-Type")) {
		return out, nil
	}

	// every policy is enforced, so each one needs the extra sources
	if policies := out.Header.Values("Content-Security-Policy"); len(policies) > 0 && len(rw.directives) > 0 {
		patched := make([]string, 0, len(policies))
		for _, policy := range policies {
			if policy == "" {
				continue
			}
			patched = append(patched, csp.Patch(policy, rw.directives, rw.sources))
		}
		out.Header.Del("Content-Security-Policy")
		for _, policy := range patched {
			out.Header.Add("Content-Security-Policy", policy)
		}
	}

	decoded, ok, err := decodeBody(out.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return Response{}, err
	}
	if !ok {
		return out, nil
	}

	injected, changed := rw.InjectScript(decoded)
	if !changed {
		return out, nil
	}
	out.Body = injected
	out.Header.Del("Content-Encoding")
	out.Header.Set("Content-Length", strconv.Itoa(len(injected)))
	return out, nil
}

// InjectScript places the script tag right before the first </head>.
func (rw *Rewriter) InjectScript(body []byte) ([]byte, bool) {
	html := string(body)
	if !strings.Contains(html, headClose) {
		return body, false
	}
	return []byte(strings.Replace(html, headClose, rw.scriptTag+headClose, 1)), true
}

// TokenCookie returns the cookie relaying mx_jwt from an SSO request, or nil.
func TokenCookie(req Request) *http.Cookie {
	if !strings.HasPrefix(req.Path, ssoPathPrefix) {
		return nil
	}
	token := req.Query.Get(TokenCookieName)
	if token == "" {
		return nil
	}
	// The analytics app runs inside a cross-site iframe, so the cookie has
	// to be SameSite=None, which browsers only accept with Secure.
	return &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		Secure:   true,
		HttpOnly: false,
		SameSite: http.SameSiteNoneMode,
	}
}

// IsHTML reports whether the content type is an HTML document.
func IsHTML(contentType string) bool {
	return strings.Contains(contentType, "text/html")
}
