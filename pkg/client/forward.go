package client

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// RemoveHopByHopHeaders drops headers that only apply to a single connection,
// including the ones named by the Connection header itself.
func RemoveHopByHopHeaders(header http.Header) {
	for _, v := range header.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				header.Del(name)
			}
		}
	}
	for _, key := range hopByHopHeaders {
		header.Del(key)
	}
}

// UpstreamRequest clones req and points it at upstream. The upstream path is
// prefixed to the request path. Host is rewritten to the upstream's unless
// preserveHost is set.
func UpstreamRequest(req *http.Request, upstream *url.URL, preserveHost bool) *http.Request {
	// Clone keeps method, headers, body, context, etc.
	outReq := req.Clone(req.Context())

	outReq.URL.Scheme = upstream.Scheme
	outReq.URL.Host = upstream.Host
	outReq.URL.Path = singleJoiningSlash(upstream.Path, req.URL.Path)
	outReq.URL.RawPath = ""

	// Required for http.Client.Do
	outReq.RequestURI = ""

	if preserveHost {
		outReq.Host = req.Host
	} else {
		outReq.Host = upstream.Host
	}

	RemoveHopByHopHeaders(outReq.Header)

	outReq.Header.Set("X-Forwarded-Host", req.Host)
	proto := "http"
	if req.TLS != nil {
		proto = "https"
	}
	if fwd := req.Header.Get("X-Forwarded-Proto"); fwd != "" {
		proto = fwd
	}
	outReq.Header.Set("X-Forwarded-Proto", proto)

	if ip, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		if prior := req.Header.Get("X-Forwarded-For"); prior != "" {
			ip = prior + ", " + ip
		}
		outReq.Header.Set("X-Forwarded-For", ip)
	}

	return outReq
}

// CopyHeader appends every value of src to dst.
func CopyHeader(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value) // key is case insensitive
		}
	}
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}
