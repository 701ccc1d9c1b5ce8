package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashpect/mxembed/pkg/assets"
	"github.com/ashpect/mxembed/pkg/config"
)

const (
	scriptTag = `<script src="/contentScript.bundle.js"></script>`
	extOrigin = "https://web.minusxapi.com"
)

type fakeUpstream struct {
	*httptest.Server
	calls atomic.Int32
	paths sync.Map
}

func newFakeUpstream(t *testing.T, h http.HandlerFunc) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.paths.Store(r.URL.Path, true)
		h(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func metabase(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, ".css"):
		w.Header().Set("Content-Type", "text/css")
		_, _ = io.WriteString(w, "body{color:red}")
	case r.URL.Path == "/auth/sso":
		http.Redirect(w, r, "/", http.StatusFound)
	case strings.HasPrefix(r.URL.Path, "/api/"):
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":42}`)
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-src 'self'")
		_, _ = io.WriteString(w, "<html><head><title>Metabase</title></head><body></body></html>")
	}
}

func testConfig(upstream, extension string) *config.SystemCfg {
	cfg := config.Default()
	cfg.Proxy.UpstreamURL = upstream
	cfg.Proxy.ExtensionURL = extension + "/extension-build"
	cfg.Proxy.EmbedHost = "https://embed.example.com"
	cfg.Proxy.Files = nil
	return cfg
}

func newTestHandler(t *testing.T, cfg *config.SystemCfg) http.Handler {
	t.Helper()
	h, err := NewHandler(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestProxy_injectsScriptAndPatchesCSP(t *testing.T) {
	upstream := newFakeUpstream(t, metabase)
	ext := newFakeUpstream(t, http.NotFound)
	h := newTestHandler(t, testConfig(upstream.URL, ext.URL))

	rec := do(h, http.MethodGet, "/dashboard/1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html><head><title>Metabase</title>"+scriptTag+"</head><body></body></html>", rec.Body.String())
	assert.Equal(t, "default-src 'self'; frame-src 'self' "+extOrigin, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "", rec.Header().Get("Cache-Control"))
}

func TestProxy_devModeAddsDevOrigin(t *testing.T) {
	upstream := newFakeUpstream(t, metabase)
	cfg := testConfig(upstream.URL, "http://unused.invalid")
	cfg.Proxy.Mode = config.ModeDev
	cfg.Proxy.ExtensionDir = t.TempDir()
	h := newTestHandler(t, cfg)

	rec := do(h, http.MethodGet, "/")
	assert.Equal(t, "default-src 'self'; frame-src 'self' "+extOrigin+" http://localhost:3005",
		rec.Header().Get("Content-Security-Policy"))
}

func TestProxy_gzipUpstreamIsRewritten(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			_, _ = io.WriteString(w, "<head></head>")
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = io.WriteString(gz, "<head></head>")
		_ = gz.Close()
	})
	ext := newFakeUpstream(t, http.NotFound)
	h := newTestHandler(t, testConfig(upstream.URL, ext.URL))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "<head>"+scriptTag+"</head>", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
}

func TestProxy_cachedAssetSkipsUpstream(t *testing.T) {
	upstream := newFakeUpstream(t, metabase)
	ext := newFakeUpstream(t, http.NotFound)
	h := newTestHandler(t, testConfig(upstream.URL, ext.URL))

	first := do(h, http.MethodGet, "/app/dist/styles.css")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "public, max-age=3600", first.Header().Get("Cache-Control"))
	assert.NotEmpty(t, first.Header().Get("Expires"))

	second := do(h, http.MethodGet, "/app/dist/styles.css")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "body{color:red}", second.Body.String())
	assert.Equal(t, "text/css", second.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", second.Header().Get("Cache-Control"))
	assert.NotEmpty(t, second.Header().Get("Expires"))

	assert.Equal(t, int32(1), upstream.calls.Load())
}

func TestProxy_jsonIsCachedButNotServedFromCache(t *testing.T) {
	upstream := newFakeUpstream(t, metabase)
	ext := newFakeUpstream(t, http.NotFound)
	h := newTestHandler(t, testConfig(upstream.URL, ext.URL))

	first := do(h, http.MethodGet, "/api/card/1")
	assert.Equal(t, "public, max-age=3600", first.Header().Get("Cache-Control"))
	_ = do(h, http.MethodGet, "/api/card/1")

	assert.Equal(t, int32(2), upstream.calls.Load())
}

func TestProxy_cacheDisabled(t *testing.T) {
	upstream := newFakeUpstream(t, metabase)
	ext := newFakeUpstream(t, http.NotFound)
	cfg := testConfig(upstream.URL, ext.URL)
	cfg.Cache.Enabled = false
	h := newTestHandler(t, cfg)

	_ = do(h, http.MethodGet, "/a.css")
	_ = do(h, http.MethodGet, "/a.css")
	assert.Equal(t, int32(2), upstream.calls.Load())
}

func TestProxy_concurrentFirstFetch(t *testing.T) {
	release := make(chan struct{})
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = io.WriteString(w, "console.log(1)")
	})
	u, _ := url.Parse(upstream.URL)
	store, err := assets.NewLRUStore(16, 0)
	require.NoError(t, err)
	p := NewProxy(u, WithAssets(store))

	var wg sync.WaitGroup
	bodies := make([]string, 2)
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app/main.js", nil))
			bodies[i] = rec.Body.String()
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []string{"console.log(1)", "console.log(1)"}, bodies)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, int32(1), upstream.calls.Load())
	asset, ok := store.Lookup("/app/main.js")
	require.True(t, ok)
	assert.Equal(t, "application/javascript", asset.ContentType)
}

func TestProxy_conditionalRequestIsNotShared(t *testing.T) {
	release := make(chan struct{})
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("ETag", `"v1"`)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = io.WriteString(w, "console.log(1)")
	})
	u, _ := url.Parse(upstream.URL)
	store, err := assets.NewLRUStore(16, 0)
	require.NoError(t, err)
	p := NewProxy(u, WithAssets(store))

	revalidate := httptest.NewRequest(http.MethodGet, "/app/main.js", nil)
	revalidate.Header.Set("If-None-Match", `"v1"`)
	plain := httptest.NewRequest(http.MethodGet, "/app/main.js", nil)

	recs := []*httptest.ResponseRecorder{httptest.NewRecorder(), httptest.NewRecorder()}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.ServeHTTP(recs[0], revalidate)
	}()
	require.Eventually(t, func() bool { return upstream.calls.Load() == 1 }, time.Second, time.Millisecond)
	go func() {
		defer wg.Done()
		p.ServeHTTP(recs[1], plain)
	}()
	require.Eventually(t, func() bool { return upstream.calls.Load() == 2 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, http.StatusNotModified, recs[0].Code)
	assert.Empty(t, recs[0].Body.String())
	assert.Equal(t, http.StatusOK, recs[1].Code)
	assert.Equal(t, "console.log(1)", recs[1].Body.String())

	asset, ok := store.Lookup("/app/main.js")
	require.True(t, ok)
	assert.Equal(t, "console.log(1)", string(asset.Body))
}

func TestProxy_rangeRequestIsNotCollapsed(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/app/main.js", nil)
	assert.True(t, collapsible(r))

	r.Header.Set("Range", "bytes=0-10")
	assert.False(t, collapsible(r))

	r = httptest.NewRequest(http.MethodGet, "/app/main.js", nil)
	r.Header.Set("If-Modified-Since", "Thu, 02 Jan 2025 04:04:05 GMT")
	assert.False(t, collapsible(r))
}

func TestProxy_dashboardWritesForbidden(t *testing.T) {
	upstream := newFakeUpstream(t, metabase)
	ext := newFakeUpstream(t, http.NotFound)
	h := newTestHandler(t, testConfig(upstream.URL, ext.URL))

	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		rec := do(h, method, "/api/dashboard/42")
		assert.Equal(t, http.StatusForbidden, rec.Code, method)
		assert.JSONEq(t, `{"error":"Dashboard updates are not allowed"}`, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
	assert.Equal(t, int32(0), upstream.calls.Load())

	rec := do(h, http.MethodGet, "/api/dashboard/42")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), upstream.calls.Load())
}

func TestProxy_dashboardWritesForbiddenOnPathVariants(t *testing.T) {
	upstream := newFakeUpstream(t, metabase)
	ext := newFakeUpstream(t, http.NotFound)
	h := newTestHandler(t, testConfig(upstream.URL, ext.URL))

	for _, target := range []string{
		"/api/dashboard/42/",
		"/api//dashboard/42",
		"/API/Dashboard/42",
		"/api/./dashboard/42",
	} {
		rec := do(h, http.MethodPut, target)
		assert.Equal(t, http.StatusForbidden, rec.Code, target)
	}
	assert.Equal(t, int32(0), upstream.calls.Load())
}

func TestDashboardID(t *testing.T) {
	tests := []struct {
		path string
		id   string
		ok   bool
	}{
		{"/api/dashboard/42", "42", true},
		{"/api/dashboard/42/", "42", true},
		{"//api//dashboard//42", "42", true},
		{"/api/dashboard/", "", false},
		{"/api/dashboard/42/cards", "", false},
		{"/api/card/42", "", false},
	}
	for _, tt := range tests {
		id, ok := dashboardID(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.id, id, tt.path)
	}
}

func TestProxy_ssoCookieAndRedirectPassthrough(t *testing.T) {
	upstream := newFakeUpstream(t, metabase)
	ext := newFakeUpstream(t, http.NotFound)
	h := newTestHandler(t, testConfig(upstream.URL, ext.URL))

	rec := do(h, http.MethodGet, "/auth/sso?jwt=a.b.c&mx_jwt=abc123&return_to=/")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookie := rec.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(cookie, "mx_jwt=abc123"), cookie)
	assert.Contains(t, cookie, "Secure")
	assert.Contains(t, cookie, "SameSite=None")
}

func TestProxy_embedConfig(t *testing.T) {
	upstream := newFakeUpstream(t, metabase)
	ext := newFakeUpstream(t, http.NotFound)
	h := newTestHandler(t, testConfig(upstream.URL, ext.URL))

	req := httptest.NewRequest(http.MethodGet, "/minusx.json", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"embed_host":"https://embed.example.com"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, int32(0), upstream.calls.Load())
}

func TestProxy_localFileRoute(t *testing.T) {
	upstream := newFakeUpstream(t, metabase)
	ext := newFakeUpstream(t, http.NotFound)
	css := filepath.Join(t.TempDir(), "custom.css")
	require.NoError(t, os.WriteFile(css, []byte(".custom{}"), 0o600))
	cfg := testConfig(upstream.URL, ext.URL)
	cfg.Proxy.Files = map[string]string{"/minusx.css": css}
	h := newTestHandler(t, cfg)

	rec := do(h, http.MethodGet, "/minusx.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ".custom{}", rec.Body.String())
	assert.Equal(t, int32(0), upstream.calls.Load())
}

func TestProxy_bundleRoutes(t *testing.T) {
	t.Run("dev mode reads the build dir", func(t *testing.T) {
		upstream := newFakeUpstream(t, metabase)
		ext := newFakeUpstream(t, http.NotFound)
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "content.styles.css"), []byte(".local{}"), 0o600))
		cfg := testConfig(upstream.URL, ext.URL)
		cfg.Proxy.Mode = config.ModeDev
		cfg.Proxy.ExtensionDir = dir
		h := newTestHandler(t, cfg)

		rec := do(h, http.MethodGet, "/content.styles.css")
		assert.Equal(t, ".local{}", rec.Body.String())
		assert.Equal(t, int32(0), upstream.calls.Load())
		assert.Equal(t, int32(0), ext.calls.Load())
	})

	t.Run("prod mode proxies to the extension target", func(t *testing.T) {
		upstream := newFakeUpstream(t, metabase)
		ext := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/css")
			_, _ = io.WriteString(w, ".remote{}")
		})
		h := newTestHandler(t, testConfig(upstream.URL, ext.URL))

		rec := do(h, http.MethodGet, "/content.styles.css")
		assert.Equal(t, ".remote{}", rec.Body.String())
		assert.Equal(t, int32(0), upstream.calls.Load())
		assert.Equal(t, int32(1), ext.calls.Load())
		_, ok := ext.paths.Load("/extension-build/content.styles.css")
		assert.True(t, ok)
	})
}

func TestProxy_upstreamDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	ext := newFakeUpstream(t, http.NotFound)
	h := newTestHandler(t, testConfig(dead.URL, ext.URL))

	rec := do(h, http.MethodGet, "/dashboard/1")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
