package proxy

import (
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/hlog"

	"github.com/ashpect/mxembed/pkg/bundle"
)

const (
	dashboardPrefix     = "/api/dashboard/"
	dashboardWriteError = "Dashboard updates are not allowed"
)

// Routes are the handlers that take precedence over the upstream proxy.
type Routes struct {
	// EmbedHost is published on /minusx.json.
	EmbedHost string
	// Files maps exact paths to local files.
	Files   map[string]string
	Bundles bundle.Server
	// Proxy receives everything else.
	Proxy http.Handler
}

// NewRouter registers routes in dispatch order: exact paths, bundle paths,
// then the proxy catch-all.
func NewRouter(routes Routes) *mux.Router {
	r := mux.NewRouter()
	// paths go upstream byte for byte
	r.SkipClean(true)

	configCors := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	})
	r.Handle("/minusx.json", configCors.Handler(embedConfigHandler(routes.EmbedHost))).
		Methods(http.MethodGet, http.MethodHead, http.MethodOptions)

	for path, file := range routes.Files {
		r.Handle(path, localFileHandler(file)).Methods(http.MethodGet, http.MethodHead)
	}

	r.MatcherFunc(isDashboardWrite).HandlerFunc(forbidDashboardWrite)

	if routes.Bundles != nil {
		for _, path := range bundle.Paths {
			r.Handle(path, routes.Bundles)
		}
	}

	r.PathPrefix("/").Handler(routes.Proxy)
	return r
}

func embedConfigHandler(embedHost string) http.Handler {
	body, _ := json.Marshal(map[string]string{"embed_host": embedHost})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
}

func localFileHandler(file string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, file)
	})
}

// dashboardID returns the id of a /api/dashboard/{id} path. Matching ignores
// case, repeated or trailing slashes and dot segments, so the path cannot be
// dressed up to slip past the write block.
func dashboardID(p string) (string, bool) {
	p = strings.ToLower(path.Clean("/" + p))
	rest, ok := strings.CutPrefix(p, dashboardPrefix)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

func isDashboardWrite(r *http.Request, _ *mux.RouteMatch) bool {
	if r.Method != http.MethodPut && r.Method != http.MethodDelete {
		return false
	}
	_, ok := dashboardID(r.URL.Path)
	return ok
}

func forbidDashboardWrite(w http.ResponseWriter, r *http.Request) {
	id, _ := dashboardID(r.URL.Path)
	rejectedWrites.Inc()
	hlog.FromRequest(r).Info().Str("dashboard", id).Msg("rejected dashboard write")
	writeJSONError(w, http.StatusForbidden, dashboardWriteError)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
