package host

import (
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/ashpect/mxembed/pkg/config"
	"github.com/ashpect/mxembed/pkg/sso"
	"github.com/ashpect/mxembed/pkg/utils"
)

const (
	sessionName = "mx_host"
	userKey     = "user"
)

// Users is the mock user directory. The first entry is logged in on every
// new session.
var Users = []sso.User{
	{
		FirstName:   "Rene",
		LastName:    "Mueller",
		Email:       "rene2@minusx.ai",
		AccountID:   28,
		AccountName: "Customer-Acme",
	},
}

func init() {
	gob.Register(sso.User{})
}

// Server is the demo host app embedding Metabase through the proxy.
type Server struct {
	cfg      config.HostCfg
	signer   *sso.Signer
	sessions sessions.Store
}

func NewServer(cfg config.HostCfg) (*Server, error) {
	signer, err := sso.NewSigner(cfg.MetabaseSecret, cfg.MXSecret,
		sso.WithTTL(cfg.TokenTTL),
		sso.WithEmbedQuery(cfg.EmbedQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("sso signer: %w", err)
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("host.sessionSecret is not set")
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Server{cfg: cfg, signer: signer, sessions: store}, nil
}

// Router registers the demo pages, the SSO hop and static files.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/", redirect("/dashboard")).Methods(http.MethodGet)
	r.Handle("/analytics", redirect("/dashboard")).Methods(http.MethodGet)
	r.Handle("/editor", redirect("/mbql")).Methods(http.MethodGet)

	for _, page := range s.cfg.Pages {
		r.HandleFunc(page.Path, s.demoPage(page)).Methods(http.MethodGet)
	}

	r.HandleFunc("/question", s.question).Methods(http.MethodGet)
	r.HandleFunc("/question/{id}", s.question).Methods(http.MethodGet)
	r.HandleFunc("/sso/metabase", s.ssoMetabase).Methods(http.MethodGet)

	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir))),
	)
	return r
}

// NewHandler wires the host app with access logging.
func NewHandler(cfg *config.SystemCfg, logger zerolog.Logger) (http.Handler, error) {
	s, err := NewServer(cfg.Host)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("proxy", cfg.Host.ProxyURL).
		Int("pages", len(cfg.Host.Pages)).
		Msg("host configured")
	return utils.AccessChain(logger).Then(s.Router()), nil
}

func redirect(to string) http.Handler {
	return http.RedirectHandler(to, http.StatusFound)
}

func (s *Server) demoPage(page config.PageCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, r, page.Path, ssoFrame(page.IframePath))
	}
}

// question frames the proxy directly, relying on the session cookie set by an
// earlier SSO hop.
func (s *Server) question(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimSuffix(s.cfg.ProxyURL, "/")
	id := strings.TrimSpace(mux.Vars(r)["id"])
	// hashes may arrive encoded twice; keep '+', they are base64
	hash := r.URL.Query().Get("hash")
	if unescaped, err := url.PathUnescape(hash); err == nil {
		hash = unescaped
	}

	var src string
	switch {
	case id != "":
		src = base + "/question/" + id
	case hash != "":
		src = base + "/question#" + hash
	default:
		src = base + "/question"
	}
	s.renderPage(w, r, "/question", src)
}

func (s *Server) ssoMetabase(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	// a broken or foreign cookie yields a fresh session
	session, err := s.sessions.Get(r, sessionName)
	if err != nil {
		logger.Debug().Err(err).Msg("discarding session")
	}
	user, ok := session.Values[userKey].(sso.User)
	if !ok {
		user = Users[0]
		session.Values[userKey] = user
		if err := session.Save(r, w); err != nil {
			logger.Error().Err(err).Msg("save session")
		}
	}

	target, err := s.signer.RedirectURL(s.cfg.ProxyURL, user, r.URL.Query().Get("return_to"))
	if err != nil {
		logger.Error().Err(err).Msg("sign sso tokens")
		http.Error(w, "error signing tokens", http.StatusInternalServerError)
		return
	}
	logger.Debug().Str("user", user.Email).Msg("sso redirect")
	http.Redirect(w, r, target, http.StatusFound)
}
