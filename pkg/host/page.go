package host

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/ashpect/mxembed/pkg/config"
)

const pageTitle = "MinusX Embedded Demo"

//go:embed templates/page.html
var templateFiles embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFiles, "templates/page.html"))

type pageData struct {
	Title     string
	Pages     []config.PageCfg
	Active    string
	IframeSrc string
}

// ssoFrame is the iframe src for a demo page. The browser logs in through the
// host first and lands on iframePath afterwards.
func ssoFrame(iframePath string) string {
	return "/sso/metabase?return_to=" + iframePath
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, active, iframeSrc string) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		Title:     pageTitle,
		Pages:     s.cfg.Pages,
		Active:    active,
		IframeSrc: iframeSrc,
	})
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render page")
		http.Error(w, "error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
