package widget

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed assets/index.html
var indexHTML string

var pageTemplate = template.Must(template.New("index").Parse(indexHTML))

type pageData struct {
	BotName     string
	SocketPath  string
	PendingText string
}

// ServePage renders the host page with the widget regions.
func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		BotName:     h.cfg.BotName,
		SocketPath:  "/api/widget/ws",
		PendingText: h.cfg.PendingText,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to render widget page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
