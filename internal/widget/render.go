package widget

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/zhouzirui/genie-widget/internal/config"
	"github.com/zhouzirui/genie-widget/internal/model/chat"
)

// Message text goes through html/template, so questions and answers are
// escaped. Line breaks come only from splitting bot text on "\n".
const entryTemplate = `<div id="msg-{{.ID}}" class="{{.Class}}"><b>{{.Label}}:</b> ` +
	`{{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</div>`

type entryView struct {
	ID    string
	Class string
	Label string
	Lines []string
}

// Renderer turns log entries into HTML fragments for the web host.
type Renderer struct {
	cfg  config.WidgetConfig
	tmpl *template.Template
}

// NewRenderer builds a renderer using the labels from cfg.
func NewRenderer(cfg config.WidgetConfig) *Renderer {
	return &Renderer{
		cfg:  cfg,
		tmpl: template.Must(template.New("entry").Parse(entryTemplate)),
	}
}

// Display maps visibility to the container's CSS display value.
func Display(visible bool) string {
	if visible {
		return "flex"
	}
	return "none"
}

// EntryHTML renders a single message element.
func (r *Renderer) EntryHTML(entry chat.Entry) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, r.view(entry)); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// LogHTML renders the whole log in display order.
func (r *Renderer) LogHTML(entries []chat.Entry) (template.HTML, error) {
	var sb strings.Builder
	for _, entry := range entries {
		fragment, err := r.EntryHTML(entry)
		if err != nil {
			return "", err
		}
		sb.WriteString(string(fragment))
	}
	return template.HTML(sb.String()), nil
}

func (r *Renderer) view(entry chat.Entry) entryView {
	v := entryView{ID: entry.ID}
	switch entry.Role {
	case chat.RoleUser:
		v.Class = "user-message message"
		v.Label = r.cfg.UserName
		v.Lines = []string{entry.Text}
	default:
		v.Class = "bot-message message"
		if entry.Pending {
			v.Class += " thinking"
		}
		if entry.Failed {
			v.Class += " failed"
		}
		v.Label = r.cfg.BotName
		v.Lines = strings.Split(entry.Text, "\n")
	}
	return v
}
