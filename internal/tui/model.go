// Package tui hosts the chat widget in a terminal. The bubbletea Update loop
// is the single thread that mutates the widget; answers come back as
// messages in completion order.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/genie-widget/internal/model/chat"
	"github.com/zhouzirui/genie-widget/internal/service/answer"
	"github.com/zhouzirui/genie-widget/internal/widget"
)

// answerMsg carries the Answer Service result for one placeholder.
type answerMsg struct {
	req    widget.Request
	answer string
	err    error
}

// Model is the bubbletea model around a widget.
type Model struct {
	ctx    context.Context
	widget *widget.Widget
	asker  answer.Asker

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int
}

// NewModel builds the terminal view of w. Requests are issued through asker
// and bound to ctx.
func NewModel(ctx context.Context, w *widget.Widget, asker answer.Asker) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask " + w.Config().BotName + "..."
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)

	m := Model{
		ctx:      ctx,
		widget:   w,
		asker:    asker,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		width:    80,
		height:   24,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-4)
		m.input.Width = max(1, msg.Width-4)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case answerMsg:
		m.widget.Resolve(msg.req, msg.answer, msg.err)
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if m.widget.InFlight() == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+t":
		m.widget.Toggle()
		return m, nil
	case "ctrl+l":
		m.widget.Clear()
		m.refresh()
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if !m.widget.Visible() {
		return m, nil
	}

	if msg.Type == tea.KeyEnter {
		return m.send()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.widget.SetInput(m.input.Value())
	return m, cmd
}

func (m Model) send() (tea.Model, tea.Cmd) {
	m.widget.SetInput(m.input.Value())
	wasIdle := m.widget.InFlight() == 0

	req, ok := m.widget.Submit()
	if !ok {
		return m, nil
	}
	m.input.SetValue(m.widget.Input())
	m.refresh()
	m.viewport.GotoBottom()

	log.Debug().Str("entry_id", req.EntryID).Msg("question submitted")

	cmds := []tea.Cmd{ask(m.ctx, m.asker, req)}
	if wasIdle {
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func ask(ctx context.Context, asker answer.Asker, req widget.Request) tea.Cmd {
	return func() tea.Msg {
		reply, err := widget.Ask(ctx, asker, req.Question)
		return answerMsg{req: req, answer: reply, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderLog(m.widget.Snapshot().Entries))
}

func (m Model) renderLog(entries []chat.Entry) string {
	cfg := m.widget.Config()
	wrap := lipgloss.NewStyle().Width(max(1, m.width))

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		text := sanitize(e.Text)
		var line string
		switch {
		case e.Role == chat.RoleUser:
			line = userStyle.Render(cfg.UserName+":") + " " + text
		case e.Pending:
			line = botStyle.Render(cfg.BotName+":") + " " + pendingStyle.Render(text)
		case e.Failed:
			line = botStyle.Render(cfg.BotName+":") + " " + errorStyle.Render(text)
		default:
			line = botStyle.Render(cfg.BotName+":") + " " + text
		}
		lines = append(lines, wrap.Render(line))
	}
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	cfg := m.widget.Config()
	if !m.widget.Visible() {
		return headerStyle.Render("[ "+cfg.BotName+" ]") + "\n" +
			helpStyle.Render("ctrl+t open • esc quit")
	}

	header := headerStyle.Render(cfg.BotName + " Assistant")
	if m.widget.InFlight() > 0 {
		header += " " + m.spinner.View()
	}

	return header + "\n" +
		m.viewport.View() + "\n" +
		m.input.View() + "\n" +
		helpStyle.Render("enter send • ctrl+l clear • ctrl+t close • esc quit")
}

// Run starts the terminal program and blocks until the user quits.
func Run(ctx context.Context, w *widget.Widget, asker answer.Asker) error {
	p := tea.NewProgram(NewModel(ctx, w, asker), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
