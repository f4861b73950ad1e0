package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	botStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("118"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// sanitize strips escape sequences and control characters from untrusted
// text so it cannot drive the terminal. Newlines and tabs survive.
func sanitize(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0):
			return -1
		}
		return r
	}, s)
}
