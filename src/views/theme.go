package views

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette of the terminal views. Colors are ANSI
// 256-color codes.
type Theme struct {
	Title   lipgloss.Color
	Faint   lipgloss.Color
	Accent  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	User    lipgloss.Color
	Agent   lipgloss.Color
}

// DefaultTheme targets dark terminals.
var DefaultTheme = Theme{
	Title:   lipgloss.Color("75"),
	Faint:   lipgloss.Color("245"),
	Accent:  lipgloss.Color("180"),
	Success: lipgloss.Color("114"),
	Warning: lipgloss.Color("214"),
	Error:   lipgloss.Color("203"),
	User:    lipgloss.Color("111"),
	Agent:   lipgloss.Color("151"),
}

type styles struct {
	title   lipgloss.Style
	faint   lipgloss.Style
	accent  lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	user    lipgloss.Style
	agent   lipgloss.Style
	indent  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, t Theme) styles {
	return styles{
		title:   r.NewStyle().Foreground(t.Title).Bold(true),
		faint:   r.NewStyle().Foreground(t.Faint),
		accent:  r.NewStyle().Foreground(t.Accent),
		success: r.NewStyle().Foreground(t.Success).Bold(true),
		warning: r.NewStyle().Foreground(t.Warning).Bold(true),
		err:     r.NewStyle().Foreground(t.Error).Bold(true),
		user:    r.NewStyle().Foreground(t.User).Bold(true),
		agent:   r.NewStyle().Foreground(t.Agent).Bold(true),
		indent:  r.NewStyle().PaddingLeft(2),
	}
}
