package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/chojs23/seqmerge/internal/config"
)

// Styles is the rendered form of a config.Theme. Models carry their own
// Styles so several programs with different themes can coexist.
type Styles struct {
	Title       lipgloss.Style
	Header      lipgloss.Style
	Footer      lipgloss.Style
	Pane        lipgloss.Style
	CurrentPane lipgloss.Style
	LineNumber  lipgloss.Style
	Resolved    lipgloss.Style
	Unresolved  lipgloss.Style
	Toast       lipgloss.Style

	lines   map[lineCategory]lipgloss.Style
	current map[lineCategory]lipgloss.Style
}

func NewStyles(t config.Theme) Styles {
	fg := lipgloss.Color("230")
	pane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 1)

	s := Styles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Title)).Padding(0, 1),
		Header:      lipgloss.NewStyle().Bold(true).Background(lipgloss.Color(t.Header)).Foreground(fg).Padding(0, 2),
		Footer:      lipgloss.NewStyle().Background(lipgloss.Color(t.Footer)).Foreground(lipgloss.Color("243")).Padding(0, 2),
		Pane:        pane,
		CurrentPane: pane.BorderForeground(lipgloss.Color(t.Selected)),
		LineNumber:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Resolved:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Resolved)),
		Unresolved:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Unresolved)),
		Toast:       lipgloss.NewStyle().Background(lipgloss.Color(t.Resolved)).Foreground(lipgloss.Color("16")).Padding(0, 1),
	}

	s.lines = map[lineCategory]lipgloss.Style{
		categoryText:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		categoryLocal:      lipgloss.NewStyle().Foreground(fg).Background(lipgloss.Color(t.Local)),
		categoryLatest:     lipgloss.NewStyle().Foreground(fg).Background(lipgloss.Color(t.Latest)),
		categoryBase:       lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color(t.Base)),
		categoryResolved:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Resolved)),
		categoryUnresolved: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Unresolved)),
	}
	s.current = make(map[lineCategory]lipgloss.Style, len(s.lines))
	for c, style := range s.lines {
		s.current[c] = style.Bold(true)
	}
	s.current[categoryUnresolved] = s.lines[categoryUnresolved].Background(lipgloss.Color("88")).Foreground(lipgloss.Color(t.Selected))
	return s
}

func (s Styles) line(c lineCategory, current bool) lipgloss.Style {
	if current {
		if style, ok := s.current[c]; ok {
			return style
		}
	}
	if style, ok := s.lines[c]; ok {
		return style
	}
	return lipgloss.NewStyle()
}
