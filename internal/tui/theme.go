package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rickgao/eva-client/internal/notify"
)

type theme struct {
	header      lipgloss.Style
	apiActive   lipgloss.Style
	apiInactive lipgloss.Style
	inputPanel  lipgloss.Style
	inputLocked lipgloss.Style
	status      lipgloss.Style
	statusOpen  lipgloss.Style
	help        lipgloss.Style
	kinds       map[notify.Kind]lipgloss.Style
}

func newTheme() theme {
	pink := lipgloss.Color("#ff71ce")
	blue := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	amber := lipgloss.Color("#ffd166")
	text := lipgloss.Color("#f3f3ff")
	muted := lipgloss.Color("#9ca3d8")

	return theme{
		header: lipgloss.NewStyle().
			Foreground(text).
			Bold(true),
		apiActive: lipgloss.NewStyle().
			Foreground(mint).
			Bold(true),
		apiInactive: lipgloss.NewStyle().
			Foreground(muted),
		inputPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue),
		inputLocked: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted),
		status:     lipgloss.NewStyle().Foreground(muted),
		statusOpen: lipgloss.NewStyle().Foreground(mint),
		help:       lipgloss.NewStyle().Foreground(muted).Italic(true),
		kinds: map[notify.Kind]lipgloss.Style{
			notify.KindUser:      lipgloss.NewStyle().Foreground(blue).Bold(true),
			notify.KindAssistant: lipgloss.NewStyle().Foreground(mint).Bold(true),
			notify.KindSystem:    lipgloss.NewStyle().Foreground(muted).Bold(true),
			notify.KindWarning:   lipgloss.NewStyle().Foreground(amber).Bold(true),
			notify.KindError:     lipgloss.NewStyle().Foreground(pink).Bold(true),
		},
	}
}
