package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds all the styling for the TUI
type Styles struct {
	Header   lipgloss.Style
	Prompt   lipgloss.Style
	Reply    lipgloss.Style
	Degraded lipgloss.Style
	System   lipgloss.Style
	Error    lipgloss.Style
	Status   lipgloss.Style
	Footer   lipgloss.Style
	Border   lipgloss.Style
}

// NewStyles creates a new styles instance
func NewStyles() *Styles {
	return &Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 2).
			MarginBottom(1),

		Prompt: lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
		Reply:  lipgloss.NewStyle().Foreground(lipgloss.Color("250")),

		Degraded: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C")),

		System: lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),

		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true),

		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")),

		Footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")),
	}
}
