package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("63"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)
