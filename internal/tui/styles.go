package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#93C5FD")
	colorError   = lipgloss.Color("#EF4444")
	colorSuccess = lipgloss.Color("#10B981")

	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1E40AF"))
	taglineStyle  = lipgloss.NewStyle().Foreground(colorPrimary)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).MarginTop(1).MarginBottom(1)
	labelStyle    = lipgloss.NewStyle().Bold(true)
	focusedStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	requiredStyle = lipgloss.NewStyle().Foreground(colorError)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError)
	noteStyle     = lipgloss.NewStyle().Foreground(colorSuccess).Italic(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	stepDone      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(colorPrimary).Padding(0, 1)
	stepTodo      = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	buttonStyle   = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted)
	primaryButton = buttonStyle.BorderForeground(colorPrimary).Foreground(colorPrimary).Bold(true)
	thanksStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorPrimary).Padding(1, 4).Align(lipgloss.Center)
	confettiStyle = lipgloss.NewStyle().Bold(true)
)
