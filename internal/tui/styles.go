package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7D56F4")
	colorSuccess = lipgloss.Color("#38A169")
	colorError   = lipgloss.Color("#E53E3E")
	colorSubtext = lipgloss.Color("#A0AEC0")
	colorText    = lipgloss.Color("#FAFAFA")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Bold(true)

	speedStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	stateStyles = map[string]lipgloss.Style{
		"downloading": lipgloss.NewStyle().Foreground(colorPrimary),
		"completed":   lipgloss.NewStyle().Foreground(colorSuccess),
		"failed":      lipgloss.NewStyle().Foreground(colorError),
		"paused":      lipgloss.NewStyle().Foreground(colorSubtext),
		"pending":     lipgloss.NewStyle().Foreground(colorText),
	}

	containerStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Italic(true)
)

func stateStyle(state string) lipgloss.Style {
	if s, ok := stateStyles[state]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
