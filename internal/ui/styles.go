package ui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/lastscouser/configman-cli/internal/gateway"
)

var (
	// Color palette
	colorPrimary = lipgloss.Color("#10B981") // emerald, the configman brand colour
	colorBlue    = lipgloss.Color("#4A90E2") // border blue
	colorMuted   = lipgloss.Color("#6C757D") // gray
	colorDimmed  = lipgloss.Color("#3A3A3A") // very dim
	colorSuccess = lipgloss.Color("#6BCF7F") // green
	colorWarn    = lipgloss.Color("#F5A524") // amber
	colorDanger  = lipgloss.Color("#FF6B6B") // red
	colorWhite   = lipgloss.Color("#FFFFFF")

	// Title
	styleAppTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	// Panes
	styleMainBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Padding(0, 1)

	// Header bar
	styleHeaderBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#1A1A2E")).
			Foreground(colorWhite).
			Padding(0, 2)

	// Footer / help
	styleHelp = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleSystemMsg = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	styleTimestamp = lipgloss.NewStyle().
			Foreground(colorDimmed)

	// Status badges
	styleBadgeSignedIn = lipgloss.NewStyle().
				Foreground(colorSuccess).
				Bold(true)

	styleBadgeSignedOut = lipgloss.NewStyle().
				Foreground(colorMuted)

	styleBadgeFilter = lipgloss.NewStyle().
				Background(colorBlue).
				Foreground(colorWhite).
				Padding(0, 1).
				Bold(true)

	// Error
	styleError = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	// Sign-in screen
	styleSigninTitle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary).
				MarginBottom(1)

	styleSigninBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Padding(1, 3).
			Width(50)

	// Toasts
	styleToast = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(44)

	styleToastSummary = lipgloss.NewStyle().Bold(true)
)

// toastColor maps a severity to its border and summary color.
func toastColor(s gateway.Severity) lipgloss.Color {
	switch s {
	case gateway.SeverityError:
		return colorDanger
	case gateway.SeverityWarn:
		return colorWarn
	case gateway.SeveritySuccess:
		return colorSuccess
	default:
		return colorBlue
	}
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorDimmed).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorWhite).
		Background(colorPrimary).
		Bold(false)
	return s
}
