package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	HasDarkBackground = lipgloss.HasDarkBackground()

	PrimaryColor = func() string {
		if HasDarkBackground {
			return "117"
		}
		return "25"
	}()

	SecondaryColor = "31"

	WarningColor = "214"

	// ErrorColor is used for error states
	ErrorColor = "196"

	// SuccessColor is used for success states
	SuccessColor = func() string {
		if HasDarkBackground {
			return "42"
		}
		return "34"
	}()
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(PrimaryColor)).
			MarginBottom(1)

	HeadingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(PrimaryColor))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(SuccessColor))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ErrorColor))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(WarningColor))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// NoColor reports whether color output is disabled via the environment
// (NO_COLOR, CLICOLOR=0, etc).
func NoColor() bool {
	return termenv.EnvNoColor()
}
