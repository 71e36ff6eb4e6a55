package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/listenin/internal/meeting"
)

var (
	// Header style for titles and section headers
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Subtle style for hints and descriptions
	StyleSubtle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true)

	StyleHighlight = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	StyleRecording = lipgloss.NewStyle().
			Foreground(ColorRecording).
			Bold(true)

	// Box style for bordered containers
	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1)
)

// LevelStyle colors a priority or importance level.
func LevelStyle(l meeting.Level) lipgloss.Style {
	switch l {
	case meeting.High:
		return StyleError
	case meeting.Low:
		return StyleMuted
	}
	return StyleWarning
}

const logoASCII = `
 _ _     _             _
| (_)___| |_ ___ _ __ (_)_ __
| | / __| __/ _ \ '_ \| | '_ \
| | \__ \ ||  __/ | | | | | | |
|_|_|___/\__\___|_| |_|_|_| |_|`

// Logo returns the listenin ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
