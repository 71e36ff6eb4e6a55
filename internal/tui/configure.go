package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/listenin/internal/config"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// AllProviders is the list of all supported generative backends
var AllProviders = []string{"gemini", "openai", "groq"}

var providerDisplayNames = map[string]string{
	"gemini": "Google Gemini",
	"openai": "OpenAI",
	"groq":   "Groq",
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionProviders     ConfigSection = "providers"
	SectionModels        ConfigSection = "models"
	SectionServer        ConfigSection = "server"
	SectionRecording     ConfigSection = "recording"
	SectionStorage       ConfigSection = "storage"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the configuration menu. A config without any key starts with
// the backend selection.
func Run(existingConfig *config.Config) (*ConfigureResult, error) {
	if existingConfig == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := existingConfig

	clearScreen()
	fmt.Println(Logo())
	fmt.Println()

	if !hasUserChanges(cfg) {
		if err := editModels(cfg); err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}
	}

	for {
		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg, Cancelled: false}, nil
			}

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionProviders:
			if err := editProviders(cfg); err != nil {
				continue
			}

		case SectionModels:
			if err := editModels(cfg); err != nil {
				continue
			}

		case SectionServer:
			if err := editServer(cfg); err != nil {
				continue
			}

		case SectionRecording:
			if err := editRecording(cfg); err != nil {
				continue
			}

		case SectionStorage:
			if err := editStorage(cfg); err != nil {
				continue
			}

		case SectionNotifications:
			if err := editNotifications(cfg); err != nil {
				continue
			}
		}

		clearScreen()
		fmt.Println(Logo())
		fmt.Println()
	}
}

// hasUserChanges detects if config has any API key configured
func hasUserChanges(cfg *config.Config) bool {
	return len(getConfiguredProviders(cfg)) > 0
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatProvidersLabel(cfg), SectionProviders),
		huh.NewOption(formatModelsLabel(cfg), SectionModels),
		huh.NewOption(formatServerLabel(cfg), SectionServer),
		huh.NewOption(formatRecordingLabel(cfg), SectionRecording),
		huh.NewOption(formatStorageLabel(cfg), SectionStorage),
		huh.NewOption(formatNotificationsLabel(cfg), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return selected, nil
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
