package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/listenin/internal/config"
)

func formatProvidersLabel(cfg *config.Config) string {
	configured := getConfiguredProviders(cfg)
	if len(configured) == 0 {
		return "API Keys (none configured)"
	}
	return fmt.Sprintf("API Keys (%s)", strings.Join(configured, ", "))
}

func formatModelsLabel(cfg *config.Config) string {
	return fmt.Sprintf("Backend & Models (%s)", cfg.LLM.Provider)
}

func formatServerLabel(cfg *config.Config) string {
	return fmt.Sprintf("Server (%s)", cfg.Server.Addr)
}

func formatRecordingLabel(cfg *config.Config) string {
	return fmt.Sprintf("Recording (rate=%d, frame=%d)", cfg.Recording.SampleRate, cfg.Recording.FrameSamples)
}

func formatStorageLabel(cfg *config.Config) string {
	return fmt.Sprintf("Storage (keep %d)", cfg.Storage.MaxRecords)
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (off)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

// summaryLines lists the settings shown before saving.
func summaryLines(cfg *config.Config) []string {
	keys := make([]string, 0, len(cfg.Providers))
	for _, name := range getConfiguredProviders(cfg) {
		keys = append(keys, fmt.Sprintf("%s %s", name, maskAPIKey(cfg.Providers[name].APIKey)))
	}
	notifications := "disabled"
	if cfg.Notifications.Enabled {
		notifications = cfg.Notifications.Type
	}

	return []string{
		fmt.Sprintf("%s %s", StyleLabel.Render("Provider:"), cfg.LLM.Provider),
		fmt.Sprintf("%s %s / %s / %s", StyleLabel.Render("Models:"), cfg.LLM.TranscriptionModel, cfg.LLM.SummaryModel, cfg.LLM.ChatModel),
		fmt.Sprintf("%s %s", StyleLabel.Render("API keys:"), strings.Join(keys, ", ")),
		fmt.Sprintf("%s %s", StyleLabel.Render("Server:"), cfg.Server.Addr),
		fmt.Sprintf("%s %s", StyleLabel.Render("Endpoint:"), cfg.Client.Endpoint),
		fmt.Sprintf("%s %d Hz, %d samples/frame", StyleLabel.Render("Recording:"), cfg.Recording.SampleRate, cfg.Recording.FrameSamples),
		fmt.Sprintf("%s %s (max %d)", StyleLabel.Render("Storage:"), cfg.Storage.Path, cfg.Storage.MaxRecords),
		fmt.Sprintf("%s %s", StyleLabel.Render("Notifications:"), notifications),
	}
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	for _, line := range summaryLines(cfg) {
		fmt.Println("  " + line)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println()
		fmt.Println("  " + StyleError.Render(err.Error()))
	}
	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirmed, nil
}
