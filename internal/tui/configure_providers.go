package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/listenin/internal/config"
)

// getProviderDisplayName returns the display name for a provider
func getProviderDisplayName(providerName string) string {
	if name, ok := providerDisplayNames[providerName]; ok {
		return name
	}
	return providerName
}

// maskAPIKey returns a masked version of an API key for display
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// ValidateAPIKey checks the key format a provider is known to use.
func ValidateAPIKey(providerName, key string) bool {
	switch providerName {
	case "openai":
		return strings.HasPrefix(key, "sk-")
	case "groq":
		return strings.HasPrefix(key, "gsk_")
	case "gemini":
		return strings.HasPrefix(key, "AIza")
	}
	return len(key) > 0
}

// getConfiguredProviders returns the sorted providers with API keys
func getConfiguredProviders(cfg *config.Config) []string {
	var providers []string
	for name, pc := range cfg.Providers {
		if pc.APIKey != "" {
			providers = append(providers, name)
		}
	}
	sort.Strings(providers)
	return providers
}

// editProviders lets the user set the API key of any provider
func editProviders(cfg *config.Config) error {
	for {
		var options []huh.Option[string]
		for _, name := range AllProviders {
			options = append(options, huh.NewOption(formatProviderOption(cfg, name), name))
		}
		options = append(options, huh.NewOption("Done", "back"))

		var selected string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Provider Settings").
					Description("Select a provider to configure API key").
					Options(options...).
					Value(&selected),
			),
		).WithTheme(getTheme())

		if err := form.Run(); err != nil {
			return err
		}

		if selected == "back" {
			return nil
		}

		apiKey, err := configureSingleProvider(cfg, selected)
		if err != nil {
			continue
		}
		setAPIKey(cfg, selected, apiKey)
	}
}

func setAPIKey(cfg *config.Config, providerName, apiKey string) {
	if apiKey == "" {
		return
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]config.ProviderConfig)
	}
	cfg.Providers[providerName] = config.ProviderConfig{APIKey: apiKey}
}

// formatProviderOption formats a provider menu option with status
func formatProviderOption(cfg *config.Config, name string) string {
	status := "(not configured)"
	if pc, exists := cfg.Providers[name]; exists && pc.APIKey != "" {
		status = "(configured)"
	}

	switch name {
	case "gemini":
		return fmt.Sprintf("Google Gemini - audio transcription + summaries %s", status)
	case "openai":
		return fmt.Sprintf("OpenAI - Whisper + GPT %s", status)
	case "groq":
		return fmt.Sprintf("Groq - Whisper + Llama %s", status)
	default:
		return fmt.Sprintf("%s %s", name, status)
	}
}

// configureSingleProvider asks whether to replace an existing key, then
// prompts for a new one. An empty result means the current key is kept.
func configureSingleProvider(cfg *config.Config, providerName string) (string, error) {
	if pc, exists := cfg.Providers[providerName]; exists && pc.APIKey != "" {
		var update bool
		confirmForm := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("%s API Key", getProviderDisplayName(providerName))).
					Description(fmt.Sprintf("Current: %s", maskAPIKey(pc.APIKey))).
					Affirmative("Update key").
					Negative("Keep current").
					Value(&update),
			),
		).WithTheme(getTheme())

		if err := confirmForm.Run(); err != nil {
			return "", err
		}
		if !update {
			return "", nil
		}
	}

	return inputAPIKey(providerName)
}

func inputAPIKey(providerName string) (string, error) {
	displayName := getProviderDisplayName(providerName)

	var apiKey string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("%s API Key", displayName)).
				Description(fmt.Sprintf("Enter your %s API key", displayName)).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("API key is required")
					}
					if !ValidateAPIKey(providerName, s) {
						return fmt.Errorf("invalid API key format for %s", displayName)
					}
					return nil
				}),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return apiKey, nil
}

// editModels selects the backend provider and its three models. Switching
// provider resets the models to that provider's defaults.
func editModels(cfg *config.Config) error {
	selectedProvider := cfg.LLM.Provider

	var options []huh.Option[string]
	for _, name := range AllProviders {
		options = append(options, huh.NewOption(getProviderDisplayName(name), name))
	}

	providerForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Backend Provider").
				Description(fmt.Sprintf("Currently: %s", cfg.LLM.Provider)).
				Options(options...).
				Value(&selectedProvider),
		),
	).WithTheme(getTheme())

	if err := providerForm.Run(); err != nil {
		return err
	}

	if selectedProvider != cfg.LLM.Provider {
		cfg.LLM = config.DefaultModels(selectedProvider)
	}

	if cfg.APIKey(selectedProvider) == "" {
		apiKey, err := inputAPIKey(selectedProvider)
		if err != nil {
			return err
		}
		setAPIKey(cfg, selectedProvider, apiKey)
	}

	transcription := cfg.LLM.TranscriptionModel
	summaryModel := cfg.LLM.SummaryModel
	chatModel := cfg.LLM.ChatModel

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Transcription Model").
				Description("Model that turns each audio frame into text").
				Value(&transcription).
				Validate(requireNonEmpty),
			huh.NewInput().
				Title("Summary Model").
				Description("Model that produces the structured meeting summary").
				Value(&summaryModel).
				Validate(requireNonEmpty),
			huh.NewInput().
				Title("Chat Model").
				Description("Model that answers questions about a transcript").
				Value(&chatModel).
				Validate(requireNonEmpty),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.LLM = config.LLMConfig{
		Provider:           selectedProvider,
		TranscriptionModel: strings.TrimSpace(transcription),
		SummaryModel:       strings.TrimSpace(summaryModel),
		ChatModel:          strings.TrimSpace(chatModel),
	}
	return nil
}

func requireNonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}
