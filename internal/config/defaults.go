package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
			AllowedOrigins: []string{
				"https://listeninc.vercel.app",
				"http://localhost:5173",
				"http://localhost:5174",
				"http://localhost:3000",
			},
			RequestTimeout: 60 * time.Second,
		},
		RateLimits: RateLimitsConfig{
			Transcribe:    RateLimit{Limit: 100, Window: time.Minute},
			Chat:          RateLimit{Limit: 30, Window: time.Minute},
			Summarize:     RateLimit{Limit: 10, Window: time.Hour},
			SweepInterval: 5 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:           "gemini",
			TranscriptionModel: "gemini-2.0-flash",
			SummaryModel:       "gemini-2.0-flash",
			ChatModel:          "gemini-2.0-flash",
		},
		Providers: make(map[string]ProviderConfig),
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			FrameSamples:      4096,
			Device:            "",
			ChannelBufferSize: 8,
			LevelInterval:     16 * time.Millisecond,
		},
		Client: ClientConfig{
			Endpoint:    "http://127.0.0.1:8787",
			SendTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Path:       defaultStoragePath(),
			MaxRecords: 50,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "log",
		},
	}
}

// DefaultModels returns per-provider model defaults, used when the provider
// is switched in the configure wizard.
func DefaultModels(provider string) LLMConfig {
	switch provider {
	case "openai":
		return LLMConfig{Provider: provider, TranscriptionModel: "whisper-1", SummaryModel: "gpt-4o-mini", ChatModel: "gpt-4o-mini"}
	case "groq":
		return LLMConfig{Provider: provider, TranscriptionModel: "whisper-large-v3-turbo", SummaryModel: "llama-3.3-70b-versatile", ChatModel: "llama-3.3-70b-versatile"}
	}
	return DefaultConfig().LLM
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "listenin.sqlite"
	}
	return filepath.Join(dir, "listenin", "meetings.sqlite")
}
