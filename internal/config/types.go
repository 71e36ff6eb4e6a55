package config

import (
	"os"
	"time"
)

type Config struct {
	Server        ServerConfig              `toml:"server"`
	RateLimits    RateLimitsConfig          `toml:"rate_limits"`
	LLM           LLMConfig                 `toml:"llm"`
	Providers     map[string]ProviderConfig `toml:"providers"`
	Recording     RecordingConfig           `toml:"recording"`
	Client        ClientConfig              `toml:"client"`
	Storage       StorageConfig             `toml:"storage"`
	Notifications NotificationsConfig       `toml:"notifications"`
}

// ServerConfig configures the HTTP proxy in front of the generative backend
type ServerConfig struct {
	Addr           string        `toml:"addr"`
	AllowedOrigins []string      `toml:"allowed_origins"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// RateLimit is a fixed-window ceiling per client
type RateLimit struct {
	Limit  int           `toml:"limit"`
	Window time.Duration `toml:"window"`
}

type RateLimitsConfig struct {
	Transcribe    RateLimit     `toml:"transcribe"`
	Chat          RateLimit     `toml:"chat"`
	Summarize     RateLimit     `toml:"summarize"`
	SweepInterval time.Duration `toml:"sweep_interval"`
}

// LLMConfig selects the generative backend and its models
type LLMConfig struct {
	Provider           string `toml:"provider"` // "gemini", "openai", "groq"
	TranscriptionModel string `toml:"transcription_model"`
	SummaryModel       string `toml:"summary_model"`
	ChatModel          string `toml:"chat_model"`
}

// ProviderConfig holds API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

type RecordingConfig struct {
	SampleRate        int           `toml:"sample_rate"`
	Channels          int           `toml:"channels"`
	FrameSamples      int           `toml:"frame_samples"`
	Device            string        `toml:"device"`
	ChannelBufferSize int           `toml:"channel_buffer_size"`
	LevelInterval     time.Duration `toml:"level_interval"`
}

// ClientConfig is how the recorder reaches the HTTP endpoints
type ClientConfig struct {
	Endpoint    string        `toml:"endpoint"`
	SendTimeout time.Duration `toml:"send_timeout"`
}

type StorageConfig struct {
	Path       string `toml:"path"`
	MaxRecords int    `toml:"max_records"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

var providerEnvVars = map[string]string{
	"gemini": "GEMINI_API_KEY",
	"openai": "OPENAI_API_KEY",
	"groq":   "GROQ_API_KEY",
}

// APIKey resolves the key for a provider: config first, then environment.
func (c *Config) APIKey(provider string) string {
	if pc, ok := c.Providers[provider]; ok && pc.APIKey != "" {
		return pc.APIKey
	}
	if env, ok := providerEnvVars[provider]; ok {
		return os.Getenv(env)
	}
	return ""
}
