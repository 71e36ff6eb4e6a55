package config

import (
	"fmt"
	"net/url"
)

var validProviders = map[string]bool{"gemini": true, "openai": true, "groq": true}

func (c *Config) Validate() error {
	// Server
	if c.Server.Addr == "" {
		return fmt.Errorf("invalid server.addr: empty")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("invalid server.request_timeout: %v", c.Server.RequestTimeout)
	}
	for _, origin := range c.Server.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid server.allowed_origins entry: %q", origin)
		}
	}

	// Rate limits
	for name, rl := range map[string]RateLimit{
		"transcribe": c.RateLimits.Transcribe,
		"chat":       c.RateLimits.Chat,
		"summarize":  c.RateLimits.Summarize,
	} {
		if rl.Limit <= 0 {
			return fmt.Errorf("invalid rate_limits.%s.limit: %d", name, rl.Limit)
		}
		if rl.Window <= 0 {
			return fmt.Errorf("invalid rate_limits.%s.window: %v", name, rl.Window)
		}
	}
	if c.RateLimits.SweepInterval <= 0 {
		return fmt.Errorf("invalid rate_limits.sweep_interval: %v", c.RateLimits.SweepInterval)
	}

	// LLM
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider: %q (must be gemini, openai, or groq)", c.LLM.Provider)
	}
	if c.LLM.TranscriptionModel == "" {
		return fmt.Errorf("invalid llm.transcription_model: empty")
	}
	if c.LLM.SummaryModel == "" {
		return fmt.Errorf("invalid llm.summary_model: empty")
	}
	if c.LLM.ChatModel == "" {
		return fmt.Errorf("invalid llm.chat_model: empty")
	}

	// Recording
	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels != 1 {
		return fmt.Errorf("invalid recording.channels: %d (only mono is supported)", c.Recording.Channels)
	}
	if c.Recording.FrameSamples <= 0 {
		return fmt.Errorf("invalid recording.frame_samples: %d", c.Recording.FrameSamples)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if c.Recording.LevelInterval <= 0 {
		return fmt.Errorf("invalid recording.level_interval: %v", c.Recording.LevelInterval)
	}

	// Client
	if u, err := url.Parse(c.Client.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid client.endpoint: %q", c.Client.Endpoint)
	}
	if c.Client.SendTimeout <= 0 {
		return fmt.Errorf("invalid client.send_timeout: %v", c.Client.SendTimeout)
	}

	// Storage
	if c.Storage.Path == "" {
		return fmt.Errorf("invalid storage.path: empty")
	}
	if c.Storage.MaxRecords <= 0 {
		return fmt.Errorf("invalid storage.max_records: %d", c.Storage.MaxRecords)
	}

	// Notifications
	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}

// ValidateServer checks what `serve` additionally needs: a key for the provider.
func (c *Config) ValidateServer() error {
	if c.APIKey(c.LLM.Provider) == "" {
		env := providerEnvVars[c.LLM.Provider]
		return fmt.Errorf("%s API key required: not found in config (providers.%s.api_key) or environment variable (%s)",
			c.LLM.Provider, c.LLM.Provider, env)
	}
	return nil
}
