package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"bad origin", func(c *Config) { c.Server.AllowedOrigins = []string{"localhost"} }, "allowed_origins"},
		{"zero transcribe limit", func(c *Config) { c.RateLimits.Transcribe.Limit = 0 }, "rate_limits.transcribe.limit"},
		{"zero summarize window", func(c *Config) { c.RateLimits.Summarize.Window = 0 }, "rate_limits.summarize.window"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "mistral" }, "llm.provider"},
		{"stereo", func(c *Config) { c.Recording.Channels = 2 }, "recording.channels"},
		{"zero frame", func(c *Config) { c.Recording.FrameSamples = 0 }, "recording.frame_samples"},
		{"bad endpoint", func(c *Config) { c.Client.Endpoint = "::" }, "client.endpoint"},
		{"zero max records", func(c *Config) { c.Storage.MaxRecords = 0 }, "storage.max_records"},
		{"bad notification type", func(c *Config) { c.Notifications.Type = "sms" }, "notifications.type"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestConfig_APIKey(t *testing.T) {
	cfg := DefaultConfig()

	t.Setenv("GEMINI_API_KEY", "env-key")
	if got := cfg.APIKey("gemini"); got != "env-key" {
		t.Errorf("expected env fallback, got %q", got)
	}

	cfg.Providers["gemini"] = ProviderConfig{APIKey: "file-key"}
	if got := cfg.APIKey("gemini"); got != "file-key" {
		t.Errorf("config key should win over env, got %q", got)
	}

	if got := cfg.APIKey("unknown"); got != "" {
		t.Errorf("unknown provider should have no key, got %q", got)
	}
}

func TestConfig_ValidateServer(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg := DefaultConfig()
	if err := cfg.ValidateServer(); err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}
	cfg.Providers["gemini"] = ProviderConfig{APIKey: "k"}
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfig_LoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	t.Setenv(PathEnv, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
	if cfg.RateLimits.Summarize.Limit != 10 || cfg.RateLimits.Summarize.Window != time.Hour {
		t.Errorf("unexpected summarize limit: %+v", cfg.RateLimits.Summarize)
	}
}

func TestConfig_LoadFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
  addr = "0.0.0.0:9000"

[rate_limits.chat]
  limit = 5
  window = "30s"

[providers.openai]
  api_key = "sk-test"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.RateLimits.Chat.Limit != 5 || cfg.RateLimits.Chat.Window != 30*time.Second {
		t.Errorf("chat limit = %+v", cfg.RateLimits.Chat)
	}
	if cfg.RateLimits.Transcribe.Limit != 100 {
		t.Errorf("omitted keys should keep defaults, got %+v", cfg.RateLimits.Transcribe)
	}
	if cfg.APIKey("openai") != "sk-test" {
		t.Errorf("provider key not decoded")
	}
}

func TestConfig_LoadFileInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\naddr ="), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.LLM = DefaultModels("openai")
	cfg.Server.AllowedOrigins = []string{"https://example.com"}

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file should be private, got %v", info.Mode().Perm())
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if loaded.LLM.Provider != "openai" || loaded.LLM.TranscriptionModel != "whisper-1" {
		t.Errorf("llm config not persisted: %+v", loaded.LLM)
	}
	if len(loaded.Server.AllowedOrigins) != 1 || loaded.Server.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("origins not persisted: %v", loaded.Server.AllowedOrigins)
	}
}

func TestManager_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveTo(path, DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	m, err := NewManagerAt(path)
	if err != nil {
		t.Fatalf("NewManagerAt failed: %v", err)
	}

	var reloaded *Config
	m.OnReload(func(c *Config) { reloaded = c })

	updated := DefaultConfig()
	updated.RateLimits.Chat.Limit = 3
	if err := SaveTo(path, updated); err != nil {
		t.Fatal(err)
	}
	if !m.Reload() {
		t.Fatal("reload of valid config failed")
	}
	if m.GetConfig().RateLimits.Chat.Limit != 3 {
		t.Errorf("manager did not pick up new limit")
	}
	if reloaded == nil || reloaded.RateLimits.Chat.Limit != 3 {
		t.Errorf("reload hook not called with new config")
	}

	invalid := DefaultConfig()
	invalid.LLM.Provider = "nope"
	if err := SaveTo(path, invalid); err != nil {
		t.Fatal(err)
	}
	if m.Reload() {
		t.Fatal("invalid config should be rejected")
	}
	if m.GetConfig().LLM.Provider != "gemini" {
		t.Errorf("invalid reload must keep previous config")
	}
}
