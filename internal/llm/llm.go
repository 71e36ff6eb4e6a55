// Package llm wraps the hosted generative models behind the four server
// endpoints: frame transcription, structured summary, transcript Q&A and
// model listing.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/meeting"
)

// Backend is one generative provider. Every error it returns is an *apperr.Error.
type Backend interface {
	Name() string
	Transcribe(ctx context.Context, req TranscribeRequest) (string, error)
	// Summarize returns the raw JSON object produced by the model.
	Summarize(ctx context.Context, req SummarizeRequest) (json.RawMessage, error)
	Answer(ctx context.Context, req ChatRequest) (string, error)
	ListModels(ctx context.Context) ([]Model, error)
}

// TranscribeRequest is one frame of mono s16le PCM.
type TranscribeRequest struct {
	PCM        []byte
	SampleRate int
	IsFirst    bool
}

type SummarizeRequest struct {
	Transcript string
	Duration   string
	Framework  meeting.Framework
}

type ChatRequest struct {
	Question   string
	Transcript string
}

type Model struct {
	Name             string
	DisplayName      string
	Description      string
	SupportedActions []string
}

type Config struct {
	Provider           string
	APIKey             string
	TranscriptionModel string
	SummaryModel       string
	ChatModel          string
}

// New creates the backend for cfg.Provider. A missing key is a ConfigurationError.
func New(ctx context.Context, cfg Config) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, apperr.New(apperr.ConfigurationError, "llm", fmt.Sprintf("%s API key not found", cfg.Provider))
	}
	switch cfg.Provider {
	case "gemini":
		return NewGeminiBackend(ctx, cfg)
	case "openai":
		return NewOpenAIBackend(cfg, ""), nil
	case "groq":
		return NewOpenAIBackend(cfg, GroqBaseURL), nil
	default:
		return nil, apperr.New(apperr.ConfigurationError, "llm", fmt.Sprintf("unsupported LLM provider: %s", cfg.Provider))
	}
}
