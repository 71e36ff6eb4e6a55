package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/recording"
)

// GeminiBackend calls the Gemini API through the genai SDK.
type GeminiBackend struct {
	client *genai.Client
	config Config
}

// GeminiOption adjusts the genai client, mainly for tests.
type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL points the client at another host.
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(c *genai.ClientConfig) { c.HTTPOptions.BaseURL = baseURL }
}

func WithGeminiHTTPClient(hc *http.Client) GeminiOption {
	return func(c *genai.ClientConfig) { c.HTTPClient = hc }
}

func NewGeminiBackend(ctx context.Context, cfg Config, opts ...GeminiOption) (*GeminiBackend, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, apperr.Wrap(apperr.ConfigurationError, "gemini", fmt.Errorf("create client: %w", err))
	}
	return &GeminiBackend{client: client, config: cfg}, nil
}

func (b *GeminiBackend) Name() string { return "gemini" }

// Transcribe streams the model's output for one frame and joins the deltas.
func (b *GeminiBackend) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	if len(req.PCM) == 0 {
		return "", nil
	}

	wav := recording.WAV(req.PCM, req.SampleRate, 1)
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(wav, "audio/wav"),
			genai.NewPartFromText(TranscribePrompt(req.IsFirst)),
		}, genai.RoleUser),
	}

	start := time.Now()
	var out strings.Builder
	for resp, err := range b.client.Models.GenerateContentStream(ctx, b.config.TranscriptionModel, contents, nil) {
		if err != nil {
			log.Printf("gemini-backend: transcription failed after %v: %v", time.Since(start), err)
			return "", classify("transcribe", err, apperr.TranscriptionFailed)
		}
		out.WriteString(responseText(resp))
	}

	return out.String(), nil
}

func (b *GeminiBackend) Summarize(ctx context.Context, req SummarizeRequest) (json.RawMessage, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   SummarySchema(),
	}

	prompt := BuildSummaryPrompt(req.Transcript, req.Duration, req.Framework)

	start := time.Now()
	resp, err := b.client.Models.GenerateContent(ctx, b.config.SummaryModel, genai.Text(prompt), config)
	duration := time.Since(start)
	if err != nil {
		log.Printf("gemini-backend: summary failed after %v: %v", duration, err)
		return nil, classify("summarize", err, apperr.SummaryGenerationFailed)
	}
	if err := blocked(resp); err != nil {
		return nil, apperr.Wrap(apperr.ContentFiltered, "summarize", err)
	}

	text := strings.TrimSpace(responseText(resp))
	if !json.Valid([]byte(text)) {
		return nil, apperr.Wrap(apperr.MalformedResponse, "summarize", fmt.Errorf("model returned invalid JSON (%d bytes)", len(text)))
	}

	log.Printf("gemini-backend: summary generated in %v (%d bytes)", duration, len(text))
	return json.RawMessage(text), nil
}

func (b *GeminiBackend) Answer(ctx context.Context, req ChatRequest) (string, error) {
	prompt := BuildChatPrompt(req.Question, req.Transcript)

	resp, err := b.client.Models.GenerateContent(ctx, b.config.ChatModel, genai.Text(prompt), nil)
	if err != nil {
		log.Printf("gemini-backend: chat failed: %v", err)
		return "", classify("chat", err, apperr.QueryFailed)
	}
	if err := blocked(resp); err != nil {
		return "", apperr.Wrap(apperr.ContentFiltered, "chat", err)
	}
	return responseText(resp), nil
}

func (b *GeminiBackend) ListModels(ctx context.Context) ([]Model, error) {
	var models []Model
	for m, err := range b.client.Models.All(ctx) {
		if err != nil {
			return nil, classify("list-models", err, apperr.ServiceUnavailable)
		}
		models = append(models, Model{
			Name:             m.Name,
			DisplayName:      m.DisplayName,
			Description:      m.Description,
			SupportedActions: m.SupportedActions,
		})
	}
	return models, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return text.String()
}

// blocked reports a safety block on the prompt or the first candidate.
func blocked(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("SAFETY: prompt blocked (%s)", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return fmt.Errorf("SAFETY: response blocked")
	}
	return nil
}
