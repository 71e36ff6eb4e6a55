package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/recording"
)

const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIBackend serves OpenAI and any OpenAI-compatible API (Groq) through go-openai.
type OpenAIBackend struct {
	client *openai.Client
	config Config
	name   string
}

// NewOpenAIBackend creates a backend; baseURL "" means api.openai.com.
func NewOpenAIBackend(cfg Config, baseURL string) *OpenAIBackend {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	name := "openai"
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
		if baseURL == GroqBaseURL {
			name = "groq"
		}
	}
	return &OpenAIBackend{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		name:   name,
	}
}

func (b *OpenAIBackend) Name() string { return b.name }

// Transcribe sends one frame as a WAV file. Whisper-style models have no
// continuation mode, so IsFirst does not change the request.
func (b *OpenAIBackend) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	if len(req.PCM) == 0 {
		return "", nil
	}

	wav := recording.WAV(req.PCM, req.SampleRate, 1)
	areq := openai.AudioRequest{
		Model:    b.config.TranscriptionModel,
		Reader:   bytes.NewReader(wav),
		FilePath: "frame.wav",
	}

	start := time.Now()
	resp, err := b.client.CreateTranscription(ctx, areq)
	if err != nil {
		log.Printf("%s-backend: transcription failed after %v: %v", b.name, time.Since(start), err)
		return "", classify("transcribe", err, apperr.TranscriptionFailed)
	}
	return resp.Text, nil
}

func (b *OpenAIBackend) Summarize(ctx context.Context, req SummarizeRequest) (json.RawMessage, error) {
	creq := openai.ChatCompletionRequest{
		Model: b.config.SummaryModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryShapeHint},
			{Role: openai.ChatMessageRoleUser, Content: BuildSummaryPrompt(req.Transcript, req.Duration, req.Framework)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.3,
	}

	start := time.Now()
	text, err := b.complete(ctx, creq)
	duration := time.Since(start)
	if err != nil {
		log.Printf("%s-backend: summary failed after %v: %v", b.name, duration, err)
		return nil, classify("summarize", err, apperr.SummaryGenerationFailed)
	}

	text = strings.TrimSpace(text)
	if !json.Valid([]byte(text)) {
		return nil, apperr.Wrap(apperr.MalformedResponse, "summarize", fmt.Errorf("model returned invalid JSON (%d bytes)", len(text)))
	}

	log.Printf("%s-backend: summary generated in %v (%d bytes)", b.name, duration, len(text))
	return json.RawMessage(text), nil
}

func (b *OpenAIBackend) Answer(ctx context.Context, req ChatRequest) (string, error) {
	creq := openai.ChatCompletionRequest{
		Model: b.config.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildChatPrompt(req.Question, req.Transcript)},
		},
	}

	text, err := b.complete(ctx, creq)
	if err != nil {
		log.Printf("%s-backend: chat failed: %v", b.name, err)
		return "", classify("chat", err, apperr.QueryFailed)
	}
	return text, nil
}

func (b *OpenAIBackend) ListModels(ctx context.Context) ([]Model, error) {
	list, err := b.client.ListModels(ctx)
	if err != nil {
		return nil, classify("list-models", err, apperr.ServiceUnavailable)
	}

	models := make([]Model, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, Model{
			Name:        m.ID,
			DisplayName: m.ID,
			Description: "owned by " + m.OwnedBy,
		})
	}
	return models, nil
}

func (b *OpenAIBackend) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no response choices")
	}
	if resp.Choices[0].FinishReason == openai.FinishReasonContentFilter {
		return "", apperr.New(apperr.ContentFiltered, "chat completion", "SAFETY: response blocked by content filter")
	}
	return resp.Choices[0].Message.Content, nil
}
