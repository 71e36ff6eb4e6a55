package testutil

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/config"
	"github.com/leonardotrapani/listenin/internal/llm"
	"github.com/leonardotrapani/listenin/internal/recording"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Providers = map[string]config.ProviderConfig{
		"gemini": {APIKey: "test-api-key"},
	}
	cfg.Storage.Path = ":memory:"
	cfg.Notifications.Type = "none"
	return cfg
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

// MockAudioFrame creates a test audio frame
func MockAudioFrame(samples []int16) recording.AudioFrame {
	if samples == nil {
		samples = make([]int16, 512)
		for i := range samples {
			samples[i] = int16(i % 256)
		}
	}
	return recording.AudioFrame{Samples: samples, Timestamp: time.Now()}
}

// MockTransport implements the transcribe endpoint for session tests.
// Responses are consumed in order; once exhausted, TranscribeFunc or an empty transcript is used.
type MockTransport struct {
	TranscribeFunc func(ctx context.Context, req api.TranscribeRequest) (*api.TranscribeResponse, error)

	mu        sync.Mutex
	Responses []string
	Requests  []api.TranscribeRequest
}

func NewMockTransport(responses ...string) *MockTransport {
	return &MockTransport{Responses: responses}
}

func (m *MockTransport) Transcribe(ctx context.Context, req api.TranscribeRequest) (*api.TranscribeResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	fn := m.TranscribeFunc
	var text string
	if req.AudioData != "" && len(m.Responses) > 0 {
		text = m.Responses[0]
		m.Responses = m.Responses[1:]
		fn = nil
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &api.TranscribeResponse{Success: true, Transcript: text}, nil
}

// FrameRequests returns the non-probe requests received so far.
func (m *MockTransport) FrameRequests() []api.TranscribeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []api.TranscribeRequest
	for _, r := range m.Requests {
		if r.AudioData != "" {
			out = append(out, r)
		}
	}
	return out
}

// MockBackend implements llm.Backend for testing
type MockBackend struct {
	TranscribeText string
	SummaryJSON    string
	AnswerText     string
	Models         []llm.Model
	Err            error

	mu                 sync.Mutex
	TranscribeRequests []llm.TranscribeRequest
	SummarizeRequests  []llm.SummarizeRequest
	ChatRequests       []llm.ChatRequest
}

func NewMockBackend() *MockBackend {
	return &MockBackend{
		TranscribeText: "hello ",
		SummaryJSON:    ValidSummaryJSON,
		AnswerText:     "  The budget is owned by Bob.  ",
		Models: []llm.Model{{
			Name:             "models/gemini-2.0-flash",
			DisplayName:      "Gemini 2.0 Flash",
			Description:      "Fast multimodal model",
			SupportedActions: []string{"generateContent"},
		}},
	}
}

func (m *MockBackend) Name() string { return "mock" }

func (m *MockBackend) Transcribe(ctx context.Context, req llm.TranscribeRequest) (string, error) {
	m.mu.Lock()
	m.TranscribeRequests = append(m.TranscribeRequests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.TranscribeText, nil
}

func (m *MockBackend) Summarize(ctx context.Context, req llm.SummarizeRequest) (json.RawMessage, error) {
	m.mu.Lock()
	m.SummarizeRequests = append(m.SummarizeRequests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return json.RawMessage(m.SummaryJSON), nil
}

func (m *MockBackend) Answer(ctx context.Context, req llm.ChatRequest) (string, error) {
	m.mu.Lock()
	m.ChatRequests = append(m.ChatRequests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.AnswerText, nil
}

func (m *MockBackend) ListModels(ctx context.Context) ([]llm.Model, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Models, nil
}

// SummarizeCalls returns how many summarize requests were made.
func (m *MockBackend) SummarizeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SummarizeRequests)
}

// ValidSummaryJSON is a model response with every required field.
const ValidSummaryJSON = `{
  "overview": "The team reviewed the launch plan and agreed on owners.",
  "chapters": [{"timestamp": "00:00", "title": "Launch plan", "summary": "Walkthrough of the plan"}],
  "highlights": [{"quote": "We ship Friday", "speaker": "Alice", "timestamp": "01:10", "importance": "high"}],
  "actionItems": [
    {"task": "Update the changelog", "assignee": "Bob", "priority": "medium", "dueDate": null},
    {"task": "Book the demo room", "assignee": "Unassigned", "priority": "urgent", "dueDate": "Friday", "completed": true}
  ],
  "participants": ["Alice", "Bob"]
}`

// LongTranscript is comfortably above the summary threshold.
const LongTranscript = "Alice: we ship Friday. Bob: I will update the changelog before then. " +
	"Alice: great, and someone should book the demo room for the launch review."

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	out, _ := io.ReadAll(r)
	return string(out)
}
