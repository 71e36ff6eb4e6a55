// Package chat answers questions about a single meeting transcript and keeps
// the local message log shown next to the answers.
package chat

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/apperr"
)

const MaxQuestionLength = 1000

// Apology replaces the assistant turn when a question could not be answered.
const Apology = "Sorry, I encountered an error processing your question. Please try again."

var SuggestedQuestions = []string{
	"What were the main decisions made?",
	"Who is responsible for what?",
	"What are the next steps?",
	"Summarize the key points",
}

type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Asker is the chat endpoint. *api.Client satisfies it.
type Asker interface {
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
}

// Conversation is the append-only history of one chat. The history is for
// display only and is never sent to the service.
type Conversation struct {
	client Asker
	now    func() time.Time

	mu      sync.Mutex
	history []Message
	asking  bool
}

func NewConversation(client Asker) *Conversation {
	return &Conversation{client: client, now: time.Now}
}

// Ask validates the question, then sends it with the full transcript. Invalid
// input fails with InvalidInput and leaves the history untouched. Any other
// failure appends Apology as the assistant turn.
func (c *Conversation) Ask(ctx context.Context, question, transcript, summaryID string) (string, error) {
	question = strings.TrimSpace(question)
	switch {
	case question == "":
		return "", apperr.New(apperr.InvalidInput, "ask", "question is required")
	case utf8.RuneCountInString(question) > MaxQuestionLength:
		return "", apperr.New(apperr.InvalidInput, "ask", "question too long (max 1000 characters)")
	case strings.TrimSpace(transcript) == "":
		return "", apperr.New(apperr.InvalidInput, "ask", "transcript is required")
	}

	c.mu.Lock()
	c.asking = true
	c.appendLocked(User, question)
	c.mu.Unlock()

	resp, err := c.client.Chat(ctx, api.ChatRequest{
		Question:   question,
		Transcript: transcript,
		SummaryID:  summaryID,
	})
	if err == nil && strings.TrimSpace(resp.Answer) == "" {
		err = apperr.New(apperr.QueryFailed, "ask", "empty answer")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.asking = false

	if err != nil {
		err = classify(err)
		log.Printf("Chat: question failed: %v", err)
		c.appendLocked(Assistant, Apology)
		return "", err
	}

	answer := strings.TrimSpace(resp.Answer)
	c.appendLocked(Assistant, answer)
	return answer, nil
}

func (c *Conversation) appendLocked(role Role, content string) {
	c.history = append(c.history, Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: c.now(),
	})
}

func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.history...)
}

// Asking reports whether a question is waiting for its answer.
func (c *Conversation) Asking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asking
}

func classify(err error) error {
	switch apperr.KindOf(err) {
	case apperr.QuotaExceeded, apperr.RateLimitExceeded, apperr.ConfigurationError, apperr.QueryFailed:
		return err
	}
	if apperr.FromMessage(err.Error(), "") == apperr.QuotaExceeded {
		return apperr.Wrap(apperr.QuotaExceeded, "ask", err)
	}
	return apperr.Wrap(apperr.QueryFailed, "ask", err)
}
