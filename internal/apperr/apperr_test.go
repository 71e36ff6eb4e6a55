package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromMessage(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		fallback Kind
		want     Kind
	}{
		{"quota anywhere", "RESOURCE_EXHAUSTED: quota exceeded for project X", TranscriptionFailed, QuotaExceeded},
		{"quota mid sentence", "upstream said the daily quota is gone", QueryFailed, QuotaExceeded},
		{"api key", "API key not valid. Please pass a valid API key.", TranscriptionFailed, ConfigurationError},
		{"api key constant", "missing GEMINI_API_KEY", TranscriptionFailed, ConfigurationError},
		{"safety", "candidate blocked: SAFETY", SummaryGenerationFailed, ContentFiltered},
		{"other", "connection reset by peer", TranscriptionFailed, TranscriptionFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FromMessage(tc.msg, tc.fallback); got != tc.want {
				t.Errorf("FromMessage(%q) = %s, want %s", tc.msg, got, tc.want)
			}
		})
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		msg    string
		want   Kind
	}{
		{http.StatusTooManyRequests, "API quota exceeded. Please try again later.", QuotaExceeded},
		{http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", RateLimitExceeded},
		{http.StatusForbidden, "anything", PermissionError},
		{http.StatusForbidden, "Project quota exhausted for this key", QuotaExceeded},
		{http.StatusTooManyRequests, "Rate limit reached: daily quota used up", QuotaExceeded},
		{http.StatusInternalServerError, "RESOURCE_EXHAUSTED", QuotaExceeded},
		{http.StatusBadRequest, "Content filtered by safety settings. Please review transcript.", ContentFiltered},
		{http.StatusBadRequest, "Transcript too short. Need at least 50 characters for meaningful summary.", InputTooShort},
		{http.StatusBadRequest, "Invalid audio data format", InvalidInput},
		{http.StatusInternalServerError, "Server configuration error. API key not found.", ConfigurationError},
		{http.StatusInternalServerError, "boom", SummaryGenerationFailed},
	}

	for _, tc := range tests {
		if got := FromStatus(tc.status, tc.msg, SummaryGenerationFailed); got != tc.want {
			t.Errorf("FromStatus(%d, %q) = %s, want %s", tc.status, tc.msg, got, tc.want)
		}
	}
}

func TestErrorIsAndKindOf(t *testing.T) {
	base := errors.New("raw upstream text")
	err := fmt.Errorf("send frame: %w", Wrap(QuotaExceeded, "transcribe", base))

	if !errors.Is(err, Sentinel(QuotaExceeded)) {
		t.Errorf("expected errors.Is to match QuotaExceeded")
	}
	if errors.Is(err, Sentinel(ConfigurationError)) {
		t.Errorf("did not expect ConfigurationError match")
	}
	if !errors.Is(err, base) {
		t.Errorf("expected cause to be reachable through Unwrap")
	}
	if KindOf(err) != QuotaExceeded {
		t.Errorf("KindOf = %s", KindOf(err))
	}
	if KindOf(base) != "" {
		t.Errorf("unclassified error should have empty kind")
	}
}

func TestUserMessageHidesRawText(t *testing.T) {
	err := Wrap(TranscriptionFailed, "transcribe", errors.New("secret internal stack trace"))
	msg := UserMessage(err)
	if msg == "" || msg == err.Error() {
		t.Fatalf("unexpected user message: %q", msg)
	}
	if UserMessage(errors.New("x")) == "x" {
		t.Errorf("unclassified errors must not leak raw text")
	}
}

func TestKindPolicy(t *testing.T) {
	if !ConfigurationError.Fatal() || ConfigurationError.Retryable() {
		t.Errorf("configuration errors are fatal and not retryable")
	}
	if !QuotaExceeded.Retryable() || QuotaExceeded.Fatal() {
		t.Errorf("quota errors are retryable later")
	}
	if InvalidInput.Retryable() {
		t.Errorf("invalid input is a caller bug, not retryable")
	}
}
