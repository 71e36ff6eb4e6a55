// Package apperr classifies transport and service failures into the kinds
// callers act on. Classification happens once, next to the call site.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	PermissionDenied        Kind = "permission_denied"
	CaptureError            Kind = "capture_error"
	ConfigurationError      Kind = "configuration_error"
	QuotaExceeded           Kind = "quota_exceeded"
	ContentFiltered         Kind = "content_filtered"
	InputTooShort           Kind = "input_too_short"
	InvalidInput            Kind = "invalid_input"
	TranscriptionFailed     Kind = "transcription_failed"
	SummaryGenerationFailed Kind = "summary_generation_failed"
	QueryFailed             Kind = "query_failed"
	MalformedResponse       Kind = "malformed_response"
	RateLimitExceeded       Kind = "rate_limit_exceeded"
	ServiceUnavailable      Kind = "service_unavailable"
	PermissionError         Kind = "permission_error"
)

// Fatal kinds need an operator and are never retried.
func (k Kind) Fatal() bool {
	return k == ConfigurationError || k == PermissionError
}

// Retryable kinds are safe for the caller to attempt again, possibly after a cooldown.
func (k Kind) Retryable() bool {
	switch k {
	case QuotaExceeded, RateLimitExceeded, TranscriptionFailed,
		SummaryGenerationFailed, QueryFailed, ServiceUnavailable:
		return true
	}
	return false
}

// Error is a classified failure. Err keeps the raw cause for logs.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind, so errors.Is(err, apperr.New(k, ...))
// and errors.Is(err, apperr.Sentinel(k)) both work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Wrapf(kind Kind, op string, err error, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Sentinel returns a bare error of the given kind for use with errors.Is.
func Sentinel(kind Kind) error {
	return &Error{Kind: kind}
}

// KindOf returns the kind of the first classified error in the chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FromStatus maps an HTTP status plus the error text of the body onto a kind.
// Quota text always wins; otherwise the status decides and the text only
// refines or fills in.
func FromStatus(status int, msg string, fallback Kind) Kind {
	if IsQuotaMessage(msg) {
		return QuotaExceeded
	}
	lower := strings.ToLower(msg)
	switch status {
	case http.StatusTooManyRequests:
		if strings.Contains(lower, "rate limit") {
			return RateLimitExceeded
		}
		return QuotaExceeded
	case http.StatusForbidden:
		return PermissionError
	case http.StatusBadRequest:
		switch {
		case strings.Contains(lower, "safety"):
			return ContentFiltered
		case strings.Contains(lower, "too short"):
			return InputTooShort
		}
		return InvalidInput
	}
	return FromMessage(msg, fallback)
}

// FromMessage classifies by substrings of the upstream error text.
func FromMessage(msg string, fallback Kind) Kind {
	lower := strings.ToLower(msg)
	switch {
	case IsQuotaMessage(msg):
		return QuotaExceeded
	case strings.Contains(msg, "API key") || strings.Contains(msg, "API_KEY"):
		return ConfigurationError
	case strings.Contains(msg, "SAFETY"):
		return ContentFiltered
	case strings.Contains(lower, "rate limit"):
		return RateLimitExceeded
	}
	return fallback
}

// IsQuotaMessage reports whether upstream error text names an exhausted quota.
func IsQuotaMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

var userMessages = map[Kind]string{
	PermissionDenied:        "Microphone access was denied. Allow microphone access and try again.",
	CaptureError:            "The microphone could not be started.",
	ConfigurationError:      "The service is not configured correctly. Please contact the administrator.",
	QuotaExceeded:           "API quota exceeded. Please try again later.",
	ContentFiltered:         "Content was filtered by safety settings. Please review the transcript and try again.",
	InputTooShort:           "Transcript too short for summary generation.",
	InvalidInput:            "The request was not valid.",
	TranscriptionFailed:     "Failed to process audio.",
	SummaryGenerationFailed: "Failed to generate summary. Please try again.",
	QueryFailed:             "Failed to process your question. Please try again.",
	MalformedResponse:       "The service returned an unexpected response.",
	RateLimitExceeded:       "Rate limit exceeded. Please slow down.",
	ServiceUnavailable:      "Failed to connect to transcription service.",
	PermissionError:         "The service credential does not have permission for this operation.",
}

// UserMessage returns text safe to show an end user. Raw upstream text never leaks.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := userMessages[KindOf(err)]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}
