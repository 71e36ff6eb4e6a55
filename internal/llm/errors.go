package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/leonardotrapani/listenin/internal/apperr"
)

// classify turns a provider error into an *apperr.Error. Provider status codes
// decide first; message text is the fallback.
func classify(op string, err error, fallback apperr.Kind) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Wrap(fallback, op, err)
	}

	status, msg := statusOf(err)
	var kind apperr.Kind
	if status != 0 {
		kind = fromProviderStatus(status, msg, fallback)
	} else {
		kind = apperr.FromMessage(msg, fallback)
		if kind != apperr.QuotaExceeded && (strings.Contains(strings.ToLower(msg), "permission") || strings.Contains(msg, "PERMISSION_DENIED")) {
			kind = apperr.PermissionError
		}
	}
	return apperr.Wrap(kind, op, err)
}

// fromProviderStatus differs from apperr.FromStatus for upstream replies: a
// provider 429 is always quota and a 400 naming a key is a credential problem.
func fromProviderStatus(status int, msg string, fallback apperr.Kind) apperr.Kind {
	if apperr.IsQuotaMessage(msg) {
		return apperr.QuotaExceeded
	}
	switch status {
	case 429:
		return apperr.QuotaExceeded
	case 401:
		return apperr.ConfigurationError
	case 403:
		return apperr.PermissionError
	case 400:
		if k := apperr.FromMessage(msg, ""); k == apperr.ConfigurationError || k == apperr.ContentFiltered {
			return k
		}
		return fallback
	}
	return apperr.FromMessage(msg, fallback)
}

func statusOf(err error) (int, string) {
	var gerr genai.APIError
	if errors.As(err, &gerr) {
		return gerr.Code, gerr.Status + ": " + gerr.Message
	}
	var gerrPtr *genai.APIError
	if errors.As(err, &gerrPtr) {
		return gerrPtr.Code, gerrPtr.Status + ": " + gerrPtr.Message
	}
	var oerr *openai.APIError
	if errors.As(err, &oerr) {
		return oerr.HTTPStatusCode, oerr.Message
	}
	var rerr *openai.RequestError
	if errors.As(err, &rerr) {
		return rerr.HTTPStatusCode, rerr.Error()
	}
	return 0, err.Error()
}
