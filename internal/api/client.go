package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/leonardotrapani/listenin/internal/apperr"
)

// StatusError is a non-2xx reply from the server.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Client talks to the listenin HTTP endpoints. Every error it returns is an
// *apperr.Error classified by status code first and body text second.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResponse, error) {
	var resp TranscribeResponse
	if err := c.do(ctx, http.MethodPost, PathTranscribe, req, &resp, apperr.TranscriptionFailed); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	var resp SummarizeResponse
	if err := c.do(ctx, http.MethodPost, PathSummarize, req, &resp, apperr.SummaryGenerationFailed); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, PathChat, req, &resp, apperr.QueryFailed); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListModels(ctx context.Context) (*ListModelsResponse, error) {
	var resp ListModelsResponse
	if err := c.do(ctx, http.MethodGet, PathListModels, nil, &resp, apperr.ServiceUnavailable); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, fallback apperr.Kind) error {
	op := strings.TrimPrefix(path, "/api/")

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return apperr.Wrap(apperr.InvalidInput, op, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperr.Wrap(fallback, op, fmt.Errorf("create request: %w", err))
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(fallback, op, fmt.Errorf("%s request: %w", op, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(fallback, op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorText(data)
		log.Printf("api: %s returned status %d: %s", op, resp.StatusCode, msg)
		kind := apperr.FromStatus(resp.StatusCode, msg, fallback)
		return apperr.Wrap(kind, op, &StatusError{Status: resp.StatusCode, Message: msg})
	}

	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Wrap(apperr.MalformedResponse, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func errorText(body []byte) string {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		return strings.TrimSpace(string(body))
	}
	if e.Message != "" {
		return e.Error + ": " + e.Message
	}
	return e.Error
}
