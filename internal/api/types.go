package api

import "encoding/json"

// Paths served by internal/server and called by Client.
const (
	PathTranscribe = "/api/transcribe"
	PathSummarize  = "/api/summarize"
	PathChat       = "/api/chat"
	PathListModels = "/api/list-models"
)

// TranscribeRequest carries one base64 s16le frame. An empty AudioData is a
// connectivity probe.
type TranscribeRequest struct {
	AudioData string `json:"audioData"`
	IsFirst   bool   `json:"isFirst"`
}

type TranscribeResponse struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`
	Message    string `json:"message,omitempty"`
}

type SummarizeRequest struct {
	Transcript string `json:"transcript"`
	Duration   string `json:"duration"`
	Framework  string `json:"framework"`
}

// SummarizeResponse keeps the summary raw; the caller validates its shape.
type SummarizeResponse struct {
	Success bool            `json:"success"`
	Summary json.RawMessage `json:"summary"`
}

type ChatRequest struct {
	Question   string `json:"question"`
	Transcript string `json:"transcript"`
	SummaryID  string `json:"summaryId"`
}

type ChatResponse struct {
	Success   bool   `json:"success"`
	Answer    string `json:"answer"`
	SummaryID string `json:"summaryId"`
}

type ModelInfo struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	Description                string   `json:"description"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

type ListModelsResponse struct {
	Success bool        `json:"success"`
	Count   int         `json:"count"`
	Models  []ModelInfo `json:"models"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
