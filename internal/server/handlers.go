package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/llm"
	"github.com/leonardotrapani/listenin/internal/meeting"
)

const maxQuestionLength = 1000

var errMissingKey = api.ErrorResponse{Error: "Server configuration error. API key not found."}

// backendError maps a classified backend error to a status and a body that
// never carries the raw upstream text. generic is the endpoint's 500 body.
func backendError(err error, generic api.ErrorResponse) (int, api.ErrorResponse) {
	switch apperr.KindOf(err) {
	case apperr.QuotaExceeded:
		return http.StatusTooManyRequests, api.ErrorResponse{Error: "API quota exceeded. Please try again later."}
	case apperr.ConfigurationError:
		return http.StatusInternalServerError, api.ErrorResponse{Error: "API key configuration error", Message: "Server configuration error"}
	case apperr.PermissionError:
		return http.StatusForbidden, api.ErrorResponse{Error: "API key does not have permission. Enable Generative Language API."}
	case apperr.ContentFiltered:
		return http.StatusBadRequest, api.ErrorResponse{Error: "Content filtered by safety settings. Please review transcript."}
	}
	return http.StatusInternalServerError, generic
}

func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	if d := s.requestTimeout(); d > 0 {
		return context.WithTimeout(r.Context(), d)
	}
	return context.WithCancel(r.Context())
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		writeError(w, http.StatusInternalServerError, errMissingKey)
		return
	}

	var req struct {
		AudioData *string `json:"audioData"`
		IsFirst   bool    `json:"isFirst"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AudioData == nil {
		writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "Invalid audio data format"})
		return
	}

	if *req.AudioData == "" {
		writeJSON(w, http.StatusOK, api.TranscribeResponse{
			Success:    true,
			Transcript: "",
			Message:    "Connection test successful",
		})
		return
	}

	pcm, err := base64.StdEncoding.DecodeString(*req.AudioData)
	if err != nil || len(pcm)%2 != 0 {
		writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "Invalid audio data format"})
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	text, err := s.backend.Transcribe(ctx, llm.TranscribeRequest{
		PCM:        pcm,
		SampleRate: s.sampleRate,
		IsFirst:    req.IsFirst,
	})
	if err != nil {
		log.Printf("Server: transcription error: %v", err)
		status, body := backendError(err, api.ErrorResponse{Error: "Transcription failed. Please try again."})
		writeError(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, api.TranscribeResponse{Success: true, Transcript: text})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		writeError(w, http.StatusInternalServerError, errMissingKey)
		return
	}

	var req struct {
		Transcript *string `json:"transcript"`
		Duration   string  `json:"duration"`
		Framework  string  `json:"framework"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Transcript == nil || *req.Transcript == "" {
		writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "Invalid transcript data"})
		return
	}
	if utf8.RuneCountInString(*req.Transcript) < meeting.MinSummaryLength {
		writeError(w, http.StatusBadRequest, api.ErrorResponse{
			Error: "Transcript too short. Need at least 50 characters for meaningful summary.",
		})
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	raw, err := s.backend.Summarize(ctx, llm.SummarizeRequest{
		Transcript: *req.Transcript,
		Duration:   req.Duration,
		Framework:  meeting.FrameworkOrDefault(req.Framework),
	})
	if err != nil {
		log.Printf("Server: summary generation error: %v", err)
		status, body := backendError(err, api.ErrorResponse{Error: "Failed to generate summary. Please try again."})
		writeError(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, api.SummarizeResponse{Success: true, Summary: raw})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "Question is required"})
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "Question is required"})
		return
	}
	if req.Transcript == "" {
		writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "Transcript is required"})
		return
	}
	if utf8.RuneCountInString(req.Question) > maxQuestionLength {
		writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "Question too long (max 1000 characters)"})
		return
	}

	if s.backend == nil {
		writeError(w, http.StatusInternalServerError, errMissingKey)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	answer, err := s.backend.Answer(ctx, llm.ChatRequest{Question: question, Transcript: req.Transcript})
	if err != nil {
		log.Printf("Server: chat error: %v", err)
		status, body := backendError(err, api.ErrorResponse{
			Error:   "Internal server error",
			Message: "Failed to process your question. Please try again.",
		})
		writeError(w, status, body)
		return
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		writeError(w, http.StatusInternalServerError, api.ErrorResponse{
			Error:   "Empty response from AI",
			Message: "Failed to generate answer",
		})
		return
	}

	writeJSON(w, http.StatusOK, api.ChatResponse{Success: true, Answer: answer, SummaryID: req.SummaryID})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		writeError(w, http.StatusInternalServerError, errMissingKey)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	models, err := s.backend.ListModels(ctx)
	if err != nil {
		log.Printf("Server: list models error: %v", err)
		status, body := backendError(err, api.ErrorResponse{Error: "Failed to list models"})
		writeError(w, status, body)
		return
	}

	out := make([]api.ModelInfo, 0, len(models))
	for _, m := range models {
		out = append(out, api.ModelInfo{
			Name:                       m.Name,
			DisplayName:                m.DisplayName,
			Description:                m.Description,
			SupportedGenerationMethods: m.SupportedActions,
		})
	}
	writeJSON(w, http.StatusOK, api.ListModelsResponse{Success: true, Count: len(out), Models: out})
}
