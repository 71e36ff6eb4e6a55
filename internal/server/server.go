// Package server is the HTTP boundary in front of the generative backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/config"
	"github.com/leonardotrapani/listenin/internal/llm"
)

type Server struct {
	backend    llm.Backend // nil when no credential is configured
	sampleRate int

	mu      sync.RWMutex
	origins map[string]bool
	addr    string
	timeout time.Duration
	sweep   time.Duration

	transcribe *Limiter
	chat       *Limiter
	summarize  *Limiter
}

// New builds a server from cfg. A nil backend is allowed: every endpoint then
// answers 500 with a configuration error, which is what the client probe detects.
func New(cfg *config.Config, backend llm.Backend) *Server {
	rl := cfg.RateLimits
	s := &Server{
		backend:    backend,
		sampleRate: cfg.Recording.SampleRate,
		transcribe: NewLimiter(rl.Transcribe.Limit, rl.Transcribe.Window),
		chat:       NewLimiter(rl.Chat.Limit, rl.Chat.Window),
		summarize:  NewLimiter(rl.Summarize.Limit, rl.Summarize.Window),
	}
	s.applyConfig(cfg)
	return s
}

// UpdateConfig applies a reloaded config: allowed origins and rate ceilings.
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.applyConfig(cfg)
	rl := cfg.RateLimits
	s.transcribe.SetLimit(rl.Transcribe.Limit, rl.Transcribe.Window)
	s.chat.SetLimit(rl.Chat.Limit, rl.Chat.Window)
	s.summarize.SetLimit(rl.Summarize.Limit, rl.Summarize.Window)
	log.Printf("Server: configuration updated (%d allowed origins)", len(cfg.Server.AllowedOrigins))
}

func (s *Server) applyConfig(cfg *config.Config) {
	origins := make(map[string]bool, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		origins[o] = true
	}

	s.mu.Lock()
	s.origins = origins
	s.addr = cfg.Server.Addr
	s.timeout = cfg.Server.RequestTimeout
	s.sweep = cfg.RateLimits.SweepInterval
	s.mu.Unlock()
}

func (s *Server) originAllowed(origin string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.origins[origin]
}

func (s *Server) requestTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeout
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(api.PathTranscribe, s.wrap(endpoint{
		method:  http.MethodPost,
		limiter: s.transcribe,
		noun:    "transcription requests",
		handle:  s.handleTranscribe,
	}))
	mux.Handle(api.PathSummarize, s.wrap(endpoint{
		method:  http.MethodPost,
		limiter: s.summarize,
		noun:    "summaries",
		handle:  s.handleSummarize,
	}))
	mux.Handle(api.PathChat, s.wrap(endpoint{
		method:  http.MethodPost,
		limiter: s.chat,
		noun:    "questions",
		handle:  s.handleChat,
	}))
	mux.Handle(api.PathListModels, s.wrap(endpoint{
		method: http.MethodGet,
		handle: s.handleListModels,
	}))
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.mu.RLock()
	addr, sweep := s.addr, s.sweep
	s.mu.RUnlock()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go runSweeper(sweepCtx, sweep, s.transcribe, s.chat, s.summarize)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server: listening on %s (backend: %s)", addr, s.backendName())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		log.Printf("Server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) backendName() string {
	if s.backend == nil {
		return "none"
	}
	return s.backend.Name()
}
