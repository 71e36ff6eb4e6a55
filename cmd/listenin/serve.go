package main

import (
	"context"
	"fmt"
	"log"

	"github.com/leonardotrapani/listenin/internal/config"
	"github.com/leonardotrapani/listenin/internal/llm"
	"github.com/leonardotrapani/listenin/internal/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server in front of the generative backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return runServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides [server] addr)")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	mgr, err := config.NewManager()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := mgr.GetConfig()
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.ValidateServer(); err != nil {
		// requests fail with a configuration error until a key is set
		log.Printf("Serve: warning: %v", err)
	}

	var backend llm.Backend
	if b, err := newBackend(ctx, cfg); err != nil {
		log.Printf("Serve: no backend: %v", err)
	} else {
		backend = b
	}

	srv := server.New(cfg, backend)
	mgr.OnReload(func(c *config.Config) {
		if addr != "" {
			c.Server.Addr = addr
		}
		if c.LLM != cfg.LLM || c.APIKey(c.LLM.Provider) != cfg.APIKey(cfg.LLM.Provider) {
			log.Printf("Serve: backend settings changed, restart to apply")
		}
		srv.UpdateConfig(c)
	})
	if err := mgr.StartWatching(ctx); err != nil {
		log.Printf("Serve: config watching disabled: %v", err)
	}
	defer mgr.Stop()

	return srv.Run(ctx)
}

func newBackend(ctx context.Context, cfg *config.Config) (llm.Backend, error) {
	return llm.New(ctx, llm.Config{
		Provider:           cfg.LLM.Provider,
		APIKey:             cfg.APIKey(cfg.LLM.Provider),
		TranscriptionModel: cfg.LLM.TranscriptionModel,
		SummaryModel:       cfg.LLM.SummaryModel,
		ChatModel:          cfg.LLM.ChatModel,
	})
}
