package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/chat"
	"github.com/leonardotrapani/listenin/internal/config"
	"github.com/leonardotrapani/listenin/internal/mcpserver"
	"github.com/leonardotrapani/listenin/internal/tui"
	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <id> [question]",
		Short: "Ask questions about a meeting transcript",
		Long: `Ask a question about a saved meeting. Without a question, starts an
interactive session: one question per line, an empty line or EOF ends it.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cfg, err := openStore()
			if err != nil {
				return err
			}
			record, err := st.Get(cmd.Context(), args[0])
			st.Close()
			if err != nil {
				return notFound(err, "meeting %s not found", args[0])
			}

			conv := chat.NewConversation(api.NewClient(cfg.Client.Endpoint, nil))
			out := cmd.OutOrStdout()

			if len(args) == 2 {
				answer, err := conv.Ask(cmd.Context(), args[1], record.Transcript, record.ID)
				if err != nil {
					return askError(err)
				}
				fmt.Fprintln(out, answer)
				return nil
			}
			return askLoop(cmd.Context(), conv, record.Transcript, record.ID, cmd.InOrStdin(), out)
		},
	}
}

// askError keeps service details out of the terminal; classified errors
// show their user message.
func askError(err error) error {
	if apperr.KindOf(err) != "" {
		return errors.New(apperr.UserMessage(err))
	}
	return err
}

func askLoop(ctx context.Context, conv *chat.Conversation, transcript, id string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, tui.StyleHeader.Render("Ask about this meeting"))
	for _, q := range chat.SuggestedQuestions {
		fmt.Fprintln(out, tui.StyleMuted.Render("  • "+q))
	}
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, tui.StyleLabel.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			return nil
		}

		answer, err := conv.Ask(ctx, question, transcript, id)
		if err != nil {
			// the conversation records the apology; keep the session going
			fmt.Fprintln(out, tui.StyleError.Render(askError(err).Error()))
			continue
		}
		fmt.Fprintln(out, answer)
		fmt.Fprintln(out)
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models offered by the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			resp, err := api.NewClient(cfg.Client.Endpoint, nil).ListModels(cmd.Context())
			if err != nil {
				return askError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d models:\n", resp.Count)
			for _, m := range resp.Models {
				line := fmt.Sprintf("  %s", m.Name)
				if m.DisplayName != "" {
					line += fmt.Sprintf(" - %s", m.DisplayName)
				}
				if len(m.SupportedGenerationMethods) > 0 {
					line += fmt.Sprintf(" [%s]", strings.Join(m.SupportedGenerationMethods, ", "))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}


func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve saved meetings to AI assistants over MCP (stdio)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cfg, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return mcpserver.New(st, api.NewClient(cfg.Client.Endpoint, nil)).ServeStdio()
		},
	}
}
