package main

import (
	"fmt"
	"time"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/pipeline"
	"github.com/leonardotrapani/listenin/internal/recording"
	"github.com/leonardotrapani/listenin/internal/summary"
	"github.com/leonardotrapani/listenin/internal/transcriber"
	"github.com/leonardotrapani/listenin/internal/tui"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	var framework string

	cmd := &cobra.Command{
		Use:   "import <file.wav>",
		Short: "Transcribe and summarize a recorded WAV file",
		Long: `Transcribe a 16-bit PCM WAV file frame by frame through the transcription
endpoint, then summarize and save it like a live recording.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFramework(framework)
			if err != nil {
				return err
			}

			st, cfg, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			recCfg := recording.Config{
				SampleRate:   cfg.Recording.SampleRate,
				Channels:     1,
				FrameSamples: cfg.Recording.FrameSamples,
			}
			samples, err := recording.ReadWAVFile(args[0], recCfg.SampleRate)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			client := api.NewClient(cfg.Client.Endpoint, nil)
			session := transcriber.NewSession(client, transcriber.Config{SendTimeout: cfg.Client.SendTimeout})
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Transcribing %s (%s)\n", args[0],
				(time.Duration(len(samples)) * time.Second / time.Duration(recCfg.SampleRate)).Round(time.Second))
			res, err := pipeline.Import(ctx, session, summary.New(client, st), samples, recCfg, f, func(done, total int) {
				fmt.Fprintf(out, "\r  frame %d/%d", done, total)
			})
			fmt.Fprintln(out)
			if res != nil && res.Failed > 0 {
				fmt.Fprintln(out, tui.StyleWarning.Render(fmt.Sprintf("%d frames could not be transcribed", res.Failed)))
			}
			if err != nil {
				return askError(err)
			}

			fmt.Fprintf(out, "%s %s\n\n", tui.StyleSuccess.Render("Saved meeting"), res.Summary.ID)
			fmt.Fprint(out, tui.RenderMeeting(res.Summary, false))
			return nil
		},
	}

	cmd.Flags().StringVarP(&framework, "framework", "f", "general", "summary framework: "+frameworkNames())
	return cmd
}
