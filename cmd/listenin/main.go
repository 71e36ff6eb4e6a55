package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/leonardotrapani/listenin/internal/bus"
	"github.com/leonardotrapani/listenin/internal/config"
	"github.com/leonardotrapani/listenin/internal/daemon"
	"github.com/leonardotrapani/listenin/internal/meeting"
	"github.com/leonardotrapani/listenin/internal/pipeline"
	"github.com/leonardotrapani/listenin/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "listenin",
		Short:         "Meeting recorder with live transcription and AI summaries",
		SilenceUsage: true,
	}

	root.AddCommand(
		serveCmd(),
		daemonCmd(),
		startCmd(),
		controlCmd("pause", "Pause the current recording", 'p', "pause recording"),
		controlCmd("resume", "Resume a paused recording", 'u', "resume recording"),
		controlCmd("stop", "Stop recording and generate the summary", 'x', "stop recording"),
		controlCmd("toggle", "Start or stop a general recording", 't', "toggle recording"),
		controlCmd("status", "Get current recording status", 's', "get status"),
		controlCmd("retry-summary", "Retry the last failed summary", 'R', "retry summary"),
		controlCmd("version", "Get protocol version", 'v', "get version"),
		controlCmd("quit", "Stop the daemon", 'q', "stop daemon"),
		snapshotCmd(),
		watchCmd(),
		meetingsCmd(),
		askCmd(),
		modelsCmd(),
		mcpCmd(),
		importCmd(),
		configureCmd(),
		doctorCmd(),
	)
	return root
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the recording daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			d, err := daemon.Build(cfg)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

// sendControl sends one command to the daemon and prints its reply. ERR
// replies become errors.
func sendControl(out io.Writer, c byte, arg, action string) error {
	resp, err := bus.SendCommand(c, arg)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if msg := bus.ReplyError(resp); msg != "" {
		return fmt.Errorf("failed to %s: %s", action, msg)
	}
	fmt.Fprint(out, resp)
	return nil
}

func controlCmd(use, short string, c byte, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendControl(cmd.OutOrStdout(), c, "", action)
		},
	}
}

func frameworkNames() string {
	names := make([]string, 0, len(meeting.Frameworks))
	for _, f := range meeting.Frameworks {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

func parseFramework(s string) (meeting.Framework, error) {
	if s == "" {
		return meeting.General, nil
	}
	f, ok := meeting.ParseFramework(s)
	if !ok {
		return "", fmt.Errorf("unknown framework %q (use one of: %s)", s, frameworkNames())
	}
	return f, nil
}

func startCmd() *cobra.Command {
	var framework string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start recording a meeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFramework(framework)
			if err != nil {
				return err
			}
			return sendControl(cmd.OutOrStdout(), 'r', string(f), "start recording")
		},
	}

	cmd.Flags().StringVarP(&framework, "framework", "f", "general", "summary framework: "+frameworkNames())
	return cmd
}

func snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the daemon state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand('j', "")
			if err != nil {
				return fmt.Errorf("failed to get snapshot: %w", err)
			}
			data, ok := strings.CutPrefix(strings.TrimSpace(resp), "SNAPSHOT ")
			if !ok {
				return fmt.Errorf("unexpected reply: %s", strings.TrimSpace(resp))
			}
			var s pipeline.Snapshot
			if err := json.Unmarshal([]byte(data), &s); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}
}

func watchCmd() *cobra.Command {
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of the recording with transcript and summary progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			conn, err := bus.DialEvents(ctx)
			if err != nil {
				return fmt.Errorf("failed to connect to daemon: %w", err)
			}
			defer conn.Close()

			next := func() (pipeline.Snapshot, error) {
				var s pipeline.Snapshot
				err := conn.ReadJSON(&s)
				return s, err
			}
			var control tui.ControlFunc
			if !readOnly {
				control = bus.SendCommand
			}
			return tui.Watch(next, control)
		},
	}

	cmd.Flags().BoolVar(&readOnly, "read-only", false, "only display, ignore control keys")
	return cmd
}
