package main

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/leonardotrapani/listenin/internal/config"
	"github.com/leonardotrapani/listenin/internal/deps"
	"github.com/leonardotrapani/listenin/internal/tui"
	"github.com/spf13/cobra"
)

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration menu for listenin.
This will guide you through setting up:
- Backend API keys (Gemini, OpenAI, Groq) and models
- HTTP server, allowed origins and client endpoint
- Recording, storage and notification preferences`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(cmd.OutOrStdout())
		},
	}
}

func runConfigure(out io.Writer) error {
	// Load existing config or create default
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration menu error: %w", err)
	}

	if result.Cancelled {
		fmt.Fprintln(out, "Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Fprintf(out, "Configuration validation failed: %v\n", err)
		return err
	}

	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration saved successfully!")
	fmt.Fprintln(out)

	showNextSteps(out)
	return nil
}

func showNextSteps(out io.Writer) {
	serviceRunning := false
	if err := exec.Command("systemctl", "--user", "is-active", "--quiet", "listenin.service").Run(); err == nil {
		serviceRunning = true
	}

	fmt.Fprintln(out, "Next Steps:")
	if !serviceRunning {
		fmt.Fprintln(out, "1. Start the server and daemon: listenin serve & listenin daemon")
	} else {
		fmt.Fprintln(out, "1. Restart the service to apply changes: systemctl --user restart listenin.service")
	}
	fmt.Fprintln(out, "2. Record a meeting: listenin start --framework standup")
	fmt.Fprintln(out, "3. Follow it live: listenin watch")
	fmt.Fprintln(out)

	configPath, _ := config.GetConfigPath()
	fmt.Fprintf(out, "Config file location: %s\n", configPath)
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.OutOrStdout())
		},
	}
}

func runDoctor(out io.Writer) error {
	results := deps.CheckAll()
	fmt.Fprintln(out, tui.StyleHeader.Render("External tools"))
	for _, r := range results {
		mark := tui.StyleSuccess.Render("ok")
		detail := r.Status.Version
		if detail == "" {
			detail = r.Status.Path
		}
		if !r.Status.Installed {
			mark = tui.StyleWarning.Render("missing")
			if r.Tool.Required {
				mark = tui.StyleError.Render("missing")
			}
			detail = ""
		}
		fmt.Fprintf(out, "  %-12s %-8s %s %s\n", r.Tool.Name, mark, tui.StyleMuted.Render(r.Tool.Purpose), detail)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, tui.StyleHeader.Render("Configuration"))
	configPath, _ := config.GetConfigPath()
	cfg, err := config.Load()
	switch {
	case err != nil:
		fmt.Fprintf(out, "  %s %v\n", tui.StyleError.Render("error"), err)
	case cfg.Validate() != nil:
		fmt.Fprintf(out, "  %s %v\n", tui.StyleError.Render("invalid"), cfg.Validate())
	default:
		fmt.Fprintf(out, "  %s %s\n", tui.StyleSuccess.Render("ok"), configPath)
		if err := cfg.ValidateServer(); err != nil {
			fmt.Fprintf(out, "  %s %v\n", tui.StyleWarning.Render("warning"), err)
		}
	}

	if missing := deps.MissingRequired(results); len(missing) > 0 {
		return fmt.Errorf("missing required tools: %v", missing)
	}
	if err != nil {
		return err
	}
	return cfg.Validate()
}
