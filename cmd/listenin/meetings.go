package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/leonardotrapani/listenin/internal/config"
	"github.com/leonardotrapani/listenin/internal/export"
	"github.com/leonardotrapani/listenin/internal/store"
	"github.com/leonardotrapani/listenin/internal/tui"
	"github.com/spf13/cobra"
)

func openStore() (*store.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	st, err := store.Open(cfg.Storage.Path, cfg.Storage.MaxRecords)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open meeting store: %w", err)
	}
	return st, cfg, nil
}

// withStore runs fn against the configured store and closes it afterwards.
func withStore(fn func(st *store.Store) error) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func meetingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meetings",
		Aliases: []string{"m"},
		Short:   "Browse and manage saved meetings",
	}

	cmd.AddCommand(
		meetingsListCmd(),
		meetingsShowCmd(),
		meetingsSearchCmd(),
		meetingsDeleteCmd(),
		meetingsToggleCmd(),
		meetingsRemoveItemCmd(),
		meetingsClearCmd(),
		meetingsSeedDemoCmd(),
		meetingsExportCmd(),
	)
	return cmd
}

func meetingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved meetings, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *store.Store) error {
				records, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tui.RenderList(records))
				return nil
			})
		},
	}
}

func meetingsShowCmd() *cobra.Command {
	var transcript bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a meeting summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *store.Store) error {
				record, err := st.Get(cmd.Context(), args[0])
				if err != nil {
					return notFound(err, "meeting %s not found", args[0])
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderMeeting(record, transcript))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&transcript, "transcript", "t", false, "include the full transcript")
	return cmd
}

func meetingsSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search meetings by overview or participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *store.Store) error {
				records, err := st.Search(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tui.RenderList(records))
				return nil
			})
		},
	}
}

func meetingsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *store.Store) error {
				if err := st.Delete(cmd.Context(), args[0]); err != nil {
					return notFound(err, "meeting %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func parseItemArgs(args []string) (string, int, error) {
	index, err := strconv.Atoi(args[1])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("invalid action item index: %s", args[1])
	}
	return args[0], index, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf(format, args...)
	}
	return err
}

func meetingsToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id> <index>",
		Short: "Mark an action item done or not done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, index, err := parseItemArgs(args)
			if err != nil {
				return err
			}
			return withStore(func(st *store.Store) error {
				done, err := st.ToggleActionItem(cmd.Context(), id, index)
				if err != nil {
					return notFound(err, "action item %d of %s not found", index, id)
				}
				state := "open"
				if done {
					state = "done"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Action item %d is now %s\n", index, state)
				return nil
			})
		},
	}
}

func meetingsRemoveItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-item <id> <index>",
		Short: "Remove an action item from a meeting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, index, err := parseItemArgs(args)
			if err != nil {
				return err
			}
			return withStore(func(st *store.Store) error {
				if err := st.DeleteActionItem(cmd.Context(), id, index); err != nil {
					return notFound(err, "action item %d of %s not found", index, id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed action item %d\n", index)
				return nil
			})
		},
	}
}

func meetingsClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved meeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete every meeting without --yes")
			}
			return withStore(func(st *store.Store) error {
				if err := st.ClearAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All meetings deleted")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func meetingsSeedDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Add demo meetings to an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *store.Store) error {
				seeded, err := st.SeedDemo(cmd.Context(), time.Now())
				if err != nil {
					return err
				}
				if seeded {
					fmt.Fprintln(cmd.OutOrStdout(), "Demo meetings added")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Demo meetings already offered, nothing to do")
				}
				return nil
			})
		},
	}
}

func meetingsExportCmd() *cobra.Command {
	var (
		format     string
		output     string
		transcript bool
	)

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a meeting as Markdown, JSON, YAML or DOCX",
		Long: `Export a meeting. Text formats go to stdout unless --output is set;
docx is always written to a file (default <id>.docx).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return withStore(func(st *store.Store) error {
				record, err := st.Get(cmd.Context(), args[0])
				if err != nil {
					return notFound(err, "meeting %s not found", args[0])
				}

				if output == "" && !f.Binary() {
					return export.Encode(cmd.OutOrStdout(), record, f, transcript)
				}
				if output == "" {
					output = export.Filename(record, f)
				}
				if err := export.WriteFile(output, record, f, transcript); err != nil {
					return fmt.Errorf("failed to export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", record.ID, output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "F", "md", "output format: md, json, yaml, docx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().BoolVarP(&transcript, "transcript", "t", false, "include the full transcript")
	return cmd
}
