package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vonshlovens/notestore/internal/config"
	"github.com/vonshlovens/notestore/internal/inbox"
	"github.com/vonshlovens/notestore/internal/store"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store status and collection counts",
		Long:  `Shows the configured store, the number of notes and accounts it holds, and the inbox import state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "=== NoteStore Status ===")
			fmt.Fprintf(out, "Store Driver: %s\n", cfg.Store.Driver)
			switch cfg.Store.Driver {
			case config.DriverPostgres:
				fmt.Fprintf(out, "  Host: %s\n", cfg.Database.Host)
				fmt.Fprintf(out, "  Database: %s\n", cfg.Database.Database)
				fmt.Fprintf(out, "  Schema: %s\n", cfg.Database.Schema)
			case config.DriverFile, config.DriverSQLite:
				fmt.Fprintf(out, "  Path: %s\n", cfg.Store.Path)
			}

			b, err := openBackend(ctx, cfg)
			if err != nil {
				fmt.Fprintf(out, "Store Status: Unavailable\n")
				fmt.Fprintf(out, "Error: %v\n", err)
				return nil
			}
			defer b.close()
			fmt.Fprintf(out, "Store Status: Connected\n")
			fmt.Fprintln(out)

			notes, err := store.NewNoteRepository(b).List(ctx)
			if err != nil {
				return fmt.Errorf("failed to read notes: %w", err)
			}
			users, err := store.NewCredentialRepository(b).List(ctx)
			if err != nil {
				return fmt.Errorf("failed to read accounts: %w", err)
			}
			fmt.Fprintf(out, "Collections:\n")
			fmt.Fprintf(out, "  Notes: %d\n", len(notes))
			fmt.Fprintf(out, "  Accounts: %d\n", len(users))

			if b.status != nil {
				st, err := b.status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get status: %w", err)
				}
				for _, e := range st.Entries {
					fmt.Fprintf(out, "  [%s] %d bytes, updated %s\n", e.Key, e.SizeBytes, e.UpdatedAt.Format(time.RFC3339))
				}
			}

			if cfg.Inbox.Path != "" {
				engine, err := inbox.NewEngine(ctx, b, cfg)
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				printInboxStatus(out, engine.Status())
			}
			return nil
		},
	}
}

func printInboxStatus(out io.Writer, st inbox.Status) {
	fmt.Fprintf(out, "Inbox Path: %s\n", st.Root)
	fmt.Fprintf(out, "  Tracked Files: %d\n", st.TrackedFiles)
	if st.LastFullScan != nil {
		fmt.Fprintf(out, "  Last Scan: %s\n", st.LastFullScan.Format(time.RFC3339))
	}
}
