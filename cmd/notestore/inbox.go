package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/vonshlovens/notestore/internal/config"
	"github.com/vonshlovens/notestore/internal/inbox"
	"github.com/vonshlovens/notestore/internal/watcher"
)

const saveInterval = 30 * time.Second

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [FILES...]",
		Short: "Import markdown files as notes",
		Long: `Imports the given markdown files as new notes. Without arguments the configured
inbox directory is scanned once: new files become notes, changed files update
their note and deleted files remove it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withBackend(ctx, func(cfg *config.Config, b *backend) error {
				engine, err := inbox.NewEngine(ctx, b, cfg, inbox.WithProgress(cmd.ErrOrStderr()))
				if err != nil {
					return err
				}

				if len(args) == 0 {
					res, err := engine.FullScan(ctx)
					if err != nil {
						return fmt.Errorf("import failed: %w", err)
					}
					engine.RetryFailed(ctx)
					if err := engine.SaveState(ctx); err != nil {
						slog.Warn("failed to save state", "error", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d files: %d imported, %d removed, %d failed.\n",
						res.Scanned, res.Imported, res.Removed, res.Failed)
					return nil
				}

				for _, path := range args {
					note, err := engine.ImportExternal(ctx, path)
					if err != nil {
						return fmt.Errorf("failed to import %s: %w", path, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as note %d.\n", path, note.ID)
				}
				return nil
			})
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Import inbox changes as they happen",
		Long:  `Scans the inbox once, then watches it and imports every markdown change until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withBackend(ctx, func(cfg *config.Config, b *backend) error {
				if cfg.Inbox.Path == "" {
					return inbox.ErrNoInbox
				}
				engine, err := inbox.NewEngine(ctx, b, cfg, inbox.WithProgress(cmd.ErrOrStderr()))
				if err != nil {
					return err
				}

				slog.Info("performing initial scan")
				if _, err := engine.FullScan(ctx); err != nil {
					slog.Error("initial scan failed", "error", err)
				}

				w, err := watcher.NewWatcher(cfg.Inbox, nil)
				if err != nil {
					return fmt.Errorf("failed to create watcher: %w", err)
				}
				if err := w.Start(ctx); err != nil {
					return fmt.Errorf("failed to start watcher: %w", err)
				}

				fmt.Fprintln(cmd.OutOrStdout(), "Watching inbox for changes. Press Ctrl+C to stop.")
				return runWatchLoop(ctx, engine, w)
			})
		},
	}
}

func runWatchLoop(ctx context.Context, engine *inbox.Engine, w *watcher.Watcher) error {
	saveTicker := time.NewTicker(saveInterval)
	defer saveTicker.Stop()

	shutdown := func() error {
		slog.Info("shutting down")
		go func() {
			w.Flush()
			if err := w.Stop(); err != nil {
				slog.Warn("failed to stop watcher", "error", err)
			}
		}()
		// Apply what was flushed; the channel closes once the watcher stops.
		bg := context.WithoutCancel(ctx)
		for ev := range w.Events() {
			if err := engine.HandleEvent(bg, ev); err != nil {
				slog.Error("import failed", "path", ev.Path, "error", err)
			}
		}
		return engine.SaveState(bg)
	}

	for {
		select {
		case <-ctx.Done():
			return shutdown()

		case ev, ok := <-w.Events():
			if !ok {
				return engine.SaveState(context.WithoutCancel(ctx))
			}
			slog.Debug("file event", "path", ev.Path, "type", ev.EventType)
			if err := engine.HandleEvent(ctx, ev); err != nil {
				slog.Error("import failed", "path", ev.Path, "error", err)
				if ev.EventType != watcher.EventDelete {
					engine.QueueRetry(ev.Path)
				}
			}

		case <-saveTicker.C:
			if err := engine.SaveState(ctx); err != nil {
				slog.Warn("failed to save state", "error", err)
			}
			engine.RetryFailed(ctx)
		}
	}
}
