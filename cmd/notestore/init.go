package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vonshlovens/notestore/internal/config"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup to create config file",
		Long:  `Interactively creates a configuration file in the user config directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			out := cmd.OutOrStdout()
			cfg := config.DefaultConfig()

			configDir, err := config.GetConfigDir()
			if err != nil {
				return err
			}
			configPath := filepath.Join(configDir, "config.yaml")
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
			}

			fmt.Fprintln(out, "=== NoteStore Setup ===")
			fmt.Fprintln(out)

			driver := p.ask("Store driver (memory, file, sqlite, postgres) [file]: ")
			if driver != "" {
				cfg.Store.Driver = driver
			}

			switch cfg.Store.Driver {
			case config.DriverFile, config.DriverSQLite:
				cfg.Store.Path = p.ask("  Path [default]: ")

			case config.DriverPostgres:
				fmt.Fprintln(out, "\nDatabase Configuration:")
				cfg.Database.Host = p.ask("  Host: ")
				if portStr := p.ask("  Port [5432]: "); portStr != "" {
					port, err := strconv.Atoi(portStr)
					if err != nil {
						return fmt.Errorf("invalid port %q", portStr)
					}
					cfg.Database.Port = port
				}
				cfg.Database.User = p.ask("  User: ")
				cfg.Database.Password = "${DB_PASSWORD}"
				cfg.Database.Database = p.ask("  Database name: ")
				if cfg.Database.Database == "" {
					return fmt.Errorf("database name is required")
				}
				if schema := p.ask(fmt.Sprintf("  Schema name [%s]: ", cfg.Database.Schema)); schema != "" {
					cfg.Database.Schema = config.SanitizeIdentifier(schema)
				}
				if sslMode := p.ask("  SSL mode [require]: "); sslMode != "" {
					cfg.Database.SSLMode = sslMode
				}

			case config.DriverMemory:
			default:
				return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
			}

			fmt.Fprintln(out, "\nInbox Configuration:")
			if inboxPath := p.ask("  Markdown inbox directory (optional): "); inboxPath != "" {
				if info, err := os.Stat(inboxPath); err != nil || !info.IsDir() {
					return fmt.Errorf("inbox path is not a directory: %s", inboxPath)
				}
				cfg.Inbox.Path = inboxPath
			}
			if locale := p.ask("  Export locale (id, en) [id]: "); locale != "" {
				cfg.Export.Locale = locale
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			if err := os.WriteFile(configPath, data, 0600); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			fmt.Fprintf(out, "\nConfig file written to: %s\n", configPath)
			if cfg.Store.Driver == config.DriverPostgres {
				fmt.Fprintf(out, "\nIMPORTANT: Set the DB_PASSWORD environment variable before use.\n")
				fmt.Fprintln(out, "To run migrations, run: notestore migrate")
			}
			fmt.Fprintln(out, "To check the store, run: notestore status")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
