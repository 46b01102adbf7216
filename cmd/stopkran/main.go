// Package main is the entry point for the stopkran CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvasilyev/jean-claude-stopkran/internal/config"
	"github.com/mvasilyev/jean-claude-stopkran/internal/daemon"
	"github.com/mvasilyev/jean-claude-stopkran/internal/hook"
	"github.com/mvasilyev/jean-claude-stopkran/internal/setup"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stopkran",
		Short:         "Approve Claude Code permission requests from Telegram",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(versionCmd(), serveCmd(), setupCmd(), hookCmd(), autostartCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("stopkran %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the approval daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := loadStore(cmd)
			if err != nil {
				return err
			}
			cfg := store.Config()

			logger := daemon.NewLogger(cfg.Token, slog.LevelInfo)
			app, err := daemon.Build(store, logger)
			if err != nil {
				return err
			}
			return app.Run(context.Background())
		},
	}
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-run setup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			answers, err := setup.Prompt()
			if err != nil {
				return err
			}
			return setup.Apply(answers, configPath(cmd), setup.DefaultSettingsPath(),
				hookCommand(), os.Stdout)
		},
	}
}

func hookCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "hook",
		Short:  "Relay one permission event from stdin (invoked by Claude Code)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var defaults config.Config
			defaults.Defaults()
			socket := defaults.Socket
			if store, err := loadStore(cmd); err == nil {
				socket = store.Config().Socket
			}
			// Never fail: an error here would block the Claude Code session.
			return hook.Run(os.Stdin, os.Stdout, socket)
		},
	}
}

func configPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	return config.DefaultPath()
}

func loadStore(cmd *cobra.Command) (*config.Store, error) {
	path := configPath(cmd)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return config.NewStore(path, cfg), nil
}

// hookCommand is the command line written into settings.json. It points at
// the running binary so the hook survives renames and non-PATH installs.
func hookCommand() string {
	exe, err := os.Executable()
	if err != nil {
		exe = "stopkran"
	}
	return exe + " hook"
}
