package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/store"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mudra",
	Short: "Mudra - hand gesture control",
	Long: `Mudra watches a camera, recognizes hand gestures and turns them into
pointer, click, scroll and volume input.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	defaults := config.Default()
	rootCmd.PersistentFlags().String("data-dir", defaults.DataDir, "Directory holding mudra.db and mappings.txt")
	rootCmd.PersistentFlags().String("log-level", defaults.Logging.Level, "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", defaults.Logging.Format, "Log format: text or json")
}

// baseConfig returns the defaults with the persistent flags applied.
func baseConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	flags := cmd.Flags()

	var err error
	if cfg.DataDir, err = flags.GetString("data-dir"); err != nil {
		return cfg, err
	}
	if cfg.Logging.Level, err = flags.GetString("log-level"); err != nil {
		return cfg, err
	}
	if cfg.Logging.Format, err = flags.GetString("log-format"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
}

// openStore creates the data directory and opens the settings database.
func openStore(cfg config.Config) (*store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}
