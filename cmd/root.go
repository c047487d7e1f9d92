package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/langlearn/langlearn/internal/config"
	"github.com/langlearn/langlearn/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "langlearn",
	Short: "Offline-first adaptive language learning engine",
	Long: "langlearn records learner activity locally, syncs it to a shared store when online,\n" +
		"and turns quiz history into module recommendations and adaptive quizzes.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings(cmd)
	},
}

// Settings resolved before any command runs.
var (
	cfg    config.Config
	logger *slog.Logger
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides LANGLEARN_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (default $XDG_CONFIG_HOME/langlearn/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a .env file to load if present")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadSettings layers defaults, the config file, the .env file, LANGLEARN_*
// variables and flags, then installs the logger.
func loadSettings(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("config")
	optional := path == ""
	if optional {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	c, err := config.Load(path, optional)
	if err != nil {
		return err
	}
	if err := c.ApplyEnv(); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		c.DBPath = p
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		c.LogLevel = "debug"
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, _ := config.ParseLogLevel(c.LogLevel)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	cfg = c
	return nil
}

// resolveDBPath returns the database path from the --db flag or
// LANGLEARN_DB (already folded into cfg), then the default XDG path.
func resolveDBPath() (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}
