package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/maxxcode/internal/config"
	"github.com/abhisek/maxxcode/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "maxxcode",
	Short:         "Track your coding lessons, streaks and badges",
	Long:          "MaxxCode keeps a learner's progress through Python and JavaScript lessons: xp, daily streaks, badges and settings.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd)
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (overrides MAXXCODE_CONFIG env var)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file, or the record directory with the file backend (overrides MAXXCODE_DB env var)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkinCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(apikeyCmd)
	rootCmd.AddCommand(languageCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(badgesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the file named by --config, MAXXCODE_CONFIG, or the
// default XDG path, in that order.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then MAXXCODE_DB or the config file, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.Storage.Path != "" {
		return cfg.Storage.Path, store.EnsureDir(cfg.Storage.Path)
	}
	return store.DefaultDBPath()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLogging installs the default logger. Logs go to stderr so command
// output on stdout stays clean.
func setupLogging(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
