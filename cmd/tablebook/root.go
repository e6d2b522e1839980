package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tablebook/internal/config"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "tablebook",
		Short:        "Restaurant table reservations with live availability",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("TABLEBOOK_CONFIG_PATH"),
		"path to the YAML config (default configs/config.yaml)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newClearAllCmd(&configPath))
	return root
}

func newLogger(level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		logger = logger.Level(lvl)
	}
	return logger
}

func loadConfig(path string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, newLogger("info"), err
	}
	return cfg, newLogger(cfg.Log.Level), nil
}
