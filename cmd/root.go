package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/k1-end/elastic-logger/internal/adapter"
	"github.com/k1-end/elastic-logger/internal/backend"
	"github.com/k1-end/elastic-logger/internal/config"
	"github.com/k1-end/elastic-logger/internal/logger"
)

var (
	cfgFile    string
	appConfig  *config.Config
	mainLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "elogger",
	Short:         "Ship log messages to Elasticsearch",
	Long:          "Route log messages to an Elasticsearch or OpenSearch cluster through a bulk indexing transport.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cannot load .env: %w", err)
		}

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}

		l, err := logger.NewLogger(cmd.ErrOrStderr(), cfg.Logger.Level, cfg.Logger.Format)
		if err != nil {
			return err
		}

		appConfig = cfg
		mainLogger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.json)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// startLogger builds the adapter from the loaded config and initializes it.
func startLogger(ctx context.Context) (*adapter.Logger, error) {
	l, err := backend.NewLogger(appConfig, mainLogger)
	if err != nil {
		return nil, err
	}
	if err := l.Init(ctx); err != nil {
		return nil, err
	}
	return l, nil
}
