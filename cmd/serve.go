package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/k1-end/elastic-logger/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept log entries over HTTP and expose metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		l, err := startLogger(ctx)
		if err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = appConfig.HTTP.Address
		}

		serveErr := api.NewServer(l, mainLogger).Serve(ctx, addr)

		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := l.Close(closeCtx); err != nil {
			mainLogger.Error("cannot flush pending log documents", "error", err)
		}
		return serveErr
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from http.address)")
	rootCmd.AddCommand(serveCmd)
}
