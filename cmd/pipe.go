package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/k1-end/elastic-logger/internal/api"
)

var (
	pipeLevel string
	pipeJSON  bool
)

var pipeCmd = &cobra.Command{
	Use:   "pipe",
	Short: "Ship every line read from stdin",
	Long: `Ship every line read from stdin as a log message.
With --json each line must be an object like {"level":"warn","message":"...","payload":{...}}.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		l, err := startLogger(ctx)
		if err != nil {
			return err
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		// Scan blocks on a terminal, so read in the background and stop on
		// an interrupt without waiting for the next line.
		input := make(chan string)
		scanErr := make(chan error, 1)
		go func() {
			defer close(input)
			for scanner.Scan() {
				select {
				case input <- scanner.Text():
				case <-ctx.Done():
					return
				}
			}
			scanErr <- scanner.Err()
		}()

		lines := 0
	read:
		for {
			var line string
			select {
			case <-ctx.Done():
				break read
			case text, ok := <-input:
				if !ok {
					break read
				}
				line = text
			}
			if line == "" {
				continue
			}
			lines++

			if !pipeJSON {
				l.Log(ctx, pipeLevel, line, nil)
				continue
			}

			var entry api.LogRequest
			if err := json.Unmarshal([]byte(line), &entry); err != nil {
				mainLogger.Warn("skipping malformed line", "line", lines, "error", err)
				continue
			}
			if entry.Level == "" {
				entry.Level = pipeLevel
			}
			l.Log(ctx, entry.Level, entry.Message, entry.Payload)
		}

		// flush with a fresh context so an interrupt still drains the queue
		closeErr := l.Close(context.WithoutCancel(cmd.Context()))
		select {
		case err := <-scanErr:
			if err != nil {
				return fmt.Errorf("cannot read stdin: %w", err)
			}
		default:
		}
		mainLogger.Debug("pipe finished", "lines", lines)
		return closeErr
	},
}

func init() {
	pipeCmd.Flags().StringVarP(&pipeLevel, "level", "l", "info", "level name used for every line")
	pipeCmd.Flags().BoolVar(&pipeJSON, "json", false, "decode each line as a JSON log entry")
	rootCmd.AddCommand(pipeCmd)
}
