package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	sendLevel   string
	sendPayload string
)

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send a single log message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload any
		if sendPayload != "" {
			if err := json.Unmarshal([]byte(sendPayload), &payload); err != nil {
				return fmt.Errorf("invalid --payload: %w", err)
			}
		}

		ctx := cmd.Context()
		l, err := startLogger(ctx)
		if err != nil {
			return err
		}

		l.Log(ctx, sendLevel, strings.Join(args, " "), payload)
		return l.Close(ctx)
	},
}

func init() {
	sendCmd.Flags().StringVarP(&sendLevel, "level", "l", "info", "level name, e.g. crit, warn, info, debug")
	sendCmd.Flags().StringVarP(&sendPayload, "payload", "p", "", "structured payload as a JSON document")
	rootCmd.AddCommand(sendCmd)
}
