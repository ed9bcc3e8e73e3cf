// Package cli implements the opgate command-line client.
package cli

import (
	"log/slog"
	"os"

	"github.com/me/opgate/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking OPGATE_SERVER first.
func defaultServer() string {
	if s := os.Getenv("OPGATE_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the opgate CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "opgate",
		Short: "opgate — admission control for asynchronous operations",
		Long:  "opgate submits, inspects, and cancels operations on an opgate server.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(logging.ParseLevel(flagLogLevel), flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "opgate server URL (or OPGATE_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newSubmitCmd(),
		newStatusCmd(),
		newListCmd(),
		newQueueCmd(),
		newCancelCmd(),
		newMessagesCmd(),
	)

	return root
}
