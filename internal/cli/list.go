package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all known operations, finished ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/operations")
			if err != nil {
				return fmt.Errorf("list operations: %w", err)
			}

			var views []operationView
			if err := json.Unmarshal(resp.Data, &views); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			for _, v := range views {
				printOperationLine(v)
			}
			return nil
		},
	}
}

func newQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show pending operations in admission order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/queue")
			if err != nil {
				return fmt.Errorf("get queue: %w", err)
			}

			var views []operationView
			if err := json.Unmarshal(resp.Data, &views); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			if len(views) == 0 {
				fmt.Println("queue is empty")
				return nil
			}
			for _, v := range views {
				printOperationLine(v)
			}
			return nil
		},
	}
}
