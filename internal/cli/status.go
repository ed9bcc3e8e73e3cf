package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <operation_id>",
		Short: "Check the status of an operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/operations/" + args[0])
			if err != nil {
				return fmt.Errorf("get operation: %w", err)
			}

			var v operationView
			if err := json.Unmarshal(resp.Data, &v); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			printOperation(v)
			return nil
		},
	}
}
