package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <operation_id>",
		Short: "Cancel a pending or running operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Put("/api/v1/operations/"+args[0]+"/cancel", nil)
			if err != nil {
				return fmt.Errorf("cancel operation: %w", err)
			}

			var v operationView
			if err := json.Unmarshal(resp.Data, &v); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			fmt.Printf("Operation %s: %s\n", v.ID, v.State)
			return nil
		},
	}
}
