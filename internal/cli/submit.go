package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSubmitCmd() *cobra.Command {
	var steps int
	var fail string

	cmd := &cobra.Command{
		Use:   "submit <kind> <channel> <submitter>",
		Short: "Submit an operation for admission",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Post("/api/v1/operations", map[string]any{
				"kind":      args[0],
				"channel":   args[1],
				"submitter": args[2],
				"steps":     steps,
				"fail":      fail,
			})
			if err != nil {
				return fmt.Errorf("submit operation: %w", err)
			}

			var v operationView
			if err := json.Unmarshal(resp.Data, &v); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			printOperation(v)
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 10, "Simulated work chunks to run")
	cmd.Flags().StringVar(&fail, "fail", "", "Force a fault at the end: transport or generic")
	return cmd
}
