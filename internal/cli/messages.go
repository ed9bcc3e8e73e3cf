package cli

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newMessagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages <channel>",
		Short: "Show notifications delivered to a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/messages?channel=" + url.QueryEscape(args[0]))
			if err != nil {
				return fmt.Errorf("get messages: %w", err)
			}

			var data struct {
				Channel  string   `json:"channel"`
				Messages []string `json:"messages"`
			}
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			if len(data.Messages) == 0 {
				fmt.Printf("no messages in %s\n", data.Channel)
				return nil
			}
			for _, m := range data.Messages {
				fmt.Println(m)
			}
			return nil
		},
	}
}
