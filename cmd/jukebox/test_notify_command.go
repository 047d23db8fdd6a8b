package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jukebox/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if !resp.Sent {
					reason := resp.Message
					if reason == "" {
						reason = "Notification not sent"
					}
					fmt.Fprintln(out, reason)
					return nil
				}
				if resp.Message != "" {
					fmt.Fprintln(out, resp.Message)
				} else {
					fmt.Fprintln(out, "Test notification sent")
				}
				return nil
			})
		},
	}
}
