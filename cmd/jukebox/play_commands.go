package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"jukebox/internal/ipc"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play NUMBER",
		Short: "Start playback of a track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid track number %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Play(number); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Playing track %d\n", number)
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the current track",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.StopPlayback(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Playback stopped")
				return nil
			})
		},
	}
}
