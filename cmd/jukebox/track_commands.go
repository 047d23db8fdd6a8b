package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"jukebox/internal/ipc"
)

func newTracksCommand(ctx *commandContext) *cobra.Command {
	tracksCmd := &cobra.Command{
		Use:   "tracks",
		Short: "Manage track slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrackList(cmd, ctx)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List occupied track slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrackList(cmd, ctx)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete NUMBER",
		Short: "Clear a track slot and remove its audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid track number %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Delete(ipc.DeleteRequest{Number: number}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Track %d deleted\n", number)
				return nil
			})
		},
	}

	tracksCmd.AddCommand(listCmd)
	tracksCmd.AddCommand(deleteCmd)
	return tracksCmd
}

func runTrackList(cmd *cobra.Command, ctx *commandContext) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.TrackList()
		if err != nil {
			return err
		}
		stdout := cmd.OutOrStdout()
		if len(resp.Tracks) == 0 {
			fmt.Fprintln(stdout, "No tracks installed")
			return nil
		}
		rows := make([][]string, 0, len(resp.Tracks))
		for _, track := range resp.Tracks {
			rows = append(rows, []string{
				strconv.Itoa(track.Number),
				track.Name,
				track.UpdatedAt,
			})
		}
		fmt.Fprintln(stdout, renderTable([]string{"Track", "Name", "Updated"}, rows, 0))
		return nil
	})
}
