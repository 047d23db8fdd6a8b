package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jukebox/internal/config"
	"jukebox/internal/ipc"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import audio into a slot",
	}

	var trackName string
	trackCmd := &cobra.Command{
		Use:   "track NUMBER SOURCE",
		Short: "Import a song into a track slot from a file or URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid track number %q", args[0])
			}
			req := ipc.ImportRequest{Number: number, Name: trackName}
			if err := applySource(&req, args[1]); err != nil {
				return err
			}
			return submitImport(cmd, ctx, req)
		},
	}
	trackCmd.Flags().StringVar(&trackName, "name", "", "Display name for the imported song")

	var sampleName string
	sampleCmd := &cobra.Command{
		Use:   "sample BANK KEY SOURCE",
		Short: "Import a clip into a soundboard slot from a file or URL",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bank, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid bank %q", args[0])
			}
			req := ipc.ImportRequest{Sample: true, Bank: bank, Key: args[1], Name: sampleName}
			if err := applySource(&req, args[2]); err != nil {
				return err
			}
			return submitImport(cmd, ctx, req)
		},
	}
	sampleCmd.Flags().StringVar(&sampleName, "name", "", "Display name for the imported clip")

	importCmd.AddCommand(trackCmd)
	importCmd.AddCommand(sampleCmd)
	return importCmd
}

func applySource(req *ipc.ImportRequest, source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		return fmt.Errorf("source file or URL is required")
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req.URL = source
		return nil
	}
	path, err := config.ExpandPath(source)
	if err != nil {
		return fmt.Errorf("resolve source path: %w", err)
	}
	req.FilePath = path
	return nil
}

func submitImport(cmd *cobra.Command, ctx *commandContext, req ipc.ImportRequest) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.Import(req)
		if err != nil {
			return err
		}
		stdout := cmd.OutOrStdout()
		fmt.Fprintf(stdout, "Import queued for %s (job %s)\n", resp.Job.Target, resp.Job.ID)
		fmt.Fprintf(stdout, "Watch progress with `jukebox jobs %s`\n", resp.Job.ID)
		return nil
	})
}
