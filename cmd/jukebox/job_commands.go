package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jukebox/internal/api"
	"jukebox/internal/ipc"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs [ID]",
		Short: "Show import jobs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				stdout := cmd.OutOrStdout()
				if len(args) == 1 {
					resp, err := client.Job(args[0])
					if err != nil {
						return err
					}
					printJob(stdout, resp.Job)
					return nil
				}

				resp, err := client.JobList()
				if err != nil {
					return err
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(stdout, "No import jobs")
					return nil
				}
				rows := make([][]string, 0, len(resp.Jobs))
				for _, job := range resp.Jobs {
					detail := job.DisplayName
					if job.Status == "failed" {
						detail = job.Error
					}
					rows = append(rows, []string{
						job.ID,
						job.Target,
						job.Status,
						detail,
					})
				}
				fmt.Fprintln(stdout, renderTable([]string{"Job", "Target", "Status", "Detail"}, rows))
				return nil
			})
		},
	}
}

func printJob(stdout io.Writer, job api.ImportJob) {
	fmt.Fprintf(stdout, "Job:      %s\n", job.ID)
	fmt.Fprintf(stdout, "Target:   %s\n", job.Target)
	fmt.Fprintf(stdout, "Status:   %s\n", job.Status)
	if job.DisplayName != "" {
		fmt.Fprintf(stdout, "Name:     %s\n", job.DisplayName)
	}
	if job.InstalledPath != "" {
		fmt.Fprintf(stdout, "Path:     %s\n", job.InstalledPath)
	}
	if job.Error != "" {
		fmt.Fprintf(stdout, "Error:    %s\n", job.Error)
	}
	if job.CreatedAt != "" {
		fmt.Fprintf(stdout, "Created:  %s\n", job.CreatedAt)
	}
	if job.FinishedAt != "" {
		fmt.Fprintf(stdout, "Finished: %s\n", job.FinishedAt)
	}
}
