package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jukebox/internal/api"
	"jukebox/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and controller status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				status := resp.Status

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				runningKind := statusError
				if status.Running {
					runningKind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, fmt.Sprintf("pid %d", status.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, status.SocketPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Tracks", statusInfo, strconv.Itoa(status.Tracks), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Samples", statusInfo, strconv.Itoa(status.Samples), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Active imports", statusInfo, strconv.Itoa(status.ActiveJobs), colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Controller", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("State", statusInfo, status.Controller.State, colorize))
				if status.Controller.Buffer != "" {
					fmt.Fprintln(stdout, renderStatusLine("Entry buffer", statusInfo, status.Controller.Buffer, colorize))
				}
				if status.Controller.State == "playing" {
					fmt.Fprintln(stdout, renderStatusLine("Track", statusInfo, strconv.Itoa(status.Controller.Track), colorize))
				}
				fmt.Fprintln(stdout, renderStatusLine("Shuffle", statusInfo, yesNo(status.Controller.Shuffle), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Sample bank", statusInfo, strconv.Itoa(status.Controller.Bank), colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range dependencyLines(status.Dependencies, colorize) {
					fmt.Fprintln(stdout, line)
				}
				return nil
			})
		},
	}
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Detail != "" {
				message = fmt.Sprintf("Ready (%s)", dep.Detail)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
			detail += " (optional)"
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		if !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}
