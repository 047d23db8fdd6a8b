package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"jukebox/internal/ipc"
)

func newSamplesCommand(ctx *commandContext) *cobra.Command {
	var bankFlag int

	samplesCmd := &cobra.Command{
		Use:   "samples",
		Short: "Manage soundboard sample slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSampleList(cmd, ctx, bankFlag)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List occupied sample slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSampleList(cmd, ctx, bankFlag)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete BANK KEY",
		Short: "Clear a sample slot and remove its clip file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bank, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid bank %q", args[0])
			}
			key := args[1]
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Delete(ipc.DeleteRequest{Sample: true, Bank: bank, Key: key}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sample %d/%s deleted\n", bank, key)
				return nil
			})
		},
	}

	samplesCmd.PersistentFlags().IntVar(&bankFlag, "bank", -1, "Restrict the listing to one bank")
	samplesCmd.AddCommand(listCmd)
	samplesCmd.AddCommand(deleteCmd)
	return samplesCmd
}

func runSampleList(cmd *cobra.Command, ctx *commandContext, bank int) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.SampleList(bank)
		if err != nil {
			return err
		}
		stdout := cmd.OutOrStdout()
		if len(resp.Samples) == 0 {
			fmt.Fprintln(stdout, "No samples installed")
			return nil
		}
		rows := make([][]string, 0, len(resp.Samples))
		for _, sample := range resp.Samples {
			rows = append(rows, []string{
				strconv.Itoa(sample.Bank),
				sample.Key,
				sample.Name,
				sample.UpdatedAt,
			})
		}
		fmt.Fprintln(stdout, renderTable([]string{"Bank", "Key", "Name", "Updated"}, rows, 0))
		return nil
	})
}
