package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tubefetch/internal/ipc"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [job-id]",
		Short: "Cancel one running job, or every running job when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := ""
			if len(args) == 1 {
				jobID = strings.TrimSpace(args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop(jobID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Stopped) == 0 {
					fmt.Fprintln(out, "No running jobs")
					return nil
				}
				for _, id := range resp.Stopped {
					fmt.Fprintf(out, "Stopped %s\n", id)
				}
				return nil
			})
		},
	}
}
