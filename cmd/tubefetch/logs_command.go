package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tubefetch/internal/ipc"
	"tubefetch/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				printed, err := logstream.TailLog(sigCtx, client, logstream.TailOptions{Lines: lines, Follow: follow}, func(line string) {
					fmt.Fprintln(out, line)
				})
				if err != nil {
					return err
				}
				if !printed && !follow {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines as they are written")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show (0 for the whole file)")
	return cmd
}
