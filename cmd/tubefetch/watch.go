package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tubefetch/internal/events"
	"tubefetch/internal/ipc"
	"tubefetch/internal/jobs"
	"tubefetch/internal/logstream"
)

// submitOptions controls how a submitted job is reported.
type submitOptions struct {
	detach bool
}

// submitAndFollow submits req on a fresh event channel and, unless detached,
// streams the channel until the job finishes. A detached job keeps its channel
// open so `tubefetch watch` can pick it up later. An interrupt asks the daemon
// to stop the job and keeps following until the cancellation is reported.
func submitAndFollow(cmd *cobra.Command, ctx *commandContext, req jobs.Request, opts submitOptions) error {
	out := cmd.OutOrStdout()
	return ctx.withClient(func(client *ipc.Client) error {
		sub, err := client.Subscribe()
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		req.ClientID = sub.ClientID
		resp, err := client.Submit(req)
		if err != nil {
			_, _ = client.Unsubscribe(sub.ClientID)
			return err
		}
		if opts.detach {
			fmt.Fprintf(out, "Job %s submitted\n", resp.JobID)
			fmt.Fprintf(out, "Follow it with: tubefetch watch %s\n", sub.ClientID)
			return nil
		}
		return followChannel(cmd, client, sub.ClientID, resp.JobID)
	})
}

// followChannel renders clientID's events until a done event arrives. When
// jobID is known an interrupt stops that job; otherwise it stops following.
func followChannel(cmd *cobra.Command, client *ipc.Client, clientID, jobID string) error {
	out := cmd.OutOrStdout()
	defer func() { _, _ = client.Unsubscribe(clientID) }()

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	followCtx := sigCtx
	if jobID != "" {
		followCtx = context.WithoutCancel(cmd.Context())
		cancelStop := context.AfterFunc(sigCtx, func() {
			if cmd.Context().Err() == nil {
				fmt.Fprintln(out, "Stopping job...")
				_, _ = client.Stop(jobID)
			}
		})
		defer cancelStop()
	}

	renderer := newProgressRenderer(out, shouldColorize(out))
	done, err := logstream.Follow(followCtx, client, clientID, logstream.FollowOptions{UntilDone: true, Wait: 5 * time.Second}, renderer.handle)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return reportDone(out, done)
}

func reportDone(out io.Writer, done events.Done) error {
	switch {
	case done.Success:
		fmt.Fprintf(out, "Finished: %s\n", done.Path)
		return nil
	case done.Cancelled:
		return errors.New("job cancelled")
	default:
		return errors.New("job failed; see the output above for the last error")
	}
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <channel-id>",
		Short: "Follow a detached job's event channel until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				return followChannel(cmd, client, strings.TrimSpace(args[0]), "")
			})
		},
	}
}
