package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tubefetch/internal/api"
	"tubefetch/internal/config"
	"tubefetch/internal/ipc"
	"tubefetch/internal/jobs"
	"tubefetch/internal/queue"
)

func newPlaylistCommand(ctx *commandContext) *cobra.Command {
	playlistCmd := &cobra.Command{
		Use:   "playlist",
		Short: "Resolve a playlist and download its entries",
	}
	playlistCmd.AddCommand(
		newPlaylistFetchCommand(ctx),
		newPlaylistShowCommand(ctx),
		newPlaylistOneCommand(ctx),
		newPlaylistRangeCommand(ctx),
		newPlaylistAllCommand(ctx),
		newPlaylistResetCommand(ctx),
	)
	return playlistCmd
}

func newPlaylistFetchCommand(ctx *commandContext) *cobra.Command {
	var cookieBrowser, cookieFile string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Resolve a playlist URL into the daemon's queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				view, err := client.FetchPlaylist(ipc.FetchRequest{
					URL:           args[0],
					CookieBrowser: cookieBrowser,
					CookieFile:    cookieFile,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Fetched %d entries\n", view.Total)
				renderPlaylist(out, view)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&cookieBrowser, "cookies-from-browser", "", "Browser to read cookies from")
	cmd.Flags().StringVar(&cookieFile, "cookies", "", "Netscape cookie file passed to yt-dlp")
	addJSONFlag(cmd, &asJSON, "the playlist")
	return cmd
}

func newPlaylistShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"list", "ls"},
		Short:   "Show the current playlist and entry states",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				view, err := client.Playlist()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				if view.Total == 0 {
					fmt.Fprintln(out, "Playlist is empty; run `tubefetch playlist fetch <url>` first")
					return nil
				}
				renderPlaylist(out, view)
				return nil
			})
		},
	}
	addJSONFlag(cmd, &asJSON, "the playlist")
	return cmd
}

// playlistJobFlags shape the media choice of playlist download jobs.
type playlistJobFlags struct {
	fetchFlags
	audio   bool
	quality string
	format  string
}

func (f *playlistJobFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.audio, "audio", false, "Download audio instead of video")
	cmd.Flags().StringVarP(&f.quality, "quality", "q", "", "Video quality: "+strings.Join(config.Qualities, ", "))
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Audio format: "+strings.Join(config.AudioFormats, ", "))
	f.fetchFlags.register(cmd.Flags())
}

func (f *playlistJobFlags) request(kind jobs.Kind) (jobs.Request, error) {
	media := jobs.MediaVideo
	if f.audio {
		media = jobs.MediaAudio
	}
	return f.apply(jobs.Request{
		Kind:        kind,
		Media:       media,
		Quality:     f.quality,
		AudioFormat: f.format,
	})
}

func newPlaylistOneCommand(ctx *commandContext) *cobra.Command {
	var flags playlistJobFlags
	cmd := &cobra.Command{
		Use:   "one <index>",
		Short: "Download a single playlist entry by its 1-based index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parsePosition("index", args[0])
			if err != nil {
				return err
			}
			req, err := flags.request(jobs.KindPlaylistOne)
			if err != nil {
				return err
			}
			req.Index = index
			return submitAndFollow(cmd, ctx, req, submitOptions{detach: flags.detach})
		},
	}
	flags.register(cmd)
	return cmd
}

func newPlaylistRangeCommand(ctx *commandContext) *cobra.Command {
	var flags playlistJobFlags
	var skipDone bool
	cmd := &cobra.Command{
		Use:   "range <start> <end>",
		Short: "Download an inclusive range of playlist entries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parsePosition("start", args[0])
			if err != nil {
				return err
			}
			end, err := parsePosition("end", args[1])
			if err != nil {
				return err
			}
			req, err := flags.request(jobs.KindPlaylistRange)
			if err != nil {
				return err
			}
			req.Start, req.End, req.SkipDone = start, end, skipDone
			return submitAndFollow(cmd, ctx, req, submitOptions{detach: flags.detach})
		},
	}
	cmd.Flags().BoolVar(&skipDone, "skip-done", false, "Leave already downloaded entries alone")
	flags.register(cmd)
	return cmd
}

func newPlaylistAllCommand(ctx *commandContext) *cobra.Command {
	var flags playlistJobFlags
	var skipDone bool
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Download every playlist entry in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(jobs.KindPlaylistAll)
			if err != nil {
				return err
			}
			req.SkipDone = skipDone
			return submitAndFollow(cmd, ctx, req, submitOptions{detach: flags.detach})
		},
	}
	cmd.Flags().BoolVar(&skipDone, "skip-done", true, "Leave already downloaded entries alone")
	flags.register(cmd)
	return cmd
}

func newPlaylistResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return every playlist entry to queued",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ResetPlaylist("")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d entries\n", resp.Reset)
				return nil
			})
		},
	}
}

func parsePosition(name, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, value)
	}
	return n, nil
}

func renderPlaylist(out io.Writer, view *api.PlaylistResponse) {
	if view.Source != "" {
		fmt.Fprintf(out, "Source: %s\n", view.Source)
	}
	rows := make([][]string, 0, len(view.Entries))
	for _, entry := range view.Entries {
		rows = append(rows, []string{strconv.Itoa(entry.Index), entry.Title, stateLabel(entry.Status)})
	}
	done := view.Counts[string(queue.StatusDone)]
	footer := []string{"", fmt.Sprintf("%d entries", view.Total), fmt.Sprintf("%d/%d done", done, view.Total)}
	fmt.Fprint(out, renderTable(playlistColumns, rows, footer))
	counts := make([]string, 0, len(view.Counts))
	for _, row := range playlistCountRows(view.Counts) {
		counts = append(counts, row[0]+": "+row[1])
	}
	if len(counts) > 0 {
		fmt.Fprintln(out, strings.Join(counts, "  "))
	}
}
