package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tubefetch/internal/config"
	"tubefetch/internal/jobs"
)

// fetchFlags are shared by every command that downloads through yt-dlp.
type fetchFlags struct {
	cookieBrowser string
	cookieFile    string
	rateLimit     string
	retries       int
	destDir       string
	detach        bool
}

func (f *fetchFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.cookieBrowser, "cookies-from-browser", "", "Browser to read cookies from (chrome, firefox, ...)")
	flags.StringVar(&f.cookieFile, "cookies", "", "Netscape cookie file passed to yt-dlp")
	flags.StringVar(&f.rateLimit, "rate-limit", "", "Download rate limit, e.g. 2M")
	flags.IntVar(&f.retries, "retries", 0, "Retries per strategy (0 uses the configured default)")
	flags.StringVar(&f.destDir, "dest", "", "Destination directory (defaults to paths.download_dir)")
	flags.BoolVarP(&f.detach, "detach", "d", false, "Submit the job and return immediately")
}

func (f *fetchFlags) apply(req jobs.Request) (jobs.Request, error) {
	req.CookieBrowser = f.cookieBrowser
	req.RateLimit = f.rateLimit
	req.Retries = f.retries
	if cookie := strings.TrimSpace(f.cookieFile); cookie != "" {
		abs, err := filepath.Abs(cookie)
		if err != nil {
			return req, fmt.Errorf("resolve cookie file: %w", err)
		}
		req.CookieFile = abs
	}
	if dest := strings.TrimSpace(f.destDir); dest != "" && !strings.HasPrefix(dest, "~") {
		abs, err := filepath.Abs(dest)
		if err != nil {
			return req, fmt.Errorf("resolve destination: %w", err)
		}
		req.DestDir = abs
	} else {
		req.DestDir = dest
	}
	return req, nil
}

func newFetchCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newVideoCommand(ctx),
		newAudioCommand(ctx),
		newConvertCommand(ctx),
	}
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	var flags fetchFlags
	var quality string
	cmd := &cobra.Command{
		Use:   "video <url>",
		Short: "Download a single video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.apply(jobs.Request{Kind: jobs.KindVideo, URL: args[0], Quality: quality})
			if err != nil {
				return err
			}
			return submitAndFollow(cmd, ctx, req, submitOptions{detach: flags.detach})
		},
	}
	cmd.Flags().StringVarP(&quality, "quality", "q", "", "Video quality: "+strings.Join(config.Qualities, ", "))
	flags.register(cmd.Flags())
	return cmd
}

func newAudioCommand(ctx *commandContext) *cobra.Command {
	var flags fetchFlags
	var format string
	cmd := &cobra.Command{
		Use:   "audio <url>",
		Short: "Download a single video's audio track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.apply(jobs.Request{Kind: jobs.KindAudio, URL: args[0], AudioFormat: format})
			if err != nil {
				return err
			}
			return submitAndFollow(cmd, ctx, req, submitOptions{detach: flags.detach})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Audio format: "+strings.Join(config.AudioFormats, ", "))
	flags.register(cmd.Flags())
	return cmd
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var format, bitrate string
	var detach bool
	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a local media file to an audio format with ffmpeg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve source: %w", err)
			}
			req := jobs.Request{
				Kind:        jobs.KindConvert,
				SourcePath:  source,
				AudioFormat: format,
				Bitrate:     bitrate,
			}
			return submitAndFollow(cmd, ctx, req, submitOptions{detach: detach})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Target audio format: "+strings.Join(config.AudioFormats, ", "))
	cmd.Flags().StringVar(&bitrate, "bitrate", "", "Target bitrate, e.g. 192k")
	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "Submit the job and return immediately")
	return cmd
}
