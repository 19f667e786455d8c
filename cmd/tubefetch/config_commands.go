package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tubefetch/internal/config"
	"tubefetch/internal/deps"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the tubefetch configuration",
	}
	configCmd.AddCommand(
		newConfigInitCommand(),
		newConfigValidateCommand(ctx),
	)
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveConfigTarget(targetPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if _, err := os.Stat(target); err == nil && !overwrite {
				return fmt.Errorf("%s already exists (pass --overwrite to replace it)", target)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("check config path: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			printSetupHints(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing configuration")
	return cmd
}

// resolveConfigTarget expands an explicit path or falls back to the default
// per-user location.
func resolveConfigTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		target, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return target, nil
	}
	target, err := config.ExpandPath(raw)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return target, nil
}

func printSetupHints(out io.Writer) {
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  - set paths.download_dir to where videos and audio should land")
	fmt.Fprintln(out, "  - if YouTube asks you to sign in, list your browsers under fetch.browsers")
	fmt.Fprintln(out, "    or pass --cookies-from-browser / --cookies per download")
	fmt.Fprintln(out, "  - start the daemon with `tubefetch daemon start`")
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and report the effective download setup",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if exists {
				fmt.Fprintln(out, renderStatusLine("Config", statusOK, path, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Config", statusWarn, "not found; defaults in use (run `tubefetch config init`)", colorize))
			}
			for _, line := range describeFetchSetup(cfg, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func describeFetchSetup(cfg *config.Config, colorize bool) []string {
	lines := []string{
		renderStatusLine("Downloads", statusInfo, cfg.Paths.DownloadDir, colorize),
		renderStatusLine("Defaults", statusInfo,
			fmt.Sprintf("video %s, audio %s, %d retries", cfg.Fetch.DefaultQuality, cfg.Fetch.DefaultAudioFormat, cfg.Fetch.DefaultRetries), colorize),
	}
	if cfg.Fetch.BrowserSweep {
		lines = append(lines, renderStatusLine("Cookies", statusInfo, "browser sweep: "+strings.Join(cfg.Fetch.Browsers, ", "), colorize))
	} else {
		lines = append(lines, renderStatusLine("Cookies", statusWarn, "browser sweep disabled; pass --cookies-from-browser when sign-in is required", colorize))
	}
	if bind := strings.TrimSpace(cfg.Paths.APIBind); bind != "" {
		lines = append(lines, renderStatusLine("HTTP API", statusInfo, bind, colorize))
	}
	for _, dep := range deps.CheckBinaries(deps.Requirements(cfg)) {
		switch {
		case dep.Available:
			lines = append(lines, renderStatusLine(dep.Name, statusOK, dep.Path, colorize))
		case dep.Optional:
			lines = append(lines, renderStatusLine(dep.Name, statusWarn, dep.Detail, colorize))
		default:
			lines = append(lines, renderStatusLine(dep.Name, statusError, dep.Detail, colorize))
		}
	}
	return lines
}
