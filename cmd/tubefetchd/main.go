package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"tubefetch/internal/config"
	"tubefetch/internal/daemonrun"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("tubefetchd", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "Configuration file path")
	socketPath := flags.String("socket", "", "Override the IPC socket path")
	logLevel := flags.String("log-level", "", "Override the configured log level")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:   *logLevel,
		SocketPath: *socketPath,
	})
}
