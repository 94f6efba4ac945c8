// Package main implements audioscan, a command line tool and monitoring
// daemon that interrogates the audio devices of a machine.
//
// Usage:
//
//	audioscan [flags]           one-shot device scan (same as "audioscan scan")
//	audioscan cards             hardware registry card listing
//	audioscan watch             monitoring daemon, rescans on hotplug
//	audioscan serve             HTTP/WebSocket API with metrics
//	audioscan test-notify       exercise the configured notification channels
//	audioscan version           build information
//
// If --config is not specified, audioscan looks for config.json in the same
// directory as the binary.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/zwfm-audioscan/internal/config"
	"github.com/oszuidwest/zwfm-audioscan/internal/util"
)

// usageError marks errors caused by a bad invocation. They exit with code 2
// instead of 1 so scripts can tell misuse from a failed scan.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// noArgs wraps cobra.NoArgs so stray arguments become usage errors.
func noArgs() cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.NoArgs(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var uerr usageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// newRootCmd assembles the command tree. The bare command runs a scan, so
// "audioscan --card 3" and "audioscan scan --card 3" behave the same.
func newRootCmd() *cobra.Command {
	var logLevel string
	var logJSON bool

	root := &cobra.Command{
		Use:           "audioscan",
		Short:         "Audio device interrogation and monitoring",
		Args:          noArgs(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel, logJSON)
		},
	}

	root.PersistentFlags().String("config", "", "Path to config file (default: config.json next to binary)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	scanCmd := newScanCmd()
	root.AddCommand(
		scanCmd,
		newCardsCmd(),
		newWatchCmd(),
		newServeCmd(),
		newTestNotifyCmd(),
		newVersionCmd(),
	)

	// The root command doubles as the scan command
	root.Flags().AddFlagSet(scanCmd.Flags())
	root.RunE = scanCmd.RunE

	return root
}

// setupLogging configures the default slog logger on stderr.
func setupLogging(level string, jsonOut bool) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return usageError{fmt.Errorf("invalid log level %q", level)}
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if jsonOut {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// loadConfig resolves the config path and loads it, creating the file with
// defaults on first run.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		execPath, err := os.Executable()
		if err != nil {
			return nil, util.WrapError("resolve executable path", err)
		}
		path = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Debug("using config file", "path", path)

	cfg := config.New(path)
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}
