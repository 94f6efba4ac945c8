package main

import (
	"log/slog"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/zwfm-audioscan/internal/capability"
	"github.com/oszuidwest/zwfm-audioscan/internal/eventlog"
	"github.com/oszuidwest/zwfm-audioscan/internal/notify"
	"github.com/oszuidwest/zwfm-audioscan/internal/scan"
	"github.com/oszuidwest/zwfm-audioscan/internal/util"
	"github.com/oszuidwest/zwfm-audioscan/internal/watch"
)

// newWatchCmd returns the watch command, a headless daemon that rescans on
// hotplug events and reports device changes through the notification channels.
func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Monitor audio devices and report changes",
		Args:  noArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			snap := cfg.Snapshot()

			backends, err := capability.ParseBackends(snap.Backends)
			if err != nil {
				return usageError{err}
			}

			events := openEventLog(snap.ServerPort)
			if events != nil {
				defer util.SafeCloseFunc(events, "event log")()
				if err := events.LogWatchStarted(snap.DevicePath, snap.WatchInterval); err != nil {
					slog.Warn("failed to write event log", "error", err)
				}
			}

			watcher := watch.New(watch.Options{
				Scan: scan.Options{
					SkipRegistry: snap.SkipRegistry,
					RegistryRoot: snap.RegistryRoot,
					Backends:     backends,
					Exclusive:    snap.Exclusive,
				},
				Interval:   snap.WatchInterval,
				Debounce:   snap.WatchDebounce,
				DevicePath: snap.DevicePath,
				Notifier:   notify.NewChangeNotifier(cfg),
				Events:     events,
			})

			slog.Info("watching audio devices",
				"station", snap.StationName,
				"interval", snap.WatchInterval,
				"device_path", snap.DevicePath)

			ctx, stop := signal.NotifyContext(cmd.Context(), util.ShutdownSignals()...)
			defer stop()

			return watcher.Run(ctx)
		},
	}

	return cmd
}

// openEventLog opens the operational event log, degrading to nil with a
// warning when the path is not writable.
func openEventLog(port int) *eventlog.Logger {
	path := eventlog.DefaultLogPath(port)
	events, err := eventlog.NewLogger(path)
	if err != nil {
		slog.Warn("event log unavailable", "path", path, "error", err)
		return nil
	}
	return events
}
