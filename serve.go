package main

import (
	"context"
	"log/slog"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/zwfm-audioscan/internal/capability"
	"github.com/oszuidwest/zwfm-audioscan/internal/metrics"
	"github.com/oszuidwest/zwfm-audioscan/internal/notify"
	"github.com/oszuidwest/zwfm-audioscan/internal/scan"
	"github.com/oszuidwest/zwfm-audioscan/internal/util"
	"github.com/oszuidwest/zwfm-audioscan/internal/watch"
)

// newServeCmd returns the serve command: the watch daemon plus the HTTP API.
func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scan results over HTTP and WebSocket",
		Args:  noArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port != 0 {
				if err := cfg.SetServerPort(port); err != nil {
					return usageError{err}
				}
			}
			snap := cfg.Snapshot()

			backends, err := capability.ParseBackends(snap.Backends)
			if err != nil {
				return usageError{err}
			}

			m := metrics.New()
			runner := &scan.Runner{Metrics: m}

			var logPath string
			events := openEventLog(snap.ServerPort)
			if events != nil {
				defer util.SafeCloseFunc(events, "event log")()
				logPath = events.Path()
				if err := events.LogServeStarted(snap.ServerPort, snap.WatchInterval); err != nil {
					slog.Warn("failed to write event log", "error", err)
				}
			}

			srv := NewServer(cfg, runner, logPath)

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
				Runner:     runner,
				Notifier:   notify.NewChangeNotifier(cfg),
				Events:     events,
				Metrics:    m,
			})
			watcher.OnScan = func(result *scan.Result) {
				srv.NoteScan(result)
				srv.BroadcastCatalog(result)
			}
			watcher.OnChanges = srv.BroadcastChanges

			httpServer := srv.Start()

			ctx, stop := signal.NotifyContext(cmd.Context(), util.ShutdownSignals()...)
			defer stop()

			err = watcher.Run(ctx)

			slog.Info("shutting down")

			// Stop version checker goroutine
			srv.version.Stop()

			// Shut down HTTP server.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
				slog.Error("HTTP server shutdown error", "error", shutdownErr)
			}

			slog.Info("shutdown complete")
			return err
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides config)")

	return cmd
}
