// Package watch runs repeated scan passes and dispatches device changes.
// A pass fires on hotplug events from the device tree (debounced), on a
// periodic safety interval, and on demand via Trigger. The only state kept
// between passes is the previous catalog, held for change detection.
package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
	"github.com/oszuidwest/zwfm-audioscan/internal/eventlog"
	"github.com/oszuidwest/zwfm-audioscan/internal/metrics"
	"github.com/oszuidwest/zwfm-audioscan/internal/notify"
	"github.com/oszuidwest/zwfm-audioscan/internal/scan"
	"github.com/oszuidwest/zwfm-audioscan/internal/util"
)

// Retry delays after a failed scan pass.
const (
	scanRetryWait    = 2000 * time.Millisecond
	maxScanRetryWait = 60000 * time.Millisecond
)

// DefaultInterval is used when no periodic rescan interval is configured.
const DefaultInterval = 30000 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Scan selects what each pass does.
	Scan scan.Options

	// Interval is the periodic rescan interval. Zero means DefaultInterval.
	Interval time.Duration

	// Debounce is the quiet time after a device tree event before a pass
	// runs. Zero disables debouncing.
	Debounce time.Duration

	// DevicePath is the device tree watched for hotplug events. Empty
	// disables hotplug watching; the periodic interval still applies.
	DevicePath string

	// Runner executes passes. Nil means the platform runner.
	Runner *scan.Runner

	// Notifier, when set, receives non-empty diffs.
	Notifier *notify.ChangeNotifier

	// Events, when set, records the first pass and every change.
	Events *eventlog.Logger

	// Metrics, when set, counts observed changes.
	Metrics *metrics.Metrics
}

// Watcher repeatedly runs the scan pipeline and reports differences
// between consecutive passes. Create one with New and drive it with Run.
type Watcher struct {
	opts    Options
	backoff *util.Backoff
	trigger chan struct{}

	// OnScan, when set, receives every completed pass.
	OnScan func(*scan.Result)

	// OnChanges, when set, receives non-empty diffs after the built-in
	// dispatch (logging, metrics, event log, notifications) has run.
	OnChanges func([]catalog.Change, catalog.Summary)

	previous *catalog.Catalog
}

// New creates a Watcher. Run starts it.
func New(opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Runner == nil {
		opts.Runner = &scan.Runner{Metrics: opts.Metrics}
	}
	return &Watcher{
		opts:    opts,
		backoff: util.NewBackoff(scanRetryWait, maxScanRetryWait),
		trigger: make(chan struct{}, 1),
	}
}

// Trigger requests an immediate pass without waiting for the ticker. It
// never blocks; a pass is already pending when the request is dropped.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run executes the initial pass and then loops until ctx is canceled.
// The initial pass failing is fatal; later failures are retried with
// backoff while the loop keeps running.
func (w *Watcher) Run(ctx context.Context) error {
	result, err := w.opts.Runner.Run(w.opts.Scan)
	if err != nil {
		return util.WrapError("run initial scan", err)
	}
	w.previous = result.Catalog

	if w.opts.Events != nil {
		s := result.Summary
		if err := w.opts.Events.LogScan(s.TotalDevices, s.InputDevices, s.OutputDevices, len(result.Catalog.Cards), result.Elapsed); err != nil {
			slog.Warn("failed to write event log", "error", err)
		}
	}
	if w.OnScan != nil {
		w.OnScan(result)
	}

	watcher, events, errs := w.startHotplugWatcher()
	if watcher != nil {
		defer util.SafeCloseFunc(watcher, "hotplug watcher")()
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var debounceTimer *time.Timer
	var debounceC <-chan time.Time
	var retryC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			slog.Debug("device tree changed", "path", event.Name, "op", event.Op.String())
			if w.opts.Debounce <= 0 {
				retryC = w.pass(retryC)
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.opts.Debounce)
			debounceC = debounceTimer.C

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("hotplug watcher error", "error", err)

		case <-debounceC:
			debounceC = nil
			retryC = w.pass(retryC)

		case <-ticker.C:
			retryC = w.pass(retryC)

		case <-w.trigger:
			retryC = w.pass(retryC)

		case <-retryC:
			retryC = w.pass(nil)
		}
	}
}

// startHotplugWatcher attaches fsnotify to the device tree. Failure is
// degradation, not an error: the periodic rescan still covers changes.
func (w *Watcher) startHotplugWatcher() (*fsnotify.Watcher, chan fsnotify.Event, chan error) {
	if w.opts.DevicePath == "" {
		return nil, nil, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("hotplug watching unavailable, relying on periodic rescan", "error", err)
		return nil, nil, nil
	}
	if err := watcher.Add(w.opts.DevicePath); err != nil {
		slog.Warn("cannot watch device tree, relying on periodic rescan",
			"path", w.opts.DevicePath, "error", err)
		_ = watcher.Close()
		return nil, nil, nil
	}
	slog.Info("watching device tree", "path", w.opts.DevicePath, "debounce", w.opts.Debounce)
	return watcher, watcher.Events, watcher.Errors
}

// pass runs one scan and dispatches any differences. On failure it
// schedules a retry and returns the retry channel; the caller keeps an
// already pending retry.
func (w *Watcher) pass(pending <-chan time.Time) <-chan time.Time {
	result, err := w.opts.Runner.Run(w.opts.Scan)
	if err != nil {
		slog.Error("scan pass failed", "error", err)
		if pending != nil {
			return pending
		}
		return time.After(w.backoff.Next())
	}
	w.backoff.Reset()

	changes := catalog.Diff(w.previous, result.Catalog)
	w.previous = result.Catalog

	if w.OnScan != nil {
		w.OnScan(result)
	}
	if len(changes) > 0 {
		w.dispatch(changes, result.Summary)
	}
	return nil
}

// dispatch fans a non-empty diff out to the configured sinks.
func (w *Watcher) dispatch(changes []catalog.Change, summary catalog.Summary) {
	for _, change := range changes {
		slog.Info("device list changed",
			"kind", change.Kind,
			"identifier", change.Identifier,
			"description", change.Description)
		if w.opts.Metrics != nil {
			w.opts.Metrics.IncrementDeviceChange(changeMetric(change.Kind))
		}
		if w.opts.Events != nil {
			if err := w.opts.Events.LogChange(changeEvent(change.Kind), change.Identifier, change.Description); err != nil {
				slog.Warn("failed to write event log", "error", err)
			}
		}
	}

	if w.opts.Notifier != nil {
		w.opts.Notifier.HandleChanges(changes, summary)
	}
	if w.OnChanges != nil {
		w.OnChanges(changes, summary)
	}
}

// changeEvent maps a diff kind to its event log type.
func changeEvent(kind catalog.ChangeKind) eventlog.EventType {
	switch kind {
	case catalog.ChangeDeviceAdded:
		return eventlog.DeviceAdded
	case catalog.ChangeDeviceRemoved:
		return eventlog.DeviceRemoved
	case catalog.ChangeCardAdded:
		return eventlog.CardAdded
	default:
		return eventlog.CardRemoved
	}
}

// changeMetric maps a diff kind to the metric change label.
func changeMetric(kind catalog.ChangeKind) string {
	switch kind {
	case catalog.ChangeDeviceAdded, catalog.ChangeCardAdded:
		return "added"
	default:
		return "removed"
	}
}
