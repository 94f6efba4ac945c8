// Package scan runs the full pipeline of one pass: enumerate endpoints, read
// the hardware registry, reconcile into a catalog, filter, aggregate. Every
// pass is independent and rebuilds the catalog from scratch; nothing is
// cached or shared between passes.
package scan

import (
	"log/slog"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/oszuidwest/zwfm-audioscan/internal/alsa"
	"github.com/oszuidwest/zwfm-audioscan/internal/capability"
	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
	"github.com/oszuidwest/zwfm-audioscan/internal/metrics"
)

// Options selects what one scan pass does.
type Options struct {
	// Filter narrows the presented device list. Empty matches everything.
	Filter catalog.Predicate

	// View picks the deduplicated or the full device list.
	View catalog.View

	// SkipRegistry disables hardware registry reading. Card metadata is then
	// absent and every record stays uncorrelated.
	SkipRegistry bool

	// RegistryRoot overrides the registry mount point, for tests. Empty
	// means the platform default.
	RegistryRoot string

	// Backends restricts which capability backends to try.
	Backends []malgo.Backend

	// Exclusive asks for exclusive-mode capabilities as well.
	Exclusive bool
}

// Result is the outcome of one scan pass.
type Result struct {
	// Catalog is the reconciled catalog backing the presented list.
	Catalog *catalog.Catalog
	// Devices is the selected view after filtering.
	Devices []catalog.DeviceRecord
	// Summary aggregates the presented devices.
	Summary catalog.Summary
	// Elapsed is the wall time the pass took.
	Elapsed time.Duration
}

// Runner executes scan passes. The zero value uses the platform capability
// enumerator and registry reader; the function fields exist so tests can
// substitute fixtures.
type Runner struct {
	// Enumerate overrides the capability enumerator.
	Enumerate func(capability.Options) ([]catalog.DeviceRecord, error)

	// ReadCards overrides the hardware registry reader.
	ReadCards func(root string) ([]catalog.CardEntry, error)

	// Metrics, when set, receives scan observations.
	Metrics *metrics.Metrics
}

// Run executes one pass with the platform sources.
func Run(opts Options) (*Result, error) {
	return new(Runner).Run(opts)
}

// Cards reads the hardware registry card listing without running an
// enumeration pass. An empty root means the platform default.
func (r *Runner) Cards(root string) ([]catalog.CardEntry, error) {
	readCards := r.ReadCards
	if readCards == nil {
		readCards = alsa.ReadCards
	}
	if root == "" {
		root = alsa.DefaultRoot
	}
	return readCards(root)
}

// Run executes one scan pass. The only fatal condition is an unreachable
// audio subsystem; an unreadable registry degrades the pass to enumeration
// without card metadata.
func (r *Runner) Run(opts Options) (*Result, error) {
	start := time.Now()

	enumerate := r.Enumerate
	if enumerate == nil {
		enumerate = capability.Enumerate
	}
	records, err := enumerate(capability.Options{Backends: opts.Backends, Exclusive: opts.Exclusive})
	if err != nil {
		return nil, err
	}

	var cards []catalog.CardEntry
	if opts.SkipRegistry {
		slog.Debug("hardware registry reading disabled")
	} else {
		readCards := r.ReadCards
		if readCards == nil {
			readCards = alsa.ReadCards
		}
		root := opts.RegistryRoot
		if root == "" {
			root = alsa.DefaultRoot
		}
		cards, err = readCards(root)
		if err != nil {
			slog.Warn("continuing without card metadata", "error", err)
			cards = nil
		}
	}

	cat := catalog.Build(records, cards)
	devices := catalog.Filter(cat.Select(opts.View), opts.Filter)
	summary := catalog.Summarize(devices)

	elapsed := time.Since(start)
	if r.Metrics != nil {
		// Metrics always reflect the full deduplicated view, regardless of
		// what filter this pass presents.
		r.Metrics.ObserveScan(elapsed, catalog.Summarize(cat.Devices), len(cat.Cards))
	}
	slog.Debug("scan completed",
		"endpoints", len(records),
		"devices", len(cat.Devices),
		"cards", len(cat.Cards),
		"duration", elapsed)

	return &Result{Catalog: cat, Devices: devices, Summary: summary, Elapsed: elapsed}, nil
}
