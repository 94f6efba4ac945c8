// Package capability enumerates audio endpoints through the portable
// capability API. One Enumerate call performs the playback and capture passes
// of a scan and merges them into endpoint records; correlation with card
// metadata happens later in the catalog package.
package capability

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/malgo"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
)

// ErrSubsystemUnavailable reports that the platform audio subsystem could not
// be reached at all. A scan cannot proceed past this.
var ErrSubsystemUnavailable = errors.New("audio subsystem unavailable")

// Options controls one enumeration pass.
type Options struct {
	// Backends restricts which audio backends the context may try, in
	// preference order. Empty means the platform default.
	Backends []malgo.Backend

	// Exclusive additionally asks backends for exclusive-mode capabilities.
	// That query can touch device state on some platforms, so it is an
	// explicit opt-in.
	Exclusive bool
}

// Enumerate queries the audio subsystem once and returns a record per
// endpoint, playback and capture passes merged by identifier, in enumeration
// order. Endpoints whose extended capability query fails are kept with empty
// capability sets rather than dropped.
func Enumerate(opts Options) ([]catalog.DeviceRecord, error) {
	ctx, err := malgo.InitContext(opts.Backends, contextConfig(), contextLog)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubsystemUnavailable, err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	mode := malgo.Shared
	if opts.Exclusive {
		mode = malgo.Exclusive
	}

	var records []catalog.DeviceRecord
	seen := make(map[string]int)

	passes := []struct {
		kind   malgo.DeviceType
		stream catalog.StreamDirection
	}{
		{malgo.Playback, catalog.StreamPlayback},
		{malgo.Capture, catalog.StreamCapture},
	}
	for _, pass := range passes {
		endpoints, err := ctx.Devices(pass.kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSubsystemUnavailable, err)
		}
		for i := range endpoints {
			record := describe(ctx, pass.kind, pass.stream, &endpoints[i], mode)
			if at, ok := seen[record.Identifier]; ok {
				mergeRecord(&records[at], &record)
				continue
			}
			seen[record.Identifier] = len(records)
			records = append(records, record)
		}
	}
	return records, nil
}

// describe runs the extended capability query for one endpoint. A query
// failure degrades the endpoint to bare identification instead of aborting
// the pass.
func describe(ctx *malgo.AllocatedContext, kind malgo.DeviceType, stream catalog.StreamDirection, dev *malgo.DeviceInfo, mode malgo.ShareMode) catalog.DeviceRecord {
	record := catalog.DeviceRecord{
		Identifier: deviceIdentifier(dev),
		Driver:     catalog.DriverNative,
		IsDefault:  dev.IsDefault == 1,
	}

	full, err := ctx.DeviceInfo(kind, dev.ID, mode)
	if err != nil {
		slog.Warn("endpoint capability query failed", "identifier", record.Identifier, "error", err)
		return record
	}

	formats := full.Formats[:min(int(full.FormatCount), len(full.Formats))]
	channels := maxChannels(formats)
	if stream == catalog.StreamCapture {
		record.InputChannels = channels
	} else {
		record.OutputChannels = channels
	}
	record.SampleRates = supportedRates(formats)
	record.DefaultRate = chooseDefaultRate(record.SampleRates)
	record.IsDefault = record.IsDefault || full.IsDefault == 1
	if len(formats) > 0 {
		// Buffer geometry is negotiated at stream open and not reported by
		// the capability query; the common power-of-two window applies.
		record.DefaultBuffer = catalog.FallbackBufferSize
		record.BufferSizes = slices.Clone(catalog.CommonBufferSizes)
	}
	return record
}

// deviceIdentifier extracts the backend address from the raw ID union. ALSA
// and PulseAudio store a C string there (for ALSA the PCM address such as
// "hw:CARD=Audio,DEV=0"); backends with binary IDs fall back to the display
// name.
func deviceIdentifier(dev *malgo.DeviceInfo) string {
	raw := dev.ID[:]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	if id := string(raw); len(id) > 1 && utf8.ValidString(id) {
		return id
	}
	return dev.Name()
}

// contextConfig enables verbose device enumeration so alias endpoints (plug,
// dmix, dsnoop and friends) are exposed; classifying and collapsing those is
// exactly what the catalog is for.
func contextConfig() malgo.ContextConfig {
	var cfg malgo.ContextConfig
	cfg.Alsa.UseVerboseDeviceEnumeration = 1
	return cfg
}

// contextLog forwards backend diagnostics to the structured log.
func contextLog(message string) {
	slog.Debug("audio subsystem", "message", strings.TrimSpace(message))
}
