// Package catalog builds the reconciled audio device catalog: it correlates
// endpoint records from the capability enumerator with card entries from the
// hardware registry, classifies each endpoint, deduplicates aliases, and
// computes summary statistics. Everything in this package is pure data
// transformation; enumeration and registry reading live in their own packages.
package catalog

import "slices"

// DriverTag identifies which enumeration source produced a DeviceRecord.
type DriverTag string

const (
	// DriverNative marks records reported by the cross-platform capability API.
	DriverNative DriverTag = "native-capability"
	// DriverRegistry marks records synthesized from hardware registry PCM entries.
	DriverRegistry DriverTag = "registry-hardware"
)

// DefaultAlias is the platform's generic default endpoint name. Records with
// this identifier stay uncorrelated and drive default-device detection.
const DefaultAlias = "default"

// StreamDirection distinguishes playback from capture PCM sub-devices.
type StreamDirection string

const (
	// StreamPlayback is an output PCM sub-device.
	StreamPlayback StreamDirection = "playback"
	// StreamCapture is an input PCM sub-device.
	StreamCapture StreamDirection = "capture"
)

// DeviceRecord is one addressable audio endpoint.
type DeviceRecord struct {
	Identifier      string     `json:"identifier"`                 // Raw endpoint name as reported by the source
	Driver          DriverTag  `json:"driver_tag"`                 // Which source produced the record
	CardIndex       *int       `json:"card_index,omitempty"`       // Registry card index, nil when uncorrelated
	CardShortName   string     `json:"card_short_name,omitempty"`  // Registry short name, set by correlation
	CardDescription string     `json:"card_description,omitempty"` // Registry long description, set by correlation
	InputChannels   int        `json:"input_channels"`
	OutputChannels  int        `json:"output_channels"`
	DefaultRate     int        `json:"default_sample_rate_hz"`
	SampleRates     []int      `json:"supported_sample_rates"`           // Always contains DefaultRate, ascending
	DefaultBuffer   int        `json:"default_buffer_size,omitempty"`    // Frames, 0 when unknown
	BufferSizes     []int      `json:"supported_buffer_sizes,omitempty"` // Frames, ascending, empty when unknown
	Access          AccessKind `json:"access_kind"`
	IsDefault       bool       `json:"is_default,omitempty"` // Backend flagged this endpoint as a system default
	InUse           bool       `json:"in_use,omitempty"`     // Registry reports the PCM sub-device as busy
}

// HasInput reports whether the endpoint accepts capture streams.
func (d *DeviceRecord) HasInput() bool {
	return d.InputChannels > 0
}

// HasOutput reports whether the endpoint accepts playback streams.
func (d *DeviceRecord) HasOutput() bool {
	return d.OutputChannels > 0
}

// SupportsSampleRate reports whether the endpoint supports the given rate.
func (d *DeviceRecord) SupportsSampleRate(rate int) bool {
	return slices.Contains(d.SampleRates, rate)
}

// Correlated reports whether the record was matched to a registry card.
func (d *DeviceRecord) Correlated() bool {
	return d.CardIndex != nil
}

// PCMEntry is one PCM sub-device parsed from a card's registry sub-tree.
type PCMEntry struct {
	Device int             `json:"device"`           // PCM device number within the card
	Stream StreamDirection `json:"stream"`           // Playback or capture
	Name   string          `json:"name,omitempty"`   // PCM id from the info file
	InUse  bool            `json:"in_use,omitempty"` // No subdevices available
}

// CardEntry is one sound card known to the hardware registry.
type CardEntry struct {
	Index       int        `json:"index"` // Stable for process lifetime only
	ShortName   string     `json:"short_name"`
	Description string     `json:"long_description"`
	DriverName  string     `json:"driver_name"`
	PCMDevices  []PCMEntry `json:"pcm_devices,omitempty"` // Empty when sub-entry reading is unavailable
}

// Catalog is the reconciled result of one enumeration pass. It is rebuilt
// fresh on every scan and never cached across runs.
type Catalog struct {
	AllDevices []DeviceRecord `json:"all_devices"` // Full view, enumeration order
	Devices    []DeviceRecord `json:"devices"`     // Deduplicated default view, subset of AllDevices
	Cards      []CardEntry    `json:"cards"`       // Ordered by index
}

// View selects which device list of a Catalog an operation works on.
type View string

const (
	// ViewDefault is the deduplicated device list.
	ViewDefault View = "default"
	// ViewAll is the full device list including aliases.
	ViewAll View = "all"
)

// Select returns the device list for the given view.
func (c *Catalog) Select(view View) []DeviceRecord {
	if view == ViewAll {
		return c.AllDevices
	}
	return c.Devices
}

// Card returns the card entry with the given index, or nil.
func (c *Catalog) Card(index int) *CardEntry {
	for i := range c.Cards {
		if c.Cards[i].Index == index {
			return &c.Cards[i]
		}
	}
	return nil
}

// Summary holds the aggregate statistics computed over a device sequence.
type Summary struct {
	TotalDevices  int    `json:"total_devices"`
	InputDevices  int    `json:"input_devices"`            // input_channels > 0
	OutputDevices int    `json:"output_devices"`           // output_channels > 0
	DefaultInput  string `json:"default_input,omitempty"`  // Identifier of the default capture alias, if present
	DefaultOutput string `json:"default_output,omitempty"` // Identifier of the default playback alias, if present
}
