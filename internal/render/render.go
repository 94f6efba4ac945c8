// Package render formats scan results for the terminal and for JSON
// consumers.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
	"github.com/oszuidwest/zwfm-audioscan/internal/scan"
)

// Report is the JSON envelope for one scan.
type Report struct {
	Devices []catalog.DeviceRecord `json:"devices"`
	Cards   []catalog.CardEntry    `json:"cards"`
	Summary catalog.Summary        `json:"summary"`
}

// JSON writes the scan result as an indented JSON report.
func JSON(w io.Writer, result *scan.Result) error {
	report := Report{
		Devices: result.Devices,
		Cards:   result.Catalog.Cards,
		Summary: result.Summary,
	}
	if report.Devices == nil {
		report.Devices = []catalog.DeviceRecord{}
	}
	if report.Cards == nil {
		report.Cards = []catalog.CardEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// Text writes the human-readable report: the card listing, the aggregate
// summary and the device list. Verbose expands every device into a detail
// block.
func Text(w io.Writer, result *scan.Result, verbose bool) {
	fmt.Fprintln(w, "=== AUDIO CARDS ===")
	writeCards(w, result.Catalog.Cards, false)

	fmt.Fprintln(w, "\n=== SUMMARY ===")
	writeSummary(w, result.Summary)

	fmt.Fprintln(w, "\n=== DEVICES ===")
	if len(result.Devices) == 0 {
		fmt.Fprintln(w, "no devices matched")
		return
	}
	for i := range result.Devices {
		device := &result.Devices[i]
		if verbose {
			writeDeviceDetail(w, i+1, device)
		} else {
			fmt.Fprintf(w, "%d: %s (%s) - in: %d, out: %d, rate: %d Hz%s\n",
				i+1, device.Identifier, device.Access,
				device.InputChannels, device.OutputChannels, device.DefaultRate,
				deviceFlags(device))
		}
	}
}

// Cards writes the card listing alone, including PCM sub-devices.
func Cards(w io.Writer, cards []catalog.CardEntry) {
	writeCards(w, cards, true)
}

// CardsJSON writes the card listing as an indented JSON document.
func CardsJSON(w io.Writer, cards []catalog.CardEntry) error {
	if cards == nil {
		cards = []catalog.CardEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string][]catalog.CardEntry{"cards": cards})
}

func writeCards(w io.Writer, cards []catalog.CardEntry, pcm bool) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "no sound cards found")
		return
	}
	for i := range cards {
		card := &cards[i]
		fmt.Fprintf(w, "card %d: %s - %s (driver %s)\n", card.Index, card.ShortName, card.Description, card.DriverName)
		if !pcm {
			continue
		}
		for _, sub := range card.PCMDevices {
			busy := ""
			if sub.InUse {
				busy = " [in use]"
			}
			fmt.Fprintf(w, "  pcm %d %s: %s%s\n", sub.Device, sub.Stream, sub.Name, busy)
		}
	}
}

func writeSummary(w io.Writer, summary catalog.Summary) {
	fmt.Fprintf(w, "Total devices: %d\n", summary.TotalDevices)
	fmt.Fprintf(w, "Input devices: %d\n", summary.InputDevices)
	fmt.Fprintf(w, "Output devices: %d\n", summary.OutputDevices)
	if summary.DefaultInput != "" {
		fmt.Fprintf(w, "Default input: %s\n", summary.DefaultInput)
	}
	if summary.DefaultOutput != "" {
		fmt.Fprintf(w, "Default output: %s\n", summary.DefaultOutput)
	}
}

func writeDeviceDetail(w io.Writer, position int, device *catalog.DeviceRecord) {
	fmt.Fprintf(w, "Device #%d: %s\n", position, device.Identifier)
	fmt.Fprintf(w, "  direction: %s\n", direction(device))
	fmt.Fprintf(w, "  access: %s\n", device.Access)
	fmt.Fprintf(w, "  source: %s\n", device.Driver)
	if device.Correlated() {
		fmt.Fprintf(w, "  card: %d (%s - %s)\n", *device.CardIndex, device.CardShortName, device.CardDescription)
	}
	fmt.Fprintf(w, "  input channels: %d\n", device.InputChannels)
	fmt.Fprintf(w, "  output channels: %d\n", device.OutputChannels)
	fmt.Fprintf(w, "  default sample rate: %d Hz\n", device.DefaultRate)
	if len(device.SampleRates) > 0 {
		fmt.Fprintf(w, "  supported sample rates: %s Hz\n", joinInts(device.SampleRates))
	}
	if device.DefaultBuffer > 0 {
		fmt.Fprintf(w, "  default buffer size: %d samples\n", device.DefaultBuffer)
	}
	if len(device.BufferSizes) > 0 {
		fmt.Fprintf(w, "  supported buffer sizes: %s samples\n", joinInts(device.BufferSizes))
	}
	if flags := deviceFlags(device); flags != "" {
		fmt.Fprintf(w, "  flags:%s\n", flags)
	}
	fmt.Fprintln(w)
}

// direction labels a record by its stream capabilities.
func direction(d *catalog.DeviceRecord) string {
	switch {
	case d.HasInput() && d.HasOutput():
		return "duplex"
	case d.HasInput():
		return "capture"
	default:
		return "playback"
	}
}

func deviceFlags(d *catalog.DeviceRecord) string {
	var parts []string
	if d.IsDefault {
		parts = append(parts, "default")
	}
	if d.InUse {
		parts = append(parts, "in use")
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
