package capability

import (
	"slices"

	"github.com/gen2brain/malgo"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
)

// preferredSampleRate is tried first when picking a working rate. The
// broadcast chain runs at 48 kHz end to end.
const preferredSampleRate = 48000

// maxChannels returns the widest channel count among the native formats. A
// format reporting zero channels accepts any standard layout; stereo is
// assumed when nothing more specific is on offer.
func maxChannels(formats []malgo.DataFormat) int {
	channels := 0
	anyLayout := false
	for _, f := range formats {
		switch {
		case f.Channels == 0:
			anyLayout = true
		case int(f.Channels) > channels:
			channels = int(f.Channels)
		}
	}
	if channels == 0 && anyLayout {
		return catalog.FallbackChannels
	}
	return channels
}

// supportedRates returns the union of native sample rates, ascending. A
// format advertising rate zero supports all standard rates, so the common
// table is folded in.
func supportedRates(formats []malgo.DataFormat) []int {
	set := make(map[int]bool, len(formats))
	for _, f := range formats {
		if f.SampleRate == 0 {
			for _, rate := range catalog.CommonSampleRates {
				set[rate] = true
			}
			continue
		}
		set[int(f.SampleRate)] = true
	}
	if len(set) == 0 {
		return nil
	}
	rates := make([]int, 0, len(set))
	for rate := range set {
		rates = append(rates, rate)
	}
	slices.Sort(rates)
	return rates
}

// chooseDefaultRate picks the endpoint's working rate: the broadcast rate
// when supported, otherwise CD rate, otherwise the lowest reported.
func chooseDefaultRate(rates []int) int {
	for _, preferred := range []int{preferredSampleRate, catalog.FallbackSampleRate} {
		if slices.Contains(rates, preferred) {
			return preferred
		}
	}
	if len(rates) > 0 {
		return rates[0]
	}
	return 0
}

// mergeRecord folds a second enumeration view of an endpoint into dst.
// Channel counts are per direction, capability sets union, and default flags
// stick once set.
func mergeRecord(dst, src *catalog.DeviceRecord) {
	dst.InputChannels = max(dst.InputChannels, src.InputChannels)
	dst.OutputChannels = max(dst.OutputChannels, src.OutputChannels)
	dst.SampleRates = mergeRates(dst.SampleRates, src.SampleRates)
	dst.DefaultRate = chooseDefaultRate(dst.SampleRates)
	if dst.DefaultBuffer == 0 {
		dst.DefaultBuffer = src.DefaultBuffer
	}
	if len(dst.BufferSizes) == 0 {
		dst.BufferSizes = src.BufferSizes
	}
	dst.IsDefault = dst.IsDefault || src.IsDefault
	dst.InUse = dst.InUse || src.InUse
}

// mergeRates unions two ascending rate sets.
func mergeRates(a, b []int) []int {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		return slices.Clone(b)
	}
	merged := slices.Clone(a)
	for _, rate := range b {
		if !slices.Contains(merged, rate) {
			merged = append(merged, rate)
		}
	}
	slices.Sort(merged)
	return merged
}
