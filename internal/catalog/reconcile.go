package catalog

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Fallback capability constants, applied when a source reports no usable
// parameter set. Registry-synthesized records always start from these.
const (
	// FallbackSampleRate is assumed when no default rate is reported.
	FallbackSampleRate = 44100
	// FallbackChannels is assumed per direction for registry PCM entries.
	FallbackChannels = 2
	// FallbackBufferSize is the assumed default period size in frames.
	FallbackBufferSize = 1024
)

// CommonSampleRates are the well-known audio rates probed against reported
// rate ranges. Ascending.
var CommonSampleRates = []int{8000, 11025, 22050, 44100, 48000, 88200, 96000, 176400, 192000}

// CommonBufferSizes are the power-of-two period sizes considered negotiable
// when a backend reports no explicit buffer capabilities. Ascending.
var CommonBufferSizes = []int{64, 128, 256, 512, 1024, 2048, 4096, 8192}

// Build correlates enumerated endpoint records with registry cards and
// produces the catalog: the full view in enumeration order, the deduplicated
// default view, and the card list ordered by index. Channel-less records are
// dropped here so no downstream consumer ever sees one. Build never fails;
// correlation misses leave a record uncorrelated with AccessUnknown.
func Build(records []DeviceRecord, cards []CardEntry) *Catalog {
	sorted := slices.Clone(cards)
	slices.SortStableFunc(sorted, func(a, b CardEntry) int { return a.Index - b.Index })

	byName := make(map[string]*CardEntry, len(sorted))
	byIndex := make(map[int]*CardEntry, len(sorted))
	for i := range sorted {
		byName[strings.ToLower(sorted[i].ShortName)] = &sorted[i]
		byIndex[sorted[i].Index] = &sorted[i]
	}

	type endpointKey struct{ card, device int }
	covered := make(map[endpointKey]bool)

	all := make([]DeviceRecord, 0, len(records))
	for _, rec := range records {
		if rec.InputChannels == 0 && rec.OutputChannels == 0 {
			slog.Debug("dropping channel-less endpoint", "identifier", rec.Identifier)
			continue
		}

		parsed := parseIdentifier(rec.Identifier)
		rec.Access = parsed.kind

		var card *CardEntry
		switch {
		case parsed.cardName != "":
			card = byName[strings.ToLower(parsed.cardName)]
		case parsed.cardNum >= 0:
			card = byIndex[parsed.cardNum]
		}
		if card != nil {
			index := card.Index
			rec.CardIndex = &index
			rec.CardShortName = card.ShortName
			rec.CardDescription = card.Description
			if parsed.device >= 0 {
				rec.InUse = rec.InUse || pcmInUse(card, parsed.device)
				covered[endpointKey{card.Index, parsed.device}] = true
			}
		}
		all = append(all, rec)
	}

	// Registry PCM sub-devices without an enumerated twin become records of
	// their own, so raw hardware endpoints a backend hides stay visible.
	for i := range sorted {
		card := &sorted[i]
		var devices []int
		synthesized := make(map[int]*DeviceRecord)
		for _, pcm := range card.PCMDevices {
			if covered[endpointKey{card.Index, pcm.Device}] {
				continue
			}
			rec, ok := synthesized[pcm.Device]
			if !ok {
				rec = registryRecord(card, pcm.Device)
				synthesized[pcm.Device] = rec
				devices = append(devices, pcm.Device)
			}
			if pcm.Stream == StreamCapture {
				rec.InputChannels = FallbackChannels
			} else {
				rec.OutputChannels = FallbackChannels
			}
			rec.InUse = rec.InUse || pcm.InUse
		}
		for _, device := range devices {
			all = append(all, *synthesized[device])
		}
	}

	return &Catalog{
		AllDevices: all,
		Devices:    dedupe(all),
		Cards:      sorted,
	}
}

// registryRecord builds a DeviceRecord for a PCM sub-device known only to
// the registry. Capabilities are unknown, so the common fallbacks apply.
func registryRecord(card *CardEntry, device int) *DeviceRecord {
	index := card.Index
	return &DeviceRecord{
		Identifier:      fmt.Sprintf("hw:%d,%d", card.Index, device),
		Driver:          DriverRegistry,
		CardIndex:       &index,
		CardShortName:   card.ShortName,
		CardDescription: card.Description,
		DefaultRate:     FallbackSampleRate,
		SampleRates:     slices.Clone(CommonSampleRates),
		Access:          AccessDirectHardware,
	}
}

// pcmInUse reports whether any PCM sub-device with the given number is busy.
func pcmInUse(card *CardEntry, device int) bool {
	for _, pcm := range card.PCMDevices {
		if pcm.Device == device && pcm.InUse {
			return true
		}
	}
	return false
}

// dedupe builds the default view. Records group by card identity: the
// registry index when correlated, otherwise the card token or number
// embedded in the identifier, otherwise the whole identifier (a bare
// alias is its own group and always survives). Within a group dmix/dsnoop
// aliases are always suppressed; of the remaining records only the
// best-preferred access kind survives, one representative per device
// number. Ties at equal kind and device number go to the record with more
// channels, then to first-seen order. The result is a subsequence of the
// input, so deduplicating twice changes nothing.
func dedupe(all []DeviceRecord) []DeviceRecord {
	type groupKey struct {
		card int
		name string
	}

	parsed := make([]parsedIdentifier, len(all))
	var order []groupKey
	groups := make(map[groupKey][]int)
	for i := range all {
		parsed[i] = parseIdentifier(all[i].Identifier)
		key := groupKey{card: -1}
		switch {
		case all[i].CardIndex != nil:
			key.card = *all[i].CardIndex
		case parsed[i].cardName != "":
			key.name = strings.ToLower(parsed[i].cardName)
		case parsed[i].cardNum >= 0:
			key.card = parsed[i].cardNum
		default:
			key.name = all[i].Identifier
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	keep := make([]bool, len(all))
	for _, key := range order {
		members := groups[key]

		bestRank := -1
		for _, i := range members {
			if all[i].Access.IsAlias() {
				continue
			}
			if rank := all[i].Access.Rank(); bestRank < 0 || rank < bestRank {
				bestRank = rank
			}
		}
		if bestRank < 0 {
			continue // only aliases; the card keeps no representative
		}

		// One representative per device number at the preferred kind.
		chosen := make(map[int]int)
		for _, i := range members {
			if all[i].Access.IsAlias() || all[i].Access.Rank() != bestRank {
				continue
			}
			current, ok := chosen[parsed[i].device]
			if !ok || moreChannels(&all[i], &all[current]) {
				chosen[parsed[i].device] = i
			}
		}
		for _, i := range chosen {
			keep[i] = true
		}
	}

	deduped := make([]DeviceRecord, 0, len(all))
	for i := range all {
		if keep[i] {
			deduped = append(deduped, all[i])
		}
	}
	return deduped
}

// moreChannels reports whether a carries strictly more total channels than b.
func moreChannels(a, b *DeviceRecord) bool {
	return a.InputChannels+a.OutputChannels > b.InputChannels+b.OutputChannels
}
