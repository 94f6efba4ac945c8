package catalog

import (
	"strconv"
	"strings"
)

// AccessKind classifies an endpoint by its naming convention: real hardware,
// a system-managed route, or one of the virtual/duplicate alias families.
type AccessKind string

const (
	// AccessDirectHardware is a raw hardware endpoint (hw: prefix).
	AccessDirectHardware AccessKind = "direct-hardware"
	// AccessSystemManaged is a system-routed endpoint (sysdefault:, default:CARD=).
	AccessSystemManaged AccessKind = "system-managed"
	// AccessFormatConverting is an automatic format conversion plugin (plughw:).
	AccessFormatConverting AccessKind = "format-converting"
	// AccessMixOutput is a software mixing alias for shared playback (dmix:).
	AccessMixOutput AccessKind = "mix-output"
	// AccessSnoopInput is a software capture-sharing alias (dsnoop:).
	AccessSnoopInput AccessKind = "snoop-input"
	// AccessChannelSubset exposes a channel subset of a hardware endpoint (front:, surroundNN:).
	AccessChannelSubset AccessKind = "channel-subset"
	// AccessDigitalPassthrough is a non-mixed digital output path (iec958:, hdmi:).
	AccessDigitalPassthrough AccessKind = "digital-passthrough"
	// AccessUnknown is any identifier without a recognized prefix.
	AccessUnknown AccessKind = "unknown"
)

// accessPrefixes maps identifier prefixes to access kinds. Longer prefixes
// are listed before shorter ones that would also match.
var accessPrefixes = []struct {
	prefix string
	kind   AccessKind
}{
	{"plughw:", AccessFormatConverting},
	{"hw:", AccessDirectHardware},
	{"sysdefault:", AccessSystemManaged},
	{"default:", AccessSystemManaged},
	{"front:", AccessChannelSubset},
	{"rear:", AccessChannelSubset},
	{"center_lfe:", AccessChannelSubset},
	{"side:", AccessChannelSubset},
	{"surround21:", AccessChannelSubset},
	{"surround40:", AccessChannelSubset},
	{"surround41:", AccessChannelSubset},
	{"surround50:", AccessChannelSubset},
	{"surround51:", AccessChannelSubset},
	{"surround71:", AccessChannelSubset},
	{"dmix:", AccessMixOutput},
	{"dsnoop:", AccessSnoopInput},
	{"iec958:", AccessDigitalPassthrough},
	{"hdmi:", AccessDigitalPassthrough},
}

// accessRank is the deduplication preference table; lower rank wins the
// representative slot for a card. Mix and snoop aliases never win and are
// suppressed whenever their card keeps any other record.
var accessRank = map[AccessKind]int{
	AccessDirectHardware:     0,
	AccessSystemManaged:      1,
	AccessFormatConverting:   2,
	AccessDigitalPassthrough: 3,
	AccessChannelSubset:      4,
	AccessUnknown:            5,
	AccessMixOutput:          6,
	AccessSnoopInput:         7,
}

// Rank returns the dedup preference of the kind; lower is preferred.
func (k AccessKind) Rank() int {
	r, ok := accessRank[k]
	if !ok {
		return accessRank[AccessUnknown]
	}
	return r
}

// IsAlias reports whether the kind is a pure duplicate of another endpoint
// and therefore never representative in the deduplicated view.
func (k AccessKind) IsAlias() bool {
	return k == AccessMixOutput || k == AccessSnoopInput
}

// Canonical reports whether the kind identifies the card's primary endpoint
// family. Canonical records suppress all variant kinds on the same card.
func (k AccessKind) Canonical() bool {
	return k == AccessDirectHardware || k == AccessSystemManaged
}

// parsedIdentifier holds the parts extracted from an endpoint identifier.
type parsedIdentifier struct {
	kind     AccessKind
	cardName string // CARD= token, empty when absent
	cardNum  int    // numeric card from hw:<n>,<m> form, -1 when absent
	device   int    // DEV= number or numeric device part, -1 when absent
}

// parseIdentifier classifies an identifier and extracts its card token.
// Identifiers without a recognized prefix come back as AccessUnknown with no
// card token and are left uncorrelated by the reconciler.
func parseIdentifier(identifier string) parsedIdentifier {
	parsed := parsedIdentifier{kind: AccessUnknown, cardNum: -1, device: -1}

	for _, entry := range accessPrefixes {
		rest, ok := strings.CutPrefix(identifier, entry.prefix)
		if !ok {
			continue
		}
		parsed.kind = entry.kind
		parsed.cardName, parsed.cardNum, parsed.device = parseAddress(rest)
		return parsed
	}
	return parsed
}

// parseAddress extracts card and device tokens from the part of an
// identifier after its prefix. Two forms exist: the named hint form
// "CARD=<name>,DEV=<n>" and the bare numeric form "<card>,<device>".
func parseAddress(address string) (cardName string, cardNum, device int) {
	cardNum, device = -1, -1

	for part := range strings.SplitSeq(address, ",") {
		switch {
		case strings.HasPrefix(part, "CARD="):
			cardName = strings.TrimPrefix(part, "CARD=")
		case strings.HasPrefix(part, "DEV="):
			if n, err := strconv.Atoi(strings.TrimPrefix(part, "DEV=")); err == nil && n >= 0 {
				device = n
			}
		default:
			if n, err := strconv.Atoi(part); err == nil && n >= 0 {
				if cardName == "" && cardNum < 0 {
					cardNum = n
				} else if device < 0 {
					device = n
				}
			}
		}
	}
	return cardName, cardNum, device
}
