package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// cardNumberPattern matches a card index with an optional non-digit prefix,
// so "1" and "card1" both address card 1.
var cardNumberPattern = regexp.MustCompile(`^\D*(\d+)$`)

// Predicate narrows a device sequence. Empty fields match everything; both
// fields supplied means both must match.
type Predicate struct {
	Card   string `json:"card,omitempty"`   // Card index ("1", "card1") or name/description substring
	Device string `json:"device,omitempty"` // Identifier or card description substring
}

// Empty reports whether the predicate filters nothing.
func (p Predicate) Empty() bool {
	return p.Card == "" && p.Device == ""
}

// Filter returns the subsequence of devices matching all supplied
// predicates, preserving order. No match yields an empty sequence, never an
// error.
func Filter(devices []DeviceRecord, pred Predicate) []DeviceRecord {
	if pred.Empty() {
		return devices
	}

	matched := make([]DeviceRecord, 0, len(devices))
	for i := range devices {
		if pred.Card != "" && !matchesCard(&devices[i], pred.Card) {
			continue
		}
		if pred.Device != "" && !matchesDevice(&devices[i], pred.Device) {
			continue
		}
		matched = append(matched, devices[i])
	}
	return matched
}

// matchesCard matches the card query against a record's correlated card: by
// index when the query is numeric (with an optional "card" prefix), or by
// case-insensitive substring on the short name and description.
func matchesCard(d *DeviceRecord, query string) bool {
	if m := cardNumberPattern.FindStringSubmatch(query); m != nil && d.CardIndex != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n == *d.CardIndex {
			return true
		}
	}

	q := strings.ToLower(query)
	return containsFold(d.CardShortName, q) || containsFold(d.CardDescription, q)
}

// matchesDevice matches the device query against the identifier and the
// card description, so manufacturer names present only in the registry
// description stay discoverable.
func matchesDevice(d *DeviceRecord, query string) bool {
	q := strings.ToLower(query)
	return containsFold(d.Identifier, q) || containsFold(d.CardDescription, q)
}

// containsFold reports whether s contains the already-lowercased substring.
func containsFold(s, lower string) bool {
	if lower == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), lower)
}
