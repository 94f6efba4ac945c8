// Package alsa reads sound card and PCM sub-device metadata from the kernel's
// /proc/asound registry tree. Access is text-only: no device node is ever
// opened, so enumeration never disturbs an active stream. On platforms without
// the registry the tree is simply absent and ReadCards reports no cards.
package alsa

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
)

// DefaultRoot is the kernel's audio registry mount point.
const DefaultRoot = "/proc/asound"

// ErrRegistryUnreadable reports a registry tree that exists but cannot be parsed.
var ErrRegistryUnreadable = errors.New("audio card registry unreadable")

// noCardsMarker is what the kernel writes to the cards file when no sound
// hardware is installed.
const noCardsMarker = "--- no soundcards ---"

// cardLinePattern matches card header lines such as
// " 0 [HDMI           ]: HDA-Intel - HDA ATI HDMI".
var cardLinePattern = regexp.MustCompile(`^\s*(\S+)\s+\[([^\]]+)\]:\s+(\S+)\s+-\s+(.+)$`)

// ReadCards parses the card listing under root into ordered card entries and
// collects the PCM sub-devices of each card. A missing registry tree is not
// an error: the scan simply proceeds without card metadata.
func ReadCards(root string) ([]catalog.CardEntry, error) {
	path := filepath.Join(root, "cards")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("audio card registry not present", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistryUnreadable, err)
	}

	content := string(raw)
	cards := parseCards(content)
	if len(cards) == 0 && !registryEmpty(content) {
		return nil, fmt.Errorf("%w: no card entries in %s", ErrRegistryUnreadable, path)
	}

	for i := range cards {
		cards[i].PCMDevices = readPCMEntries(root, cards[i].Index)
	}
	return cards, nil
}

// parseCards extracts card entries from the cards file content. Header lines
// with a non-integer index are skipped with a warning; continuation lines
// carrying the extended description are ignored.
func parseCards(content string) []catalog.CardEntry {
	var cards []catalog.CardEntry
	for line := range strings.SplitSeq(content, "\n") {
		matches := cardLinePattern.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		index, err := strconv.Atoi(matches[1])
		if err != nil || index < 0 {
			slog.Warn("skipping card line with invalid index", "index", matches[1])
			continue
		}
		cards = append(cards, catalog.CardEntry{
			Index:       index,
			ShortName:   strings.TrimSpace(matches[2]),
			DriverName:  matches[3],
			Description: strings.TrimSpace(matches[4]),
		})
	}
	return cards
}

// registryEmpty reports whether the cards file content legitimately describes
// zero cards, as opposed to content we failed to parse.
func registryEmpty(content string) bool {
	return strings.TrimSpace(content) == "" || strings.Contains(content, noCardsMarker)
}
