package alsa

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
)

// pcmDirPattern matches PCM sub-device directories such as pcm0p and pcm1c.
var pcmDirPattern = regexp.MustCompile(`^pcm(\d+)([pc])$`)

// readPCMEntries scans a card's registry directory for PCM sub-devices. The
// directory may be absent when the kernel exposes the card without PCM
// detail; that yields no entries, not an error.
func readPCMEntries(root string, index int) []catalog.PCMEntry {
	dir := filepath.Join(root, fmt.Sprintf("card%d", index))
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var entries []catalog.PCMEntry
	for _, de := range dirEntries {
		matches := pcmDirPattern.FindStringSubmatch(de.Name())
		if matches == nil {
			continue
		}
		device, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		entry, ok := readPCMInfo(filepath.Join(dir, de.Name(), "info"), device, matches[2])
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	slices.SortStableFunc(entries, func(a, b catalog.PCMEntry) int {
		if a.Device != b.Device {
			return a.Device - b.Device
		}
		return streamOrder(a.Stream) - streamOrder(b.Stream)
	})
	return entries
}

// readPCMInfo parses one PCM info file, a flat "key: value" listing. A
// sub-device counts as busy when the kernel reports no free subdevices left.
func readPCMInfo(path string, device int, suffix string) (catalog.PCMEntry, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("skipping unreadable pcm info", "path", path, "error", err)
		return catalog.PCMEntry{}, false
	}

	entry := catalog.PCMEntry{Device: device, Stream: catalog.StreamPlayback}
	if suffix == "c" {
		entry.Stream = catalog.StreamCapture
	}

	count, avail := 0, -1
	for line := range strings.SplitSeq(string(raw), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "name":
			entry.Name = value
		case "subdevices_count":
			count, _ = strconv.Atoi(value)
		case "subdevices_avail":
			avail, _ = strconv.Atoi(value)
		}
	}
	entry.InUse = count > 0 && avail == 0
	return entry, true
}

func streamOrder(s catalog.StreamDirection) int {
	if s == catalog.StreamPlayback {
		return 0
	}
	return 1
}
