package notify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
	"github.com/oszuidwest/zwfm-audioscan/internal/util"
)

// ChangeLogEntry represents a single entry in the device change log.
type ChangeLogEntry struct {
	Timestamp    string `json:"timestamp"`             // RFC3339 timestamp
	Event        string `json:"event"`                 // Change kind (device_added, card_removed, ...)
	Identifier   string `json:"identifier,omitempty"`  // Device identifier or card short name
	Description  string `json:"description,omitempty"` // Card description when known
	TotalDevices int    `json:"total_devices"`         // Device count after the change
}

// LogChanges records device tree changes, one entry per change.
func LogChanges(logPath string, changes []catalog.Change, summary catalog.Summary) error {
	for _, change := range changes {
		entry := &ChangeLogEntry{
			Timestamp:    timestampUTC(),
			Event:        string(change.Kind),
			Identifier:   change.Identifier,
			Description:  change.Description,
			TotalDevices: summary.TotalDevices,
		}
		if err := appendLogEntry(logPath, entry); err != nil {
			return err
		}
	}
	return nil
}

// WriteTestLog writes a test log entry.
func WriteTestLog(logPath string) error {
	if logPath == "" {
		return fmt.Errorf("log file path not configured")
	}

	return appendLogEntry(logPath, &ChangeLogEntry{
		Timestamp: timestampUTC(),
		Event:     "test",
	})
}

// appendLogEntry appends a log entry to the file.
func appendLogEntry(logPath string, entry *ChangeLogEntry) error {
	if !util.IsConfigured(logPath) {
		return nil
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return util.WrapError("marshal log entry", err)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return util.WrapError("open log file", err)
	}
	defer util.SafeCloseFunc(f, "log file")()

	if _, err := f.Write(jsonData); err != nil {
		return util.WrapError("write log entry", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return util.WrapError("write newline", err)
	}

	return nil
}
