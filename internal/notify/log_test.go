package notify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
)

func TestLogChanges(t *testing.T) {
	t.Run("appends one JSON line per change", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "changes.jsonl")
		changes := []catalog.Change{
			{Kind: catalog.ChangeDeviceAdded, Identifier: "plughw:CARD=Audio,DEV=0", Description: "USB Audio CODEC"},
			{Kind: catalog.ChangeCardAdded, Identifier: "Audio", Description: "USB Audio CODEC"},
		}
		require.NoError(t, LogChanges(path, changes, catalog.Summary{TotalDevices: 3}))
		require.NoError(t, LogChanges(path, changes[:1], catalog.Summary{TotalDevices: 3}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 3)

		var entry ChangeLogEntry
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "device_added", entry.Event)
		assert.Equal(t, "plughw:CARD=Audio,DEV=0", entry.Identifier)
		assert.Equal(t, "USB Audio CODEC", entry.Description)
		assert.Equal(t, 3, entry.TotalDevices)
		assert.NotEmpty(t, entry.Timestamp)
	})

	t.Run("empty path is silently skipped", func(t *testing.T) {
		assert.NoError(t, LogChanges("", []catalog.Change{{Kind: catalog.ChangeDeviceAdded}}, catalog.Summary{}))
	})
}

func TestWriteTestLog(t *testing.T) {
	t.Run("requires a configured path", func(t *testing.T) {
		assert.Error(t, WriteTestLog(""))
	})

	t.Run("writes a test entry", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "changes.jsonl")
		require.NoError(t, WriteTestLog(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var entry ChangeLogEntry
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
		assert.Equal(t, "test", entry.Event)
	})
}
