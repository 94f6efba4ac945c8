package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "audioscan.json")
}

func TestLoad(t *testing.T) {
	t.Run("first run writes defaults with a generated api key", func(t *testing.T) {
		path := configPath(t)
		cfg := New(path)
		require.NoError(t, cfg.Load())

		snap := cfg.Snapshot()
		assert.Equal(t, DefaultStationName, snap.StationName)
		assert.Equal(t, DefaultServerPort, snap.ServerPort)
		assert.Equal(t, DefaultDevicePath, snap.DevicePath)
		assert.Len(t, snap.APIKey, 32)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var onDisk map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &onDisk))
		assert.Contains(t, onDisk, "scan")
		assert.Contains(t, onDisk, "watch")
	})

	t.Run("existing file is read and left untouched", func(t *testing.T) {
		path := configPath(t)
		content := `{
			"station": {"name": "Rucphen RTV"},
			"server": {"port": 9000, "api_key": "k"},
			"scan": {"backends": ["alsa"], "skip_registry": true},
			"watch": {"interval_ms": 5000}
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg := New(path)
		require.NoError(t, cfg.Load())

		snap := cfg.Snapshot()
		assert.Equal(t, "Rucphen RTV", snap.StationName)
		assert.Equal(t, 9000, snap.ServerPort)
		assert.Equal(t, []string{"alsa"}, snap.Backends)
		assert.True(t, snap.SkipRegistry)
		assert.Equal(t, 5*time.Second, snap.WatchInterval)

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, content, string(after))
	})

	t.Run("empty api key is generated and persisted", func(t *testing.T) {
		path := configPath(t)
		require.NoError(t, os.WriteFile(path, []byte(`{"server": {"port": 9000}}`), 0o600))

		cfg := New(path)
		require.NoError(t, cfg.Load())
		assert.Len(t, cfg.Snapshot().APIKey, 32)

		reloaded := New(path)
		require.NoError(t, reloaded.Load())
		assert.Equal(t, cfg.Snapshot().APIKey, reloaded.Snapshot().APIKey)
	})

	t.Run("timing defaults apply through the snapshot", func(t *testing.T) {
		cfg := New(configPath(t))
		require.NoError(t, cfg.Load())

		snap := cfg.Snapshot()
		assert.Equal(t, DefaultWatchIntervalMs*time.Millisecond, snap.WatchInterval)
		assert.Equal(t, DefaultWatchDebounceMs*time.Millisecond, snap.WatchDebounce)
	})

	t.Run("malformed json is an error", func(t *testing.T) {
		path := configPath(t)
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		assert.Error(t, New(path).Load())
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"station name too long", `{"station": {"name": "0123456789012345678901234567890"}}`},
		{"port out of range", `{"server": {"port": 70000}}`},
		{"unknown backend", `{"scan": {"backends": ["asio"]}}`},
		{"negative watch interval", `{"watch": {"interval_ms": -1}}`},
		{"negative watch debounce", `{"watch": {"debounce_ms": -1}}`},
		{"log path traversal", `{"notifications": {"log": {"path": "/var/log/../../etc/passwd"}}}`},
		{"zabbix port out of range", `{"notifications": {"zabbix": {"port": 70000}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := configPath(t)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			assert.Error(t, New(path).Load())
		})
	}
}

func TestNotificationHelpers(t *testing.T) {
	snap := Snapshot{}
	assert.False(t, snap.HasWebhook())
	assert.False(t, snap.HasGraph())
	assert.False(t, snap.HasLogPath())
	assert.False(t, snap.HasZabbix())

	snap.WebhookURL = "https://example.com/hook"
	snap.LogPath = "/var/log/audioscan.log"
	assert.True(t, snap.HasWebhook())
	assert.True(t, snap.HasLogPath())

	snap.GraphTenantID = "t"
	snap.GraphClientID = "c"
	snap.GraphClientSecret = "s"
	snap.GraphFromAddress = "studio@zuidwestfm.nl"
	assert.False(t, snap.HasGraph(), "recipients still missing")
	snap.GraphRecipients = "techniek@zuidwestfm.nl"
	assert.True(t, snap.HasGraph())

	snap.ZabbixServer = "zabbix.zuidwestfm.nl"
	snap.ZabbixHost = "audioscan01"
	assert.False(t, snap.HasZabbix(), "item key still missing")
	snap.ZabbixKey = "audioscan.devices"
	assert.True(t, snap.HasZabbix())
}

func TestZabbixPortDefault(t *testing.T) {
	path := configPath(t)
	cfg := New(path)
	require.NoError(t, cfg.Load())
	assert.Equal(t, DefaultZabbixPort, cfg.Snapshot().ZabbixPort)
}
