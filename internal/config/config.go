// Package config provides application configuration management.
package config

import (
	"cmp"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-audioscan/internal/capability"
	"github.com/oszuidwest/zwfm-audioscan/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultServerPort      = 8090 // The encoder owns 8080 on shared hosts
	DefaultStationName     = "ZuidWest FM"
	DefaultWatchIntervalMs = 30000 // Periodic rescan every 30 seconds
	DefaultWatchDebounceMs = 500   // Quiet time after a hotplug event
	DefaultDevicePath      = "/dev/snd"
	DefaultZabbixPort      = 10051 // Standard Zabbix trapper port
)

// Station name: any printable characters except control chars (blocks CRLF injection in emails)
var stationNamePattern = regexp.MustCompile(`^[^\x00-\x1F\x7F]+$`)

// StationConfig holds station identity used in notifications.
type StationConfig struct {
	Name string `json:"name"` // Station display name
}

// ServerConfig holds the HTTP API settings for serve mode.
type ServerConfig struct {
	Port   int    `json:"port"`    // HTTP server port
	APIKey string `json:"api_key"` // X-API-Key required for API and websocket access
}

// ScanConfig holds enumeration settings shared by all modes.
type ScanConfig struct {
	Backends     []string `json:"backends"`      // Audio backends to try, in order (empty = platform default)
	Exclusive    bool     `json:"exclusive"`     // Also probe exclusive-mode capabilities
	SkipRegistry bool     `json:"skip_registry"` // Do not read the hardware card registry
	RegistryRoot string   `json:"registry_root"` // Registry mount point override (empty = /proc/asound)
}

// WatchConfig holds watch mode timing and the device tree to observe.
type WatchConfig struct {
	IntervalMs int64  `json:"interval_ms"` // Periodic rescan interval
	DebounceMs int64  `json:"debounce_ms"` // Quiet time after a device tree event before rescanning
	DevicePath string `json:"device_path"` // Device tree watched for hotplug events
}

// WebhookConfig holds webhook notification settings.
type WebhookConfig struct {
	URL string `json:"url"` // Webhook URL for device change alerts
}

// LogConfig holds log file notification settings.
type LogConfig struct {
	Path string `json:"path"` // Log file path for device change events
}

// EmailConfig holds Microsoft Graph email notification settings.
type EmailConfig struct {
	TenantID     string `json:"tenant_id"`     // Azure AD tenant ID
	ClientID     string `json:"client_id"`     // App registration client ID
	ClientSecret string `json:"client_secret"` // App registration client secret
	FromAddress  string `json:"from_address"`  // Shared mailbox sender address
	Recipients   string `json:"recipients"`    // Comma-separated recipient addresses
}

// ZabbixConfig holds Zabbix trapper notification settings.
type ZabbixConfig struct {
	Server string `json:"server"` // Zabbix server or proxy address
	Port   int    `json:"port"`   // Zabbix trapper port
	Host   string `json:"host"`   // Host name as registered in Zabbix
	Key    string `json:"key"`    // Trapper item key receiving device events
}

// NotificationsConfig holds all notification channel settings.
type NotificationsConfig struct {
	Webhook WebhookConfig `json:"webhook"` // Webhook settings
	Log     LogConfig     `json:"log"`     // Log file settings
	Email   EmailConfig   `json:"email"`   // Email settings
	Zabbix  ZabbixConfig  `json:"zabbix"`  // Zabbix settings
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	Station       StationConfig       `json:"station"`
	Server        ServerConfig        `json:"server"`
	Scan          ScanConfig          `json:"scan"`
	Watch         WatchConfig         `json:"watch"`
	Notifications NotificationsConfig `json:"notifications"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		Station:  StationConfig{Name: DefaultStationName},
		Server:   ServerConfig{Port: DefaultServerPort},
		Watch:    WatchConfig{DevicePath: DefaultDevicePath},
		filePath: filePath,
	}
}

// Load reads config from file, creating a default file (with a generated API
// key) if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dirty := false
	data, err := os.ReadFile(c.filePath)
	switch {
	case os.IsNotExist(err):
		dirty = true
	case err != nil:
		return util.WrapError("read config", err)
	default:
		if err := json.Unmarshal(data, c); err != nil {
			return util.WrapError("parse config", err)
		}
	}

	c.applyDefaults()

	if c.Server.APIKey == "" {
		key, err := GenerateAPIKey()
		if err != nil {
			return util.WrapError("generate api key", err)
		}
		c.Server.APIKey = key
		dirty = true
	}

	if err := c.validate(); err != nil {
		return err
	}

	if dirty {
		return c.saveLocked()
	}
	return nil
}

// validate checks all configuration fields for correctness.
func (c *Config) validate() error {
	name := c.Station.Name
	if name == "" || len(name) > 30 || !stationNamePattern.MatchString(name) {
		return fmt.Errorf("invalid station name %q: must be 1-30 printable characters", name)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d: must be 1-65535", c.Server.Port)
	}
	if _, err := capability.ParseBackends(c.Scan.Backends); err != nil {
		return err
	}
	if c.Watch.IntervalMs < 0 {
		return fmt.Errorf("invalid watch interval %dms: must not be negative", c.Watch.IntervalMs)
	}
	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("invalid watch debounce %dms: must not be negative", c.Watch.DebounceMs)
	}
	if c.Notifications.Log.Path != "" {
		if err := util.ValidatePath("notifications.log.path", c.Notifications.Log.Path); err != nil {
			return err
		}
	}
	if p := c.Notifications.Zabbix.Port; p < 1 || p > 65535 {
		return fmt.Errorf("invalid zabbix port %d: must be 1-65535", p)
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	if c.Station.Name == "" {
		c.Station.Name = DefaultStationName
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Watch.DevicePath == "" {
		c.Watch.DevicePath = DefaultDevicePath
	}
	if c.Scan.Backends == nil {
		c.Scan.Backends = []string{}
	}
	if c.Notifications.Zabbix.Port == 0 {
		c.Notifications.Zabbix.Port = DefaultZabbixPort
	}
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// SetServerPort overrides the HTTP port for this process without persisting
// the change. Used by the serve command's --port flag.
func (c *Config) SetServerPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port %d: must be 1-65535", port)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Server.Port = port
	return nil
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of configuration values.
type Snapshot struct {
	// Station
	StationName string

	// Server
	ServerPort int
	APIKey     string

	// Scan
	Backends     []string
	Exclusive    bool
	SkipRegistry bool
	RegistryRoot string

	// Watch
	WatchInterval time.Duration
	WatchDebounce time.Duration
	DevicePath    string

	// Notifications
	WebhookURL        string
	LogPath           string
	GraphTenantID     string
	GraphClientID     string
	GraphClientSecret string
	GraphFromAddress  string
	GraphRecipients   string
	ZabbixServer      string
	ZabbixPort        int
	ZabbixHost        string
	ZabbixKey         string
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		// Station
		StationName: c.Station.Name,

		// Server
		ServerPort: c.Server.Port,
		APIKey:     c.Server.APIKey,

		// Scan
		Backends:     slices.Clone(c.Scan.Backends),
		Exclusive:    c.Scan.Exclusive,
		SkipRegistry: c.Scan.SkipRegistry,
		RegistryRoot: c.Scan.RegistryRoot,

		// Watch (with defaults)
		WatchInterval: time.Duration(cmp.Or(c.Watch.IntervalMs, DefaultWatchIntervalMs)) * time.Millisecond,
		WatchDebounce: time.Duration(cmp.Or(c.Watch.DebounceMs, DefaultWatchDebounceMs)) * time.Millisecond,
		DevicePath:    c.Watch.DevicePath,

		// Notifications
		WebhookURL:        c.Notifications.Webhook.URL,
		LogPath:           c.Notifications.Log.Path,
		GraphTenantID:     c.Notifications.Email.TenantID,
		GraphClientID:     c.Notifications.Email.ClientID,
		GraphClientSecret: c.Notifications.Email.ClientSecret,
		GraphFromAddress:  c.Notifications.Email.FromAddress,
		GraphRecipients:   c.Notifications.Email.Recipients,
		ZabbixServer:      c.Notifications.Zabbix.Server,
		ZabbixPort:        cmp.Or(c.Notifications.Zabbix.Port, DefaultZabbixPort),
		ZabbixHost:        c.Notifications.Zabbix.Host,
		ZabbixKey:         c.Notifications.Zabbix.Key,
	}
}

// HasWebhook reports whether a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.WebhookURL != ""
}

// HasGraph reports whether Microsoft Graph email notifications are configured.
func (s *Snapshot) HasGraph() bool {
	return s.GraphTenantID != "" && s.GraphClientID != "" && s.GraphClientSecret != "" &&
		s.GraphFromAddress != "" && s.GraphRecipients != ""
}

// HasLogPath reports whether a log path is configured.
func (s *Snapshot) HasLogPath() bool {
	return s.LogPath != ""
}

// HasZabbix reports whether Zabbix notifications are configured.
func (s *Snapshot) HasZabbix() bool {
	return s.ZabbixServer != "" && s.ZabbixHost != "" && s.ZabbixKey != ""
}

// GenerateAPIKey generates a new random 32-character alphanumeric API key.
func GenerateAPIKey() (string, error) {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 32
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		result[i] = chars[n.Int64()]
	}
	return string(result), nil
}
