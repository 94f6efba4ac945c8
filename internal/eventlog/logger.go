// Package eventlog provides the operational event log for the scanner.
// It captures scan passes, device and card changes, and daemon lifecycle
// events in a single JSON lines file.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

// Scan event types.
const (
	ScanCompleted EventType = "scan_completed"
)

// Change event types.
const (
	DeviceAdded   EventType = "device_added"
	DeviceRemoved EventType = "device_removed"
	CardAdded     EventType = "card_added"
	CardRemoved   EventType = "card_removed"
)

// Lifecycle event types.
const (
	ServeStarted EventType = "serve_started"
	WatchStarted EventType = "watch_started"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// ScanDetails contains scan-specific event details.
type ScanDetails struct {
	Devices    int   `json:"devices"`
	Inputs     int   `json:"inputs"`
	Outputs    int   `json:"outputs"`
	Cards      int   `json:"cards"`
	DurationMs int64 `json:"duration_ms"`
}

// ChangeDetails contains device and card change details.
type ChangeDetails struct {
	Identifier  string `json:"identifier"`
	Description string `json:"description,omitempty"`
}

// StartDetails contains daemon startup details.
type StartDetails struct {
	Port       int    `json:"port,omitempty"`
	IntervalMs int64  `json:"interval_ms,omitempty"`
	DevicePath string `json:"device_path,omitempty"`
}

// Logger writes events to a JSON lines file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
	encoder  *json.Encoder
}

// DefaultLogPath returns the platform-specific log file path.
func DefaultLogPath(port int) string {
	switch runtime.GOOS {
	case "windows":
		// %PROGRAMDATA% is typically C:\ProgramData
		programData := os.Getenv("PROGRAMDATA")
		if programData == "" {
			programData = `C:\ProgramData`
		}
		return filepath.Join(programData, "audioscan", "logs", fmt.Sprintf("%d", port), "audioscan.jsonl")
	default: // linux, darwin
		//nolint:gocritic // Intentional absolute path for Unix systems
		return filepath.Join("/var/log/audioscan", fmt.Sprintf("%d", port), "audioscan.jsonl")
	}
}

// NewLogger creates a new event logger at the specified path.
func NewLogger(filePath string) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
		encoder:  json.NewEncoder(file),
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	return l.encoder.Encode(event)
}

// LogScan logs a completed scan pass.
func (l *Logger) LogScan(devices, inputs, outputs, cards int, elapsed time.Duration) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      ScanCompleted,
		Details: &ScanDetails{
			Devices:    devices,
			Inputs:     inputs,
			Outputs:    outputs,
			Cards:      cards,
			DurationMs: elapsed.Milliseconds(),
		},
	})
}

// LogChange logs one device or card change.
func (l *Logger) LogChange(eventType EventType, identifier, description string) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Details: &ChangeDetails{
			Identifier:  identifier,
			Description: description,
		},
	})
}

// LogServeStarted logs serve mode startup.
func (l *Logger) LogServeStarted(port int, interval time.Duration) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      ServeStarted,
		Details:   &StartDetails{Port: port, IntervalMs: interval.Milliseconds()},
	})
}

// LogWatchStarted logs watch mode startup.
func (l *Logger) LogWatchStarted(devicePath string, interval time.Duration) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      WatchStarted,
		Details:   &StartDetails{DevicePath: devicePath, IntervalMs: interval.Milliseconds()},
	})
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	return l.filePath
}

// TypeFilter specifies which event types to include when reading.
type TypeFilter string

// Filter constants for ReadLast.
const (
	FilterAll       TypeFilter = ""
	FilterScan      TypeFilter = "scan"
	FilterChange    TypeFilter = "change"
	FilterLifecycle TypeFilter = "lifecycle"
)

// MaxReadLimit is the maximum number of events that can be read at once.
// This prevents denial-of-service via excessive memory allocation.
const MaxReadLimit = 500

// ReadLast reads events from the log file with pagination support.
// Returns up to n events starting from offset, filtered by type.
// Events are returned in reverse chronological order (newest first).
// The n parameter is capped at MaxReadLimit.
func ReadLast(filePath string, n, offset int, filter TypeFilter) ([]Event, bool, error) {
	if n > MaxReadLimit {
		n = MaxReadLimit
	}
	if n <= 0 {
		return []Event{}, false, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, false, nil
		}
		return nil, false, err
	}
	defer file.Close() //nolint:errcheck // Read-only operation, close error not critical

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	// Walk backwards so the newest events come first.
	events := make([]Event, 0, n)
	skipped := 0
	i := len(lines) - 1
	for ; i >= 0 && len(events) < n; i-- {
		var event Event
		if err := json.Unmarshal([]byte(lines[i]), &event); err != nil {
			continue // Skip malformed lines
		}
		if !matchesFilter(event.Type, filter) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		events = append(events, event)
	}

	// Look for at least one more matching event beyond this page.
	hasMore := false
	if len(events) == n {
		for ; i >= 0; i-- {
			var event Event
			if err := json.Unmarshal([]byte(lines[i]), &event); err != nil {
				continue
			}
			if matchesFilter(event.Type, filter) {
				hasMore = true
				break
			}
		}
	}

	return events, hasMore, nil
}

// matchesFilter reports whether an event type passes the given filter.
// Unknown filters behave like FilterAll.
func matchesFilter(t EventType, filter TypeFilter) bool {
	switch filter {
	case FilterScan:
		return IsScanEvent(t)
	case FilterChange:
		return IsChangeEvent(t)
	case FilterLifecycle:
		return IsLifecycleEvent(t)
	default:
		return true
	}
}

// IsScanEvent returns true if the event type is a scan event.
func IsScanEvent(t EventType) bool {
	return t == ScanCompleted
}

// IsChangeEvent returns true if the event type is a device or card change event.
func IsChangeEvent(t EventType) bool {
	return t == DeviceAdded || t == DeviceRemoved || t == CardAdded || t == CardRemoved
}

// IsLifecycleEvent returns true if the event type is a daemon lifecycle event.
func IsLifecycleEvent(t EventType) bool {
	return t == ServeStarted || t == WatchStarted
}
