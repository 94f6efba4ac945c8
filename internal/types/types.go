// Package types provides shared type definitions used across the scanner.
package types

import (
	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
)

// ScannerStatus contains a summary of the scanner's operational state.
type ScannerStatus struct {
	Station        string      `json:"station"`               // Configured station name
	Platform       string      `json:"platform"`              // Operating system platform
	Uptime         string      `json:"uptime"`                // Time since start
	ScansCompleted int64       `json:"scans_completed"`       // Completed scan passes
	LastScan       string      `json:"last_scan,omitzero"`    // RFC3339, empty before the first pass
	LastScanMs     int64       `json:"last_scan_ms,omitzero"` // Wall time of the last pass in milliseconds
	Devices        int         `json:"devices"`               // Deduplicated devices in the last pass
	InputDevices   int         `json:"input_devices"`         // Devices with capture channels
	OutputDevices  int         `json:"output_devices"`        // Devices with playback channels
	Cards          int         `json:"cards"`                 // Registry cards in the last pass
	Version        VersionInfo `json:"version"`               // Version information
}

// WSStatusResponse is pushed to WebSocket clients with scanner status.
type WSStatusResponse struct {
	Type   string        `json:"type"` // "status"
	Status ScannerStatus `json:"status"`
}

// WSCatalogResponse is pushed to WebSocket clients after a scan pass.
type WSCatalogResponse struct {
	Type    string                 `json:"type"` // "catalog"
	Devices []catalog.DeviceRecord `json:"devices"`
	Cards   []catalog.CardEntry    `json:"cards"`
	Summary catalog.Summary        `json:"summary"`
}

// WSChangeResponse is pushed to WebSocket clients when the device list changes
// between passes.
type WSChangeResponse struct {
	Type    string           `json:"type"` // "device_change"
	Changes []catalog.Change `json:"changes"`
	Summary catalog.Summary  `json:"summary"`
}

// VersionInfo contains version comparison data.
type VersionInfo struct {
	Current     string `json:"current"`              // Current version
	Latest      string `json:"latest,omitempty"`     // Latest available version
	UpdateAvail bool   `json:"update_available"`     // Update is available
	Commit      string `json:"commit,omitempty"`     // Git commit hash
	BuildTime   string `json:"build_time,omitempty"` // Build timestamp
}
