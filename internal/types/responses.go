package types

import (
	"github.com/oszuidwest/zwfm-audioscan/internal/eventlog"
)

// EventsResult carries event log reads, both as the events/get WebSocket
// result and as the /api/events response body. Events are ordered newest
// first; HasMore reports whether older events exist beyond this page.
type EventsResult struct {
	Type    string           `json:"type,omitempty"` // "events/get_result" over the websocket
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	Events  []eventlog.Event `json:"events"`
	HasMore bool             `json:"has_more"`
	Path    string           `json:"path,omitempty"`
}
