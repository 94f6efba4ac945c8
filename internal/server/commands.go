package server

import (
	"cmp"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
	"github.com/oszuidwest/zwfm-audioscan/internal/eventlog"
	"github.com/oszuidwest/zwfm-audioscan/internal/scan"
	"github.com/oszuidwest/zwfm-audioscan/internal/types"
)

// DefaultEventLimit is the number of event log entries returned when the
// client does not ask for a specific amount.
const DefaultEventLimit = 50

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ScanFunc runs an on-demand enumeration pass with the given filter and view.
type ScanFunc func(filter catalog.Predicate, view catalog.View) (*scan.Result, error)

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	runScan ScanFunc
	logPath string
}

// NewCommandHandler creates a new command handler. logPath may be empty when
// no event log is configured; events/get then reports an error to the client.
func NewCommandHandler(runScan ScanFunc, logPath string) *CommandHandler {
	return &CommandHandler{
		runScan: runScan,
		logPath: logPath,
	}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g., "scan/run", "events/get")
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	// Parse command into namespace and action
	parts := strings.SplitN(cmd.Type, "/", 2)
	namespace := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch namespace {
	case "scan":
		h.handleScan(action, cmd, send, triggerStatusUpdate)
	case "events":
		h.handleEvents(action, cmd, send)
	case "status":
		h.handleStatus(action)
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// --- Namespace handlers ---

// handleScan routes scan/* commands
func (h *CommandHandler) handleScan(action string, cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	switch action {
	case "run":
		h.handleScanRun(cmd, send, triggerStatusUpdate)
	default:
		slog.Warn("unknown scan action", "action", action)
	}
}

// handleEvents routes events/* commands
func (h *CommandHandler) handleEvents(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "get":
		h.handleEventsGet(cmd, send)
	default:
		slog.Warn("unknown events action", "action", action)
	}
}

// handleStatus routes status/* commands
func (h *CommandHandler) handleStatus(action string) {
	switch action {
	case "get":
		// Status is sent automatically, but explicit get triggers immediate update
		slog.Debug("status/get received, status update will be triggered")
	default:
		slog.Warn("unknown status action", "action", action)
	}
}

// --- Command implementations ---

// handleScanRun runs an enumeration pass on demand. The pass touches every
// audio backend and can take a while, so it runs asynchronously.
func (h *CommandHandler) handleScanRun(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	var req ScanRequest
	if len(cmd.Data) > 0 {
		if !DecodeAndValidate(cmd, send, &req) {
			return
		}
	}

	filter := catalog.Predicate{Card: req.Card, Device: req.Device}
	var view catalog.View
	if req.All {
		view = catalog.ViewAll
	}

	HandleActionAsync(cmd, send, func() (any, error) {
		result, err := h.runScan(filter, view)
		if err != nil {
			return nil, err
		}
		// The pass changed the scan counters, push fresh status to all clients
		triggerStatusUpdate()
		return map[string]any{
			"devices": result.Devices,
			"cards":   result.Catalog.Cards,
			"summary": result.Summary,
		}, nil
	})
}

// handleEventsGet reads recent entries from the event log.
func (h *CommandHandler) handleEventsGet(cmd WSCommand, send chan<- any) {
	var req EventsRequest
	if len(cmd.Data) > 0 {
		if !DecodeAndValidate(cmd, send, &req) {
			return
		}
	}

	if h.logPath == "" {
		SendError(send, cmd.Type, errors.New("event log not configured"))
		return
	}

	filter := eventlog.FilterAll
	if req.Filter != "" && req.Filter != "all" {
		filter = eventlog.TypeFilter(req.Filter)
	}

	limit := cmp.Or(req.Limit, DefaultEventLimit)
	events, hasMore, err := eventlog.ReadLast(h.logPath, limit, req.Offset, filter)
	if err != nil {
		SendError(send, cmd.Type, err)
		return
	}

	trySend(send, cmd.Type, types.EventsResult{
		Type:    cmd.Type + "_result",
		Success: true,
		Events:  events,
		HasMore: hasMore,
		Path:    h.logPath,
	})
}
