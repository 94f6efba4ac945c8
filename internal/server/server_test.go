package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
	"github.com/oszuidwest/zwfm-audioscan/internal/eventlog"
	"github.com/oszuidwest/zwfm-audioscan/internal/scan"
	"github.com/oszuidwest/zwfm-audioscan/internal/types"
)

const waitTimeout = 3 * time.Second

func testRecord(identifier string) catalog.DeviceRecord {
	return catalog.DeviceRecord{
		Identifier:     identifier,
		Driver:         catalog.DriverNative,
		OutputChannels: 2,
		DefaultRate:    48000,
		SampleRates:    []int{48000},
	}
}

func waitResponse(t *testing.T, send <-chan any) map[string]any {
	t.Helper()
	select {
	case msg := <-send:
		resp, ok := msg.(map[string]any)
		require.True(t, ok, "expected map response, got %T", msg)
		return resp
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for response")
		return nil
	}
}

func TestCheckOrigin(t *testing.T) {
	cases := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{"no origin header", "", true},
		{"localhost", "http://localhost:3000", true},
		{"loopback v4", "http://127.0.0.1:8090", true},
		{"loopback v6", "http://[::1]:8090", true},
		{"same host", "http://scanner.local:8090", true},
		{"same host other port", "http://scanner.local:9000", true},
		{"private range", "http://192.168.1.50", true},
		{"public host", "http://evil.example.com", false},
		{"public ip", "http://203.0.113.7", false},
		{"garbage origin", "http://bad url", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &http.Request{Host: "scanner.local:8090", Header: http.Header{}}
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			assert.Equal(t, tc.allowed, checkOrigin(r))
		})
	}
}

func TestDecodeAndValidate(t *testing.T) {
	send := make(chan any, 4)

	var req EventsRequest
	cmd := WSCommand{Type: "events/get", Data: json.RawMessage(`{"limit": 25, "filter": "scan"}`)}
	require.True(t, DecodeAndValidate(cmd, send, &req))
	assert.Equal(t, 25, req.Limit)
	assert.Equal(t, "scan", req.Filter)
	assert.Empty(t, send)
}

func TestDecodeAndValidateBadJSON(t *testing.T) {
	send := make(chan any, 4)

	var req EventsRequest
	cmd := WSCommand{Type: "events/get", Data: json.RawMessage(`{"limit":`)}
	require.False(t, DecodeAndValidate(cmd, send, &req))

	resp := waitResponse(t, send)
	assert.Equal(t, "events/get_result", resp["type"])
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "invalid JSON")
}

func TestDecodeAndValidateFieldErrors(t *testing.T) {
	send := make(chan any, 4)

	var req EventsRequest
	cmd := WSCommand{Type: "events/get", Data: json.RawMessage(`{"limit": 9999, "filter": "bogus"}`)}
	require.False(t, DecodeAndValidate(cmd, send, &req))

	resp := waitResponse(t, send)
	assert.Equal(t, false, resp["success"])

	verr, ok := resp["error"].(*types.ValidationError)
	require.True(t, ok, "expected validation error, got %T", resp["error"])
	require.Len(t, verr.Errors, 2)
	assert.Equal(t, "limit", verr.Errors[0].Field)
	assert.Contains(t, verr.Errors[0].Message, "less than or equal to 500")
	assert.Equal(t, "filter", verr.Errors[1].Field)
	assert.Contains(t, verr.Errors[1].Message, "one of")
}

func TestHandleScanRun(t *testing.T) {
	var gotFilter catalog.Predicate
	var gotView catalog.View
	record := testRecord("hw:CARD=Audio,DEV=0")
	result := &scan.Result{
		Catalog: &catalog.Catalog{
			AllDevices: []catalog.DeviceRecord{record},
			Devices:    []catalog.DeviceRecord{record},
			Cards:      []catalog.CardEntry{{Index: 0, ShortName: "Audio"}},
		},
		Devices: []catalog.DeviceRecord{record},
		Summary: catalog.Summary{TotalDevices: 1, OutputDevices: 1},
	}
	runScan := func(filter catalog.Predicate, view catalog.View) (*scan.Result, error) {
		gotFilter = filter
		gotView = view
		return result, nil
	}

	h := NewCommandHandler(runScan, "")
	send := make(chan any, 8)
	triggers := make(chan struct{}, 8)
	trigger := func() { triggers <- struct{}{} }

	h.Handle(WSCommand{Type: "scan/run", Data: json.RawMessage(`{"card": "Audio", "all": true}`)}, send, trigger)

	resp := waitResponse(t, send)
	assert.Equal(t, "scan/run_result", resp["type"])
	assert.Equal(t, true, resp["success"])

	data, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, data["devices"], 1)
	assert.Len(t, data["cards"], 1)
	assert.Equal(t, result.Summary, data["summary"])

	assert.Equal(t, catalog.Predicate{Card: "Audio"}, gotFilter)
	assert.Equal(t, catalog.ViewAll, gotView)
	// One trigger from command dispatch, one from the completed pass
	assert.Len(t, triggers, 2)
}

func TestHandleScanRunWithoutData(t *testing.T) {
	var gotFilter catalog.Predicate
	var gotView catalog.View
	runScan := func(filter catalog.Predicate, view catalog.View) (*scan.Result, error) {
		gotFilter = filter
		gotView = view
		return &scan.Result{Catalog: &catalog.Catalog{}}, nil
	}

	h := NewCommandHandler(runScan, "")
	send := make(chan any, 8)

	h.Handle(WSCommand{Type: "scan/run"}, send, func() {})

	resp := waitResponse(t, send)
	assert.Equal(t, true, resp["success"])
	assert.True(t, gotFilter.Empty())
	assert.Equal(t, catalog.View(""), gotView)
}

func TestHandleScanRunError(t *testing.T) {
	runScan := func(filter catalog.Predicate, view catalog.View) (*scan.Result, error) {
		return nil, errors.New("enumeration failed")
	}

	h := NewCommandHandler(runScan, "")
	send := make(chan any, 8)
	triggers := make(chan struct{}, 8)

	h.Handle(WSCommand{Type: "scan/run"}, send, func() { triggers <- struct{}{} })

	resp := waitResponse(t, send)
	assert.Equal(t, "scan/run_result", resp["type"])
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "enumeration failed", resp["error"])
	// A failed pass does not push a status update, only the dispatch does
	assert.Len(t, triggers, 1)
}

func TestHandleEventsGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audioscan.jsonl")
	logger, err := eventlog.NewLogger(path)
	require.NoError(t, err)
	require.NoError(t, logger.LogScan(3, 1, 2, 1, 40*time.Millisecond))
	require.NoError(t, logger.LogScan(4, 2, 2, 1, 41*time.Millisecond))
	require.NoError(t, logger.Close())

	h := NewCommandHandler(nil, path)
	send := make(chan any, 4)

	h.Handle(WSCommand{Type: "events/get", Data: json.RawMessage(`{"limit": 1}`)}, send, func() {})

	var msg any
	select {
	case msg = <-send:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for events result")
	}

	res, ok := msg.(types.EventsResult)
	require.True(t, ok, "expected events result, got %T", msg)
	assert.Equal(t, "events/get_result", res.Type)
	assert.True(t, res.Success)
	assert.Len(t, res.Events, 1)
	assert.True(t, res.HasMore)
	assert.Equal(t, path, res.Path)
}

func TestHandleEventsGetUnconfigured(t *testing.T) {
	h := NewCommandHandler(nil, "")
	send := make(chan any, 4)

	h.Handle(WSCommand{Type: "events/get"}, send, func() {})

	resp := waitResponse(t, send)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "event log not configured")
}

func TestHandleUnknownCommand(t *testing.T) {
	h := NewCommandHandler(nil, "")
	send := make(chan any, 4)
	triggers := make(chan struct{}, 4)

	h.Handle(WSCommand{Type: "bogus/thing"}, send, func() { triggers <- struct{}{} })
	h.Handle(WSCommand{Type: "status/get"}, send, func() { triggers <- struct{}{} })

	assert.Empty(t, send)
	// Every command pushes fresh status, even unknown ones
	assert.Len(t, triggers, 2)
}
