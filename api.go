package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
	"github.com/oszuidwest/zwfm-audioscan/internal/eventlog"
	"github.com/oszuidwest/zwfm-audioscan/internal/server"
	"github.com/oszuidwest/zwfm-audioscan/internal/types"
)

// API response helpers

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// handleAPIDevices returns the device list from a fresh enumeration pass.
// GET /api/devices?card=xxx&device=xxx&all=true
func (s *Server) handleAPIDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query()
	filter := catalog.Predicate{
		Card:   q.Get("card"),
		Device: q.Get("device"),
	}
	var view catalog.View
	if q.Get("all") == "true" {
		view = catalog.ViewAll
	}

	result, err := s.scanFiltered(filter, view)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"devices": result.Devices,
		"summary": result.Summary,
	})
}

// handleAPICards returns the hardware registry card listing. Reading the
// registry alone is cheap, no enumeration pass runs.
// GET /api/cards
func (s *Server) handleAPICards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap := s.config.Snapshot()
	cards, err := s.runner.Cards(snap.RegistryRoot)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

// handleAPISummary returns device counts from a fresh enumeration pass.
// GET /api/summary
func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	result, err := s.scanFiltered(catalog.Predicate{}, "")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, result.Summary)
}

// handleAPIStatus returns the scanner's operational state.
// GET /api/status
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, s.buildStatus())
}

// handleAPIEvents returns pages from the event log, newest first.
// GET /api/events?limit=50&offset=0&filter=change
func (s *Server) handleAPIEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if s.logPath == "" {
		s.writeError(w, http.StatusServiceUnavailable, "event log not configured")
		return
	}

	q := r.URL.Query()

	limit := server.DefaultEventLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > eventlog.MaxReadLimit {
			s.writeError(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be an integer between 1 and %d", eventlog.MaxReadLimit))
			return
		}
		limit = n
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	filter := eventlog.FilterAll
	switch v := q.Get("filter"); v {
	case "", "all":
	case "scan", "change", "lifecycle":
		filter = eventlog.TypeFilter(v)
	default:
		s.writeError(w, http.StatusBadRequest, "filter must be one of: all, scan, change, lifecycle")
		return
	}

	events, hasMore, err := eventlog.ReadLast(s.logPath, limit, offset, filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, types.EventsResult{
		Success: true,
		Events:  events,
		HasMore: hasMore,
		Path:    s.logPath,
	})
}
