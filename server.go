package main

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oszuidwest/zwfm-audioscan/internal/capability"
	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
	"github.com/oszuidwest/zwfm-audioscan/internal/config"
	"github.com/oszuidwest/zwfm-audioscan/internal/scan"
	"github.com/oszuidwest/zwfm-audioscan/internal/server"
	"github.com/oszuidwest/zwfm-audioscan/internal/types"
	"github.com/oszuidwest/zwfm-audioscan/internal/util"
)

// Server is an HTTP server that exposes scan results over REST and WebSocket.
// It keeps only lightweight statistics between passes; every device listing
// comes from a fresh scan.
type Server struct {
	config   *config.Config
	runner   *scan.Runner
	commands *server.CommandHandler
	version  *VersionChecker
	logPath  string

	startTime time.Time

	mu             sync.Mutex
	scansCompleted int64
	lastScan       time.Time
	lastElapsed    time.Duration
	lastSummary    catalog.Summary
	lastCards      int

	clientsMu sync.Mutex
	clients   map[chan any]struct{}
}

// NewServer returns a new Server sharing the given scan runner. logPath may
// be empty when no event log is available.
func NewServer(cfg *config.Config, runner *scan.Runner, logPath string) *Server {
	s := &Server{
		config:    cfg,
		runner:    runner,
		version:   NewVersionChecker(),
		logPath:   logPath,
		startTime: time.Now(),
		clients:   make(map[chan any]struct{}),
	}
	s.commands = server.NewCommandHandler(s.scanFiltered, logPath)
	return s
}

// scanFiltered runs a fresh enumeration pass with the given filter and view
// and records it in the serve statistics. It backs both the REST device
// listing and the scan/run WebSocket command.
func (s *Server) scanFiltered(filter catalog.Predicate, view catalog.View) (*scan.Result, error) {
	snap := s.config.Snapshot()

	backends, err := capability.ParseBackends(snap.Backends)
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(scan.Options{
		Filter:       filter,
		View:         view,
		SkipRegistry: snap.SkipRegistry,
		RegistryRoot: snap.RegistryRoot,
		Backends:     backends,
		Exclusive:    snap.Exclusive,
	})
	if err != nil {
		return nil, err
	}
	s.NoteScan(result)
	return result, nil
}

// NoteScan records pass statistics for status reporting. The watcher calls
// it for periodic passes, scanFiltered for on-demand ones.
func (s *Server) NoteScan(result *scan.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scansCompleted++
	s.lastScan = time.Now()
	s.lastElapsed = result.Elapsed
	s.lastSummary = result.Summary
	s.lastCards = len(result.Catalog.Cards)
}

// --- WebSocket broadcasting ---

// registerClient adds a client send channel to the broadcast set.
func (s *Server) registerClient(send chan any) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[send] = struct{}{}
}

// unregisterClient removes a client send channel. Broadcasts hold the same
// lock, so after this returns no broadcast can touch the channel and the
// caller may close it.
func (s *Server) unregisterClient(send chan any) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, send)
}

// broadcast queues a message for every connected client. Clients with a full
// send buffer are skipped rather than blocking the scan path.
func (s *Server) broadcast(msg any) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for send := range s.clients {
		select {
		case send <- msg:
		default:
		}
	}
}

// BroadcastCatalog pushes a catalog snapshot to all connected clients.
func (s *Server) BroadcastCatalog(result *scan.Result) {
	s.broadcast(types.WSCatalogResponse{
		Type:    "catalog",
		Devices: result.Devices,
		Cards:   result.Catalog.Cards,
		Summary: result.Summary,
	})
}

// BroadcastChanges pushes a device change notification to all connected clients.
func (s *Server) BroadcastChanges(changes []catalog.Change, summary catalog.Summary) {
	s.broadcast(types.WSChangeResponse{
		Type:    "device_change",
		Changes: changes,
		Summary: summary,
	})
}

// --- WebSocket connection handling ---

// handleWebSocket handles bidirectional WebSocket communication for live updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Create buffered send channel for thread-safe writes.
	// Only the writer goroutine writes to the connection, preventing race conditions.
	send := make(chan any, 16)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	// Writer goroutine - sole writer to the connection
	go s.runWebSocketWriter(conn, send)

	// Reader goroutine - handles incoming commands
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.registerClient(send)
	s.runWebSocketEventLoop(send, done, statusUpdate)
}

// runWebSocketWriter writes messages from the send channel to the connection.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop pushes status updates until the client disconnects.
// Catalog and change messages arrive through the broadcast set.
func (s *Server) runWebSocketEventLoop(send chan any, done, statusUpdate <-chan struct{}) {
	statusTicker := time.NewTicker(10 * time.Second)
	defer statusTicker.Stop()

	// trySend attempts to send a message, returning false if done is closed
	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	// Unregister before closing so no broadcast hits the closed channel
	finish := func() {
		s.unregisterClient(send)
		close(send)
	}

	// Send initial status
	if !trySend(s.buildWSStatus()) {
		finish()
		return
	}

	for {
		select {
		case <-done:
			finish()
			return
		case <-statusUpdate:
			if !trySend(s.buildWSStatus()) {
				finish()
				return
			}
		case <-statusTicker.C:
			if !trySend(s.buildWSStatus()) {
				finish()
				return
			}
		}
	}
}

// buildWSStatus returns the current WebSocket status response.
func (s *Server) buildWSStatus() types.WSStatusResponse {
	return types.WSStatusResponse{
		Type:   "status",
		Status: s.buildStatus(),
	}
}

// buildStatus assembles the scanner status from serve statistics.
func (s *Server) buildStatus() types.ScannerStatus {
	snap := s.config.Snapshot()

	s.mu.Lock()
	scans := s.scansCompleted
	lastScan := s.lastScan
	elapsed := s.lastElapsed
	summary := s.lastSummary
	cards := s.lastCards
	s.mu.Unlock()

	status := types.ScannerStatus{
		Station:        snap.StationName,
		Platform:       runtime.GOOS,
		Uptime:         util.FormatDuration(time.Since(s.startTime).Milliseconds()),
		ScansCompleted: scans,
		Devices:        summary.TotalDevices,
		InputDevices:   summary.InputDevices,
		OutputDevices:  summary.OutputDevices,
		Cards:          cards,
		Version:        s.version.Info(),
	}
	if !lastScan.IsZero() {
		status.LastScan = lastScan.UTC().Format(time.RFC3339)
		status.LastScanMs = elapsed.Milliseconds()
	}
	return status
}

// --- Routing and middleware ---

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()
	auth := s.apiKeyAuth

	// Scanner API routes (API key auth)
	mux.HandleFunc("/api/devices", auth(s.handleAPIDevices))
	mux.HandleFunc("/api/cards", auth(s.handleAPICards))
	mux.HandleFunc("/api/summary", auth(s.handleAPISummary))
	mux.HandleFunc("/api/status", auth(s.handleAPIStatus))
	mux.HandleFunc("/api/events", auth(s.handleAPIEvents))
	mux.HandleFunc("/ws", auth(s.handleWebSocket))

	// Prometheus scrapes carry no key; the metrics expose only counts
	mux.Handle("/metrics", promhttp.Handler())

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// apiKeyAuth returns middleware for API key authentication.
func (s *Server) apiKeyAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := s.config.Snapshot().APIKey
		if apiKey == "" {
			http.Error(w, "API key not configured", http.StatusServiceUnavailable)
			return
		}

		providedKey := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// Start begins the HTTP server.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.Snapshot().ServerPort)
	slog.Info("starting API server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
