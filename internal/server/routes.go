package server

import (
	"net/http"
	"runtime"
	"strings"
	"time"

	"coinchat/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)

	// Sessions
	mux.HandleFunc("/api/sessions/", s.routeSessions)
	mux.HandleFunc("/api/sessions", s.handleSessionCreate)
}

// routeSessions dispatches /api/sessions/{id}[/sub] to the appropriate handler.
func (s *Server) routeSessions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "session id is required in path")
		return
	}

	parts := strings.SplitN(path, "/", 2)
	sessionID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleSessionGet(w, r, sessionID)
		case http.MethodDelete:
			s.handleSessionDelete(w, r, sessionID)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	switch parts[1] {
	case "messages":
		switch r.Method {
		case http.MethodPost:
			s.handleMessagePost(w, r, sessionID)
		case http.MethodGet:
			s.handleMessageList(w, r, sessionID)
		default:
			w.Header().Set("Allow", "GET, POST")
			WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case "portfolio":
		s.handlePortfolioGet(w, r, sessionID)
	case "speech":
		s.handleSpeechGet(w, r, sessionID)
	default:
		WriteError(w, http.StatusNotFound, "Unknown resource: "+parts[1])
	}
}

// handleHealth responds to GET/HEAD /api/health with {"status":"ok"}.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion responds to GET/HEAD /api/version with version info.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleDiagnostics responds to GET /api/diagnostics with runtime stats.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":    common.GetVersion(),
		"uptime":     time.Since(s.app.StartupTime).String(),
		"sessions":   s.app.Sessions.Count(),
		"goroutines": runtime.NumGoroutine(),
		"heap_mb":    mem.HeapAlloc / 1024 / 1024,
	})
}
