// Package server implements the atelier HTTP server: REST API over the
// environment, auth, and SSE real-time events.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/atelier-ai/atelier/comms"
	"github.com/atelier-ai/atelier/config"
	"github.com/atelier-ai/atelier/env"
	"github.com/atelier-ai/atelier/plan"
)

// Server is the atelier HTTP server.
type Server struct {
	cfg     config.Config
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *slog.Logger

	env  *env.Environment
	plan *plan.Plan

	// SSE clients
	sseMu      sync.RWMutex
	sseClients map[chan []byte]struct{}

	// JWT secret caching
	secretOnce      sync.Once
	generatedSecret string

	startTime time.Time
	version   string
}

// New creates a new Server with the given config and logger.
func New(cfg config.Config, ver string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		mux:        http.NewServeMux(),
		logger:     logger,
		sseClients: make(map[chan []byte]struct{}),
		startTime:  time.Now(),
		version:    ver,
	}
}

// SetEnvironment attaches the environment the API publishes into. Every
// message the environment records, including agent output produced inside
// Run, is streamed to SSE clients.
func (s *Server) SetEnvironment(e *env.Environment) {
	s.env = e
	e.SetOnPublish(func(msg *comms.Message) {
		s.BroadcastEvent("message", msg)
	})
}

// SetPlan attaches the team leader's plan for the read-only plan endpoint.
func (s *Server) SetPlan(p *plan.Plan) {
	s.plan = p
}

// Start registers routes and begins listening.
func (s *Server) Start() error {
	s.registerRoutes()

	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":9090"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("server listening", slog.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	// Public routes (no auth required)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	// SSE — auth handled inline because EventSource can't set headers
	s.mux.HandleFunc("GET /events", s.handleSSE)

	// Protected API — wrapped in auth middleware
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/agents", s.handleAgents)
	apiMux.HandleFunc("GET /api/messages", s.handleListMessages)
	apiMux.HandleFunc("POST /api/messages", s.handlePostMessage)
	apiMux.HandleFunc("GET /api/plan", s.handlePlan)
	apiMux.HandleFunc("GET /api/auth/me", s.handleMe)

	s.mux.Handle("/api/", s.authMiddleware(apiMux))
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleStatus reports uptime, version, and roster idleness.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"version": s.version,
		"uptime":  time.Since(s.startTime).String(),
	}
	if s.env != nil {
		resp["idle"] = s.env.IsIdle()
		resp["messages"] = s.env.History().Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

// agentInfo is the roster entry shape returned by GET /api/agents.
type agentInfo struct {
	Name       string `json:"name"`
	Profile    string `json:"profile"`
	Idle       bool   `json:"idle"`
	Pending    int    `json:"pending"`
	DirectChat bool   `json:"direct_chat"`
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	if s.env == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "environment not attached")
		return
	}
	var out []agentInfo
	for _, rt := range s.env.Roster() {
		out = append(out, agentInfo{
			Name:       rt.Name(),
			Profile:    rt.Identity().Profile(),
			Idle:       rt.Idle(),
			Pending:    rt.Mailbox().Pending(),
			DirectChat: s.env.InDirectChat(rt.Name()),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	if s.env == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "environment not attached")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.env.History().Get(limit))
}

// postMessageRequest is the body accepted by POST /api/messages.
type postMessageRequest struct {
	Content string   `json:"content"`
	SendTo  []string `json:"send_to,omitempty"`
}

// handlePostMessage publishes a user message into the environment. Naming
// recipients initiates a direct chat with them; otherwise the message is a
// requirement routed through the team leader.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	if s.env == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "environment not attached")
		return
	}
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSONError(w, http.StatusBadRequest, "content must not be empty")
		return
	}

	msg := comms.NewMessage(req.Content, comms.RoleUser, req.SendTo...)
	msg.CauseBy = comms.TagUserRequirement
	opts := env.PublishOptions{}
	if len(req.SendTo) > 0 {
		opts.UserDefinedRecipient = strings.Join(req.SendTo, ",")
	}
	// The publish hook broadcasts the recorded message to SSE clients.
	s.env.PublishMessage(msg, opts)

	writeJSON(w, http.StatusAccepted, map[string]string{"id": msg.ID})
}

func (s *Server) handlePlan(w http.ResponseWriter, _ *http.Request) {
	if s.plan == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "plan not attached")
		return
	}
	steps, err := s.plan.Steps()
	if err != nil {
		s.logger.Error("list plan steps", slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "could not load plan")
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

// handleSSE implements Server-Sent Events for real-time updates.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// Verify auth via query token param for SSE (EventSource can't set headers)
	token := r.URL.Query().Get("token")
	if token != "" {
		if _, err := s.verifyToken(token); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	ch := make(chan []byte, 64)
	s.sseMu.Lock()
	s.sseClients[ch] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseClients, ch)
		s.sseMu.Unlock()
		close(ch)
	}()

	// Send initial connected event
	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n") //nolint:errcheck
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			lines := strings.Split(string(data), "\n")
			for _, line := range lines {
				fmt.Fprintf(w, "data: %s\n", line) //nolint:errcheck
			}
			fmt.Fprintln(w) //nolint:errcheck
			flusher.Flush()
		}
	}
}

// BroadcastEvent sends a JSON-encoded event to all connected SSE clients.
func (s *Server) BroadcastEvent(eventType string, payload any) {
	data, err := json.Marshal(map[string]any{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		s.logger.Error("broadcast event marshal", slog.Any("err", err))
		return
	}

	s.sseMu.RLock()
	defer s.sseMu.RUnlock()
	for ch := range s.sseClients {
		select {
		case ch <- data:
		default:
			// Client channel full, skip
		}
	}
}
