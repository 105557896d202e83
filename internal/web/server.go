// Package web provides the HTTP status page, JSON status, Prometheus metrics
// and a small local command API for the irrigation controller.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/metrics"
	"github.com/sweeney/irrigation-controller/internal/status"
)

// commandTimeout bounds how long a request waits for the control loop to
// accept a command.
const commandTimeout = 2 * time.Second

var commandKinds = map[string]logic.CommandKind{
	"pump":     logic.CommandPump,
	"duration": logic.CommandDuration,
	"interval": logic.CommandInterval,
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   chan<- logic.Command
	metrics    *metrics.Metrics
}

// New creates a Server that reads state from the given tracker and sends
// local commands to the control loop. m may be nil.
func New(addr string, tracker *status.Tracker, commands chan<- logic.Command, m *metrics.Metrics) *Server {
	s := &Server{tracker: tracker, commands: commands, metrics: m}

	r := mux.NewRouter()
	r.Handle("/", m.WrapHandler("/", http.HandlerFunc(s.handleIndex))).Methods("GET")
	r.Handle("/index.html", m.WrapHandler("/", http.HandlerFunc(s.handleIndex))).Methods("GET")
	r.Handle("/index.json", m.WrapHandler("/index.json", http.HandlerFunc(s.handleJSON))).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")
	r.Handle("/api/{control:pump|duration|interval}",
		m.WrapHandler("/api", http.HandlerFunc(s.handleCommand))).Methods("POST")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handlers.LoggingHandler(log.Writer(), r),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// commandRequest is the body of a POST to /api/{control}.
type commandRequest struct {
	Value *int64 `json:"value"`
}

type commandResponse struct {
	Command string `json:"command"`
	Value   int64  `json:"value"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	kind := commandKinds[mux.Vars(r)["control"]]

	var req commandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeCommand(w, http.StatusBadRequest, commandResponse{Command: string(kind), Error: "invalid JSON body"})
		return
	}
	if req.Value == nil {
		writeCommand(w, http.StatusBadRequest, commandResponse{Command: string(kind), Error: `missing "value"`})
		return
	}
	cmd := logic.Command{Kind: kind, Value: *req.Value}
	if err := validateCommand(cmd); err != nil {
		writeCommand(w, http.StatusBadRequest, commandResponse{Command: string(kind), Value: cmd.Value, Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	select {
	case s.commands <- cmd:
		writeCommand(w, http.StatusAccepted, commandResponse{Command: string(kind), Value: cmd.Value})
	case <-ctx.Done():
		writeCommand(w, http.StatusServiceUnavailable, commandResponse{Command: string(kind), Value: cmd.Value, Error: "controller busy"})
	}
}

// validateCommand rejects values the controller would silently ignore, so
// local callers get an error instead.
func validateCommand(cmd logic.Command) error {
	switch cmd.Kind {
	case logic.CommandPump:
		if cmd.Value != 0 && cmd.Value != 1 {
			return fmt.Errorf("pump value must be 0 or 1")
		}
	case logic.CommandDuration:
		if cmd.Value < 0 {
			return fmt.Errorf("duration must not be negative")
		}
		if limit := int64(logic.MaxDuration / time.Second); cmd.Value > limit {
			return fmt.Errorf("duration must not exceed %d seconds", limit)
		}
	case logic.CommandInterval:
		if _, ok := logic.Preset(int(cmd.Value)); !ok {
			return fmt.Errorf("interval %d is not a schedule preset", cmd.Value)
		}
	}
	return nil
}

func writeCommand(w http.ResponseWriter, code int, resp commandResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
