package supervisor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// CommandSink forwards one operator command line to the rig.
type CommandSink interface {
	SendCommand(line string) error
}

// WriterSink adapts any line-oriented writer (the rig's console port) into a
// CommandSink.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) SendCommand(line string) error {
	_, err := fmt.Fprintf(s.W, "%s\n", line)
	return err
}

// Server is the supervisor service: it relays rig telemetry to WebSocket
// clients, forwards operator commands down to the rig, and manages raw CSV
// logging. With an empty auth token the API runs open, for bench use.
type Server struct {
	token    string
	hub      *Hub
	logger   *Logger
	rig      CommandSink
	upgrader websocket.Upgrader
}

// NewServer creates a server. rig may be nil when no console link is
// attached; command posts then fail with 503.
func NewServer(token string, hub *Hub, logger *Logger, rig CommandSink) *Server {
	return &Server{
		token:  token,
		hub:    hub,
		logger: logger,
		rig:    rig,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes builds the HTTP API.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet)
	api.HandleFunc("/command", s.handleCommand).Methods(http.MethodPost)
	api.HandleFunc("/logging/status", s.handleLoggingStatus).Methods(http.MethodGet)
	api.HandleFunc("/logging/start", s.handleLoggingStart).Methods(http.MethodPost)
	api.HandleFunc("/logging/stop", s.handleLoggingStop).Methods(http.MethodPost)

	return r
}

// requireAuth checks the Authorization header when a token is configured.
// Both "Bearer <token>" and a raw "<token>" are accepted.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		fields := strings.Fields(auth)
		if len(fields) == 0 || fields[len(fields)-1] != s.token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleCommand forwards {"cmd": "..."} (or {"command": "..."}) to the rig
// console. A body without either key is sent verbatim as a JSON line.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid JSON body"})
		return
	}

	line, _ := body["cmd"].(string)
	if line == "" {
		line, _ = body["command"].(string)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		raw, _ := json.Marshal(body)
		line = string(raw)
	}

	if s.rig == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ok":     false,
			"echo":   body,
			"detail": "rig console unavailable",
		})
		return
	}
	if err := s.rig.SendCommand(line); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"detail": fmt.Sprintf("console write failed: %v", err),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleLoggingStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.logger.Status())
}

func (s *Server) handleLoggingStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Filename string `json:"filename"`
	}
	// An empty or absent body means "pick a name for me".
	_ = json.NewDecoder(r.Body).Decode(&body)

	st, err := s.logger.Start(strings.TrimSpace(body.Filename))
	switch {
	case errors.Is(err, ErrLoggingActive):
		writeJSON(w, http.StatusConflict, map[string]any{"detail": err.Error()})
	case errors.Is(err, ErrInvalidFilename):
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": err.Error()})
	default:
		writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) handleLoggingStop(w http.ResponseWriter, _ *http.Request) {
	st, ok := s.logger.Stop()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "detail": "logging inactive"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleWS upgrades the connection and hands it to the hub. Auth rides the
// token query parameter here because browser WebSocket clients cannot set
// headers.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.URL.Query().Get("token") != s.token {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("supervisor: ws upgrade failed: %v", err)
		return
	}
	go s.hub.Serve(conn)
}

// Feed reads console lines from r until EOF or ctx cancellation, parsing
// each and fanning telemetry out to the log and the connected clients.
func (s *Server) Feed(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		payload, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}
		s.logger.Log(payload)
		s.hub.Broadcast(payload)
	}
	return scanner.Err()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("supervisor: write response: %v", err)
	}
}
