package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/foxseedlab/madoguchin/internal/config"
	"github.com/foxseedlab/madoguchin/internal/session"
	"github.com/gorilla/websocket"
)

const (
	maxInboundFrameBytes = 4 << 20
	writeTimeout         = 10 * time.Second
	shutdownTimeout      = 10 * time.Second
)

// Server exposes the call API over HTTP: a REST endpoint to open a call
// and a WebSocket endpoint that carries the voice conversation.
type Server struct {
	manager    *session.Manager
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

func NewServer(cfg *config.Config, manager *session.Manager) *Server {
	s := &Server{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /call/start", s.handleStartCall)
	mux.HandleFunc("GET /ws/call/{id}", s.handleCallSocket)

	s.httpServer = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}
	return s
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	slog.Info("gateway listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startCallResponse struct {
	CallID       string `json:"call_id"`
	Status       string `json:"status"`
	WebSocketURL string `json:"websocket_url"`
}

func (s *Server) handleStartCall(w http.ResponseWriter, r *http.Request) {
	c, err := s.manager.StartCall(r.Context())
	if err != nil {
		slog.Error("failed to start call", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start call"})
		return
	}
	writeJSON(w, http.StatusOK, startCallResponse{
		CallID:       c.ID,
		Status:       string(c.Status),
		WebSocketURL: fmt.Sprintf("/ws/call/%s", c.ID),
	})
}

func (s *Server) handleCallSocket(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "call_id", callID, "error", err)
		return
	}
	conn.SetReadLimit(maxInboundFrameBytes)

	transport := newWSTransport(conn)
	if err := s.manager.Attach(r.Context(), callID, transport); err != nil {
		slog.Warn("call attach rejected", "call_id", callID, "error", err)
		_ = transport.Send(session.Frame{Type: session.FrameTypeError, Message: "call not available"})
		_ = transport.Close()
		return
	}
	slog.Info("caller connected", "call_id", callID)

	s.readLoop(conn, callID)
}

func (s *Server) readLoop(conn *websocket.Conn, callID string) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("caller connection lost", "call_id", callID, "error", err)
			} else {
				slog.Info("caller disconnected", "call_id", callID)
			}
			s.manager.HandleDisconnect(callID)
			return
		}

		var frame session.InboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			slog.Warn("discarding malformed frame", "call_id", callID, "error", err)
			continue
		}
		s.manager.HandleFrame(callID, frame)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// wsTransport adapts a websocket connection to the session transport.
// Gorilla connections allow one concurrent writer, so sends are
// serialized with a mutex.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) Send(frame session.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteJSON(frame)
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return t.conn.Close()
}
