package live

import (
	"net/http"
	"time"

	"golang.org/x/net/websocket"

	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// InboundMessage is what the dashboard may send.
type InboundMessage struct {
	Type string `json:"type"`
}

// Handler upgrades admin connections onto the hub.
type Handler struct {
	hub    *Hub
	logger *logging.Logger
}

func NewHandler(hub *Hub, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{hub: hub, logger: logger}
}

// HandleWebSocket serves GET /api/admin/live. Authentication happens in the
// admin middleware, so the origin handshake check is skipped.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	srv := websocket.Server{
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   h.serveWS,
	}
	srv.ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn) {
	// Hijacked connections keep the HTTP server's request deadlines.
	_ = conn.SetDeadline(time.Time{})

	c := &client{send: make(chan Event, clientBuffer)}
	select {
	case h.hub.register <- c:
	case <-h.hub.stopped:
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range c.send {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := websocket.JSON.Send(conn, ev); err != nil {
				h.logger.Debug("live: write failed", "error", err)
				conn.Close()
				return
			}
		}
		conn.Close()
	}()

	// Conn serializes writes, so replies can go out alongside the writer.
	if err := h.reply(conn, "hello"); err == nil {
		for {
			var msg InboundMessage
			if err := websocket.JSON.Receive(conn, &msg); err != nil {
				break
			}
			if msg.Type == "ping" {
				if err := h.reply(conn, "pong"); err != nil {
					break
				}
			}
		}
	}

	select {
	case h.hub.unregister <- c:
	case <-h.hub.stopped:
	}
	<-done
}

// reply sends a control event and closes conn when the write fails.
func (h *Handler) reply(conn *websocket.Conn, kind string) error {
	err := websocket.JSON.Send(conn, Event{Type: kind, At: time.Now().UTC()})
	if err != nil {
		h.logger.Debug("live: reply failed", "type", kind, "error", err)
		conn.Close()
	}
	return err
}
