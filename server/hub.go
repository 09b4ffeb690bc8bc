package polyserv

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 64
)

// Event is one message on the translation feed.
type Event struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Hub fans completed translations out to websocket subscribers.
type Hub struct {
	upgrader    websocket.Upgrader
	subscribers *subscriberList
}

func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		subscribers: newSubscriberList(),
	}
}

// OriginChecker accepts requests without an Origin header and those whose
// origin is in allowed. A "*" entry accepts every origin; an empty list
// falls back to the same-origin check.
func OriginChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err, "remoteAddr", r.RemoteAddr)
		return
	}

	s := &subscriber{
		ID:   uuid.New(),
		Addr: r.RemoteAddr,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.subscribers.Add(s)
	slog.Debug("Feed subscriber connected", "subscriberID", s.ID, "remoteAddr", s.Addr)

	go h.writePump(s)
	go h.readPump(s)
}

// Publish sends an event to every subscriber. Subscribers that cannot keep
// up are disconnected.
func (h *Hub) Publish(kind, id string, payload any) {
	message, err := json.Marshal(Event{
		Type:      kind,
		ID:        id,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		slog.Error("Failed to encode feed event", "error", err, "type", kind, "id", id)
		return
	}

	for _, slow := range h.subscribers.Broadcast(message) {
		slog.Warn("Dropping slow feed subscriber", "subscriberID", slow)
		h.subscribers.Remove(slow)
	}
}

func (h *Hub) Subscribers() int {
	return h.subscribers.Len()
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.subscribers.RemoveAll()
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			w, err := s.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services control frames; the feed is one-way.
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		if h.subscribers.Remove(s.ID) {
			slog.Debug("Feed subscriber disconnected", "subscriberID", s.ID, "remoteAddr", s.Addr)
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Error("WebSocket read error", "error", err, "subscriberID", s.ID)
			}
			break
		}
	}
}
