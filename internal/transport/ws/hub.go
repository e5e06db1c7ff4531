// Package ws delivers streamed replies over websocket connections.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/pkg/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// staleStreamAge bounds how long an opened stream may sit unused before
	// the sweeper reclaims it.
	staleStreamAge = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The chat widget is embedded on the storefront; the HTTP layer owns
	// origin policy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Event is one frame sent to a client. The field names on the wire are part
// of the widget contract: deltas arrive under "chunk" and the final message
// of a completed stream is wrapped in "payload".
type Event struct {
	Type     string   `json:"type"`
	ClientID string   `json:"clientId,omitempty"`
	StreamID string   `json:"streamId,omitempty"`
	Delta    string   `json:"chunk,omitempty"`
	Payload  *Payload `json:"payload,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Payload carries the final message of a completed stream.
type Payload struct {
	Message core.Message `json:"message"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

type stream struct {
	clientID  string
	createdAt time.Time
}

// Hub tracks connected clients and the single-use stream ids handed out for
// in-flight turns. Delivery to a client that disconnected is a silent no-op.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	streams map[string]stream
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		streams: make(map[string]stream),
	}
}

// HandleWebSocket upgrades the request, assigns the client an id and sends
// the ready handshake. It blocks until the connection closes.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	clientID := uuid.NewString()
	c := &client{conn: conn, send: make(chan Event, 64)}

	h.mu.Lock()
	h.clients[clientID] = c
	h.mu.Unlock()

	logger := log.FromCtx(r.Context())
	logger.Debug().Str("client_id", clientID).Msg("websocket client connected")

	c.send <- Event{Type: "ready", ClientID: clientID}

	go c.writePump()
	c.readPump()

	h.dropClient(clientID)
	logger.Debug().Str("client_id", clientID).Msg("websocket client disconnected")
	return nil
}

// OpenStream reserves a fresh stream id for a registered client.
func (h *Hub) OpenStream(clientID string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientID]; !ok {
		return "", core.ErrClientNotRegistered
	}
	streamID := uuid.NewString()
	h.streams[streamID] = stream{clientID: clientID, createdAt: time.Now()}
	return streamID, nil
}

func (h *Hub) SendChunk(streamID, delta string) {
	h.deliver(streamID, Event{Type: "chunk", StreamID: streamID, Delta: delta}, false)
}

// SendCompletion delivers the final message and retires the stream id.
func (h *Hub) SendCompletion(streamID string, msg core.Message) {
	h.deliver(streamID, Event{Type: "completed", StreamID: streamID, Payload: &Payload{Message: msg}}, true)
}

// SendError delivers a terminal error and retires the stream id.
func (h *Hub) SendError(streamID, message string) {
	h.deliver(streamID, Event{Type: "error", StreamID: streamID, Error: message}, true)
}

func (h *Hub) deliver(streamID string, ev Event, terminal bool) {
	// The send stays under the lock so it cannot race a concurrent close of
	// the client's channel; the channel send itself never blocks.
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.streams[streamID]
	if terminal {
		delete(h.streams, streamID)
	}
	if !ok {
		return
	}
	c, ok := h.clients[st.clientID]
	if !ok {
		return
	}
	select {
	case c.send <- ev:
	default:
		// Slow consumer: drop the frame rather than block the pipeline.
	}
}

func (h *Hub) dropClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	delete(h.clients, clientID)
	close(c.send)
	for id, st := range h.streams {
		if st.clientID == clientID {
			delete(h.streams, id)
		}
	}
}

// Sweep drops streams that were opened but never completed, every interval
// until the context ends.
func (h *Hub) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-staleStreamAge)
			h.mu.Lock()
			for id, st := range h.streams {
				if st.createdAt.Before(cutoff) {
					delete(h.streams, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames. The protocol is server-push only; inbound
// traffic just keeps the read deadline alive.
func (c *client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
