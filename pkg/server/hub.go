package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/nav"
	"github.com/kraitsura/ktree_viewer/pkg/session"
	"github.com/kraitsura/ktree_viewer/pkg/surface"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Message is what the hub pushes to every client.
type Message struct {
	Type       string             `json:"type"`
	Focus      focus.Snapshot     `json:"focus"`
	Navigation surface.Navigation `json:"navigation"`
}

// MessageFocus is the type of focus change messages.
const MessageFocus = "focus"

// Hub fans focus changes of a session out to WebSocket clients. A client
// that cannot keep up is dropped rather than blocking the focus state.
type Hub struct {
	sess     *session.Session
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	cancel  func()
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub subscribes a hub to the session's focus state.
func NewHub(sess *session.Session, logger *log.Logger) *Hub {
	h := &Hub{
		sess:   sess,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The views are served locally, possibly from a dev server.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	h.cancel = sess.Focus().Subscribe(h.broadcast)
	return h
}

// ServeHTTP upgrades the connection and registers the client. The current
// state is sent first so a fresh view can render without polling.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	initial, err := h.encode(h.sess.Focus().Snapshot())
	if err != nil {
		h.logger.Error("encode focus message", "err", err)
		conn.Close()
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	// The buffer is empty, so this cannot block.
	c.send <- initial
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close unsubscribes from the focus state and disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	h.cancel()
	for c := range clients {
		c.close()
	}
}

func (h *Hub) encode(snap focus.Snapshot) ([]byte, error) {
	return json.Marshal(Message{
		Type:       MessageFocus,
		Focus:      snap,
		Navigation: surface.FromStatus(nav.StatusOf(snap, h.sess.Nav().Options())),
	})
}

func (h *Hub) broadcast(snap focus.Snapshot) {
	msg, err := h.encode(snap)
	if err != nil {
		h.logger.Error("encode focus message", "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow websocket client", "remote", c.conn.RemoteAddr())
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// readPump discards client messages; it exists to process control frames
// and notice disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
