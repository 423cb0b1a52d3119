package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one websocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan Event
	room   string
	UserID string
}

// Hub tracks connected clients by room.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

var _ Publisher = (*Hub)(nil)

func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	if allowOrigin == nil {
		allowOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		rooms:    map[string]map[*Client]struct{}{},
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
	}
}

func (h *Hub) newClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan Event, sendBuffer),
		room:   UserRoom(userID),
		UserID: userID,
	}
}

func (h *Hub) join(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[c.room]
	if !ok {
		members = map[*Client]struct{}{}
		h.rooms[c.room] = members
	}
	members[c] = struct{}{}
}

// leave removes c and closes its send channel. Safe to call twice.
func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	members, ok := h.rooms[c.room]
	if !ok {
		return
	}
	if _, ok := members[c]; !ok {
		return
	}
	delete(members, c)
	close(c.send)
	if len(members) == 0 {
		delete(h.rooms, c.room)
	}
}

// deliver queues event for every client in rooms (all rooms when none are
// named). A client whose buffer is full is dropped.
func (h *Hub) deliver(event Event, rooms ...string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var targets []*Client
	if len(rooms) == 0 {
		for _, members := range h.rooms {
			for c := range members {
				targets = append(targets, c)
			}
		}
	} else {
		for _, room := range rooms {
			for c := range h.rooms[room] {
				targets = append(targets, c)
			}
		}
	}

	delivered := 0
	for _, c := range targets {
		select {
		case c.send <- event:
			delivered++
		default:
			h.log.Warn("dropping slow realtime client", zap.String("user_id", c.UserID), zap.String("event", event.Name))
			eventsTotal.WithLabelValues(event.Name, "dropped").Inc()
			h.removeLocked(c)
		}
	}
	return delivered
}

func (h *Hub) ToUser(ctx context.Context, userID string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.deliver(event, UserRoom(userID)) > 0 {
		eventsTotal.WithLabelValues(event.Name, "delivered").Inc()
	} else {
		eventsTotal.WithLabelValues(event.Name, "no_listener").Inc()
	}
	return nil
}

func (h *Hub) Broadcast(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.deliver(event)
	eventsTotal.WithLabelValues(event.Name, "broadcast").Inc()
	return nil
}

// Connected returns the number of live connections of a user.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[UserRoom(userID)])
}

// Serve upgrades the request and pumps events to the connection until it
// closes. The caller has already authenticated userID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := h.newClient(userID, conn)
	h.join(c)
	h.log.Debug("realtime client connected", zap.String("user_id", userID))

	go c.writePump()
	c.readPump()
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, members := range h.rooms {
		for c := range members {
			h.removeLocked(c)
		}
	}
}

// readPump discards inbound frames; it only exists to notice disconnects
// and answer pings.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
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

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
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
