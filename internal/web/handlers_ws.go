package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"matter-go-home/internal/controller"
	"matter-go-home/internal/filter"
)

// Message types the WebSocket sends besides bus events.
const (
	wsSubscribed = "subscribed"
	wsError      = "error"
)

// WSHub manages WebSocket connections and broadcasts bus events.
type WSHub struct {
	clients map[*wsClient]struct{}
	mu      sync.RWMutex
	logger  *slog.Logger

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan controller.Event

	done     chan struct{}
	stopOnce sync.Once
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte

	// types limits the event types sent; empty means all.
	types map[string]bool
	// filter applies to matter_event only.
	filter *filter.Filter
}

// wants reports whether the client subscribed to ev.
func (c *wsClient) wants(ev controller.Event) bool {
	if len(c.types) > 0 && !c.types[ev.Type] {
		return false
	}
	if c.filter == nil || ev.Type != controller.EventMatterEvent {
		return true
	}
	me, ok := ev.Data.(controller.MatterEvent)
	return ok && c.filter.Match(me.Record)
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub(logger *slog.Logger) *WSHub {
	return &WSHub{
		clients:    make(map[*wsClient]struct{}),
		logger:     logger,
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan controller.Event, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws client connected", "total", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws client disconnected", "total", total)

		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

func (h *WSHub) deliver(ev controller.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var (
		data []byte
		slow []*wsClient
	)
	for client := range h.clients {
		if !client.wants(ev) {
			continue
		}
		if data == nil {
			var err error
			if data, err = json.Marshal(ev); err != nil {
				h.logger.Error("ws marshal", "type", ev.Type, "err", err)
				return
			}
		}
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		delete(h.clients, client)
		close(client.send)
		h.logger.Warn("ws client evicted (too slow)")
	}
}

// Stop signals the hub to shut down. Safe to call multiple times.
func (h *WSHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Broadcast queues an event for all interested clients. It never blocks.
func (h *WSHub) Broadcast(ev controller.Event) {
	select {
	case h.broadcast <- ev:
	default:
		h.logger.Warn("ws broadcast channel full, dropping event", "type", ev.Type)
	}
}

// setSelection swaps the client's types and filter. deliver reads them
// under the same lock.
func (h *WSHub) setSelection(c *wsClient, types []string, f *filter.Filter) {
	h.mu.Lock()
	c.types = typeSet(types)
	c.filter = f
	h.mu.Unlock()
}

// Clients returns the number of connected clients.
func (h *WSHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleWS upgrades to a WebSocket streaming bus events as JSON.
// Query parameters: types=matter_event,write_result limits event types and
// filter=<expression> selects matter events. A client can change both later
// by sending {"types": [...], "filter": "..."}.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	client := &wsClient{send: make(chan []byte, 64)}

	f, err := filter.Compile(r.URL.Query().Get("filter"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	client.filter = f
	if t := r.URL.Query().Get("types"); t != "" {
		client.types = typeSet(strings.Split(t, ","))
	}

	opts := &websocket.AcceptOptions{}
	if len(s.allowedOrigins) > 0 {
		opts.OriginPatterns = s.allowedOrigins
	}
	// Without allowedOrigins nhooyr defaults to a same-origin check.

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Error("ws accept", "err", err)
		return
	}
	conn.SetReadLimit(4096)
	client.conn = conn

	select {
	case s.wsHub.register <- client:
	case <-s.wsHub.done:
		conn.Close(websocket.StatusGoingAway, "server shutdown")
		return
	}

	go s.wsWritePump(client)
	s.wsReadPump(client)
}

func (s *Server) wsWritePump(client *wsClient) {
	for msg := range client.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := client.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return
		}
	}
	// Channel closed by hub; close connection.
	client.conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) wsReadPump(client *wsClient) {
	defer func() {
		select {
		case s.wsHub.unregister <- client:
		case <-s.wsHub.done:
			client.conn.Close(websocket.StatusGoingAway, "server shutdown")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-s.wsHub.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		_, data, err := client.conn.Read(ctx)
		if err != nil {
			return
		}
		s.handleWSMessage(ctx, client, data)
	}
}

// subscribeRequest replaces a client's event selection mid-stream.
type subscribeRequest struct {
	Types  []string `json:"types"`
	Filter string   `json:"filter"`
}

// handleWSMessage applies a subscribe request and answers with a
// "subscribed" or "error" message.
func (s *Server) handleWSMessage(ctx context.Context, client *wsClient, data []byte) {
	reply := controller.Event{Type: wsSubscribed}
	var req subscribeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		reply = controller.Event{Type: wsError, Data: "invalid subscribe message"}
	} else if f, err := filter.Compile(req.Filter); err != nil {
		reply = controller.Event{Type: wsError, Data: err.Error()}
	} else {
		s.wsHub.setSelection(client, req.Types, f)
		reply.Data = req
	}

	msg, err := json.Marshal(reply)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.conn.Write(wctx, websocket.MessageText, msg); err != nil {
		s.logger.Debug("ws reply", "err", err)
	}
}

func typeSet(names []string) map[string]bool {
	var set map[string]bool
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			if set == nil {
				set = make(map[string]bool)
			}
			set[name] = true
		}
	}
	return set
}
