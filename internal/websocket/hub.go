// Package websocket pushes live-reload notifications to preview pages.
//
// A Hub owns every connection. Registration, removal and broadcasting are
// serialised through channels consumed by a single hub goroutine that is
// started by NewHub and stopped by Shutdown.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/mailwright/internal/logging"
	"github.com/conneroisu/mailwright/internal/validation"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// Hub manages live-reload connections.
type Hub struct {
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *websocket.Conn

	allowedOrigins []string
	logger         logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewHub creates a hub and starts its goroutine. Requests carrying an Origin
// header must match one of allowedOrigins (host:port or full origin).
func NewHub(allowedOrigins []string, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:        make(map[*websocket.Conn]*Client),
		broadcast:      make(chan []byte, 32),
		register:       make(chan *Client, 32),
		unregister:     make(chan *websocket.Conn, 32),
		allowedOrigins: allowedOrigins,
		logger:         logger.WithComponent("livereload"),
		ctx:            ctx,
		cancel:         cancel,
	}
	go h.run()
	return h
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	if origin := r.Header.Get("Origin"); origin != "" {
		if err := validation.ValidateOrigin(origin, h.allowedOrigins); err != nil {
			h.logger.Warn(r.Context(), err, "Live reload connection rejected", "remote", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origins are checked above.
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "Websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	client := &Client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	h.writePump(client)
}

// Broadcast queues msg for every connected client.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.ctx.Done():
	}
}

// BroadcastReload tells every client to reload the page.
func (h *Hub) BroadcastReload(buildID string) error {
	payload, err := json.Marshal(UpdateMessage{Type: MessageReload, BuildID: buildID})
	if err != nil {
		return err
	}
	h.Broadcast(payload)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection and stops the hub.
func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(func() {
		h.cancel()

		h.clientsMutex.Lock()
		for conn, client := range h.clients {
			close(client.send)
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		h.clients = make(map[*websocket.Conn]*Client)
		h.clientsMutex.Unlock()
	})
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(h.ctx, "Live reload client connected", "clients", count)

		case conn := <-h.unregister:
			h.remove(conn)

		case message := <-h.broadcast:
			h.clientsMutex.RLock()
			var stalled []*websocket.Conn
			for conn, client := range h.clients {
				select {
				case client.send <- message:
				default:
					stalled = append(stalled, conn)
				}
			}
			h.clientsMutex.RUnlock()

			for _, conn := range stalled {
				h.remove(conn)
			}
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.clientsMutex.Lock()
	client, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(client.send)
	}
	count := len(h.clients)
	h.clientsMutex.Unlock()

	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Debug(h.ctx, "Live reload client disconnected", "clients", count)
	}
}

// writePump delivers queued messages until the client goes away. The
// browser never sends data, so reads are discarded by CloseRead, which
// also keeps ping/pong working.
func (h *Hub) writePump(client *Client) {
	ctx := client.conn.CloseRead(h.ctx)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		select {
		case h.unregister <- client.conn:
		case <-h.ctx.Done():
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-client.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := client.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				h.logger.Debug(ctx, "Live reload write failed", "error", err.Error())
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := client.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
