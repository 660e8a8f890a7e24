// Package stream broadcasts live census records to websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/contagion/epidemic"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("stream hub closed")

// TypeRecord is the stage histogram of one type.
type TypeRecord struct {
	Type   string                 `json:"type"`
	Counts [epidemic.NumStages]int `json:"counts"`
}

// Record is one live measurement.
type Record struct {
	RunID  string                 `json:"run_id,omitempty"`
	Tick   int                    `json:"tick"`
	Types  []TypeRecord           `json:"types"`
	Totals [epidemic.NumStages]int `json:"totals"`
}

// NewRecord builds a record from a census.
func NewRecord(runID string, tick int, census []epidemic.TypeCount) Record {
	rec := Record{RunID: runID, Tick: tick, Totals: epidemic.Totals(census)}
	for _, tc := range census {
		rec.Types = append(rec.Types, TypeRecord{Type: tc.Type, Counts: tc.Counts})
	}
	return rec
}

// Hub fans records out to every connected websocket client.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*websocket.Conn]bool
	upgrader   websocket.Upgrader
	broadcast  chan Record
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewHub creates a hub and starts its broadcast goroutine.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Record, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
	h.wg.Add(1)
	go h.run()
	return h
}

// ServeHTTP upgrades the request and registers the connection until the
// client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// Drain client messages so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case h.unregister <- conn:
				case <-h.done:
				}
				return
			}
		}
	}()
}

// Publish queues a record for broadcast.
func (h *Hub) Publish(ctx context.Context, rec Record) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}
	select {
	case h.broadcast <- rec:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(1 * time.Second):
		return fmt.Errorf("broadcast queue full")
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.drop(conn)

		case rec := <-h.broadcast:
			data, err := json.Marshal(rec)
			if err != nil {
				h.logger.Error("encode record", "tick", rec.Tick, "error", err)
				continue
			}

			h.mu.RLock()
			conns := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				conns = append(conns, conn)
			}
			h.mu.RUnlock()

			for _, conn := range conns {
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					h.logger.Debug("dropping websocket client", "remote", conn.RemoteAddr().String(), "error", err)
					h.drop(conn)
				}
			}
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// Close disconnects all clients and stops the hub.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
			delete(h.clients, conn)
		}
		h.mu.Unlock()
	})
	return nil
}

// Server serves a hub at /ws on its own listener.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen starts serving hub on addr. Use ":0" for an ephemeral port.
func Listen(addr string, hub *Hub) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	s := &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hub.logger.Error("stream server stopped", "error", err)
		}
	}()
	return s, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Shutdown stops accepting connections.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
