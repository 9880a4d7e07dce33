package supervisor

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// clientSendBuffer bounds each client's outbound queue. A client that cannot
// keep up gets dropped rather than backing up the broadcaster.
const clientSendBuffer = 64

// Hub fans telemetry payloads out to the connected WebSocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[string]chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]chan []byte)}
}

// Broadcast sends one payload to every connected client.
func (h *Hub) Broadcast(p Payload) {
	data, err := json.Marshal(p)
	if err != nil {
		log.Printf("hub: marshal failed: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		select {
		case ch <- data:
		default:
			log.Printf("hub: client %s too slow, dropping", id)
			close(ch)
			delete(h.clients, id)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve owns one client connection: it registers the client, pumps queued
// payloads to the socket, and swallows whatever the client sends (some send
// keepalives, most send nothing). Returns when the client disconnects or
// falls too far behind.
func (h *Hub) Serve(conn *websocket.Conn) {
	id := uuid.NewString()
	ch := make(chan []byte, clientSendBuffer)

	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()
	log.Printf("hub: client %s connected", id)

	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[id]; ok {
			close(ch)
			delete(h.clients, id)
		}
		h.mu.Unlock()
		conn.Close()
		log.Printf("hub: client %s disconnected", id)
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case data, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
