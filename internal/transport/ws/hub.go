package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-realtime-nosql/internal/domain"
)

// Hub indexes the live sockets held by this process by connection id. It is
// the in-process Pusher: DynamoDB stays the source of truth for which
// connection belongs where, the hub only knows how to reach one.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Remove drops c if it is still the client registered under its id.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.ID]; ok && cur == c {
		delete(h.clients, c.ID)
	}
}

func (h *Hub) Get(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Push queues data on the connection's write pump. Unknown, closed and
// hopelessly slow connections all report domain.ErrGone, which makes callers
// prune the row. That is only correct while a single process owns every socket
// recorded in the connections table.
func (h *Hub) Push(_ context.Context, connectionID string, data []byte) error {
	c, ok := h.Get(connectionID)
	if !ok {
		return fmt.Errorf("connection %s not on this node: %w", connectionID, domain.ErrGone)
	}
	if !c.enqueue(data) {
		return fmt.Errorf("connection %s: %w", connectionID, domain.ErrGone)
	}
	return nil
}

// CloseAll closes every socket; used on shutdown so pumps unwind and sessions disconnect.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}
