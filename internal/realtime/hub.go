package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub is an in-process Feed and Publisher. It also fans out events received
// from external transports.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uuid.UUID]map[uint64]Handler
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[uuid.UUID]map[uint64]Handler),
	}
}

func (h *Hub) Subscribe(userID uuid.UUID, handler Handler) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uint64]Handler)
	}
	h.subs[userID][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() { h.unsubscribe(userID, id) })
	}, nil
}

func (h *Hub) unsubscribe(userID uuid.UUID, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs[userID], id)
	if len(h.subs[userID]) == 0 {
		delete(h.subs, userID)
	}
}

// Publish delivers c synchronously to every subscriber of c.UserID.
// Handlers must not block.
func (h *Hub) Publish(_ context.Context, c Change) error {
	for _, handler := range h.handlers(c.UserID) {
		handler(c)
	}
	return nil
}

// Broadcast delivers c to every subscriber regardless of user.
func (h *Hub) Broadcast(c Change) {
	h.mu.RLock()
	var all []Handler
	for _, byID := range h.subs {
		for _, handler := range byID {
			all = append(all, handler)
		}
	}
	h.mu.RUnlock()

	for _, handler := range all {
		handler(c)
	}
}

func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

func (h *Hub) handlers(userID uuid.UUID) []Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Handler, 0, len(h.subs[userID]))
	for _, handler := range h.subs[userID] {
		out = append(out, handler)
	}
	return out
}
