package activity

import (
	"log/slog"
	"sync"
)

// Hub distributes events to subscribers. Publishing never blocks; a
// subscriber whose buffer is full misses the event.
type Hub struct {
	log *slog.Logger

	mu          sync.RWMutex
	subscribers map[uint64]chan Event
	nextID      uint64

	bufferSize int
}

// NewHub constructs a Hub. bufferSize is the per-subscriber queue
// depth; values below 1 fall back to a small default.
func NewHub(log *slog.Logger, bufferSize int) *Hub {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &Hub{
		log:         log,
		subscribers: make(map[uint64]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a consumer. The returned cancel func must be
// called exactly once; afterwards the channel is closed and drained by
// the hub.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.bufferSize)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every live subscriber without
// blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			if h.log != nil {
				h.log.Info("activity.drop", "subscriber", id, "type", ev.Type)
			}
		}
	}
}

// Subscribers reports the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
