package events

import (
	"sync"
	"sync/atomic"
)

const defaultBuffer = 16

// Hub fans events out to SSE subscribers. A subscriber whose buffer is full
// misses the event; Publish never blocks.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan string]struct{}
	buffer int

	dropped atomic.Int64
}

func NewHub() *Hub { return NewHubSize(defaultBuffer) }

// NewHubSize sets how many events a subscriber may lag behind.
func NewHubSize(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{subs: make(map[chan string]struct{}), buffer: buffer}
}

func (h *Hub) Subscribe() chan string {
	ch := make(chan string, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch. Calling it twice is safe.
func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; !ok {
		return
	}
	delete(h.subs, ch)
	close(ch)
}

func (h *Hub) Publish(evt string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped counts deliveries skipped because a subscriber was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }
