package worker

import (
	"sync"

	"warmbox/warmup"
)

// Hub fans cycle results out to progress subscribers (websocket handlers).
// Publishing never blocks; a subscriber that stops draining loses updates.
type Hub struct {
	mu   sync.Mutex
	subs map[chan warmup.CycleResult]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[chan warmup.CycleResult]struct{}),
	}
}

func (h *Hub) Subscribe() chan warmup.CycleResult {
	ch := make(chan warmup.CycleResult, 4)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan warmup.CycleResult) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Publish(result warmup.CycleResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- result:
		default:
		}
	}
}
