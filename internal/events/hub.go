package events

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscriber queue length used by NewHub.
const DefaultBuffer = 256

// Hub fans events out to subscribers. A subscriber whose queue is full
// loses the event; Publish never blocks.
type Hub struct {
	buffer int

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription receives events on C until Close is called.
type Subscription struct {
	C <-chan string

	hub     *Hub
	ch      chan string
	dropped atomic.Int64
}

func NewHub() *Hub {
	return NewHubSize(DefaultBuffer)
}

func NewHubSize(buffer int) *Hub {
	return &Hub{buffer: max(buffer, 1), subs: make(map[*Subscription]struct{})}
}

func (h *Hub) Subscribe() *Subscription {
	ch := make(chan string, h.buffer)
	s := &Subscription{C: ch, hub: h, ch: ch}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Close detaches the subscription and closes C. Closing twice is a no-op.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.ch)
}

// Dropped is the number of events this subscriber missed.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Publish is a no-op on a nil Hub.
func (h *Hub) Publish(evt string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- evt:
		default:
			s.dropped.Add(1)
		}
	}
}

// Emit builds and publishes a version 1 event.
func (h *Hub) Emit(runID, typ string, data any) {
	if h == nil {
		return
	}
	h.Publish(MakeEvent(runID, typ, 1, data))
}
