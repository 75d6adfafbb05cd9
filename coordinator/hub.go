package coordinator

import "sync"

// Update is a refresh outcome broadcast to sibling participants.
type Update struct {
	Generation     uint64
	Pair           TokenPair
	SessionExpired bool
}

// Hub is the broadcast bus between participants of one session. Publish
// must never block a refresher: subscribers that cannot keep up miss the
// event and recover through the coordinator's poll fallback.
type Hub interface {
	Publish(update Update)
	Subscribe() (updates <-chan Update, cancel func())
}

// MemoryHub is the in-process Hub for participants sharing one runtime.
type MemoryHub struct {
	mu   sync.Mutex
	subs map[int]chan Update
	next int
}

// NewMemoryHub returns an empty hub with no subscribers.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		subs: make(map[int]chan Update),
	}
}

// Publish delivers the update to every subscriber that has buffer room.
func (h *MemoryHub) Publish(update Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- update:
		default:
			// Slow subscriber: the poll fallback will catch it up.
		}
	}
}

// Subscribe registers a buffered listener. The returned cancel must be
// called exactly once when the listener is done.
func (h *MemoryHub) Subscribe() (<-chan Update, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Update, 8)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
