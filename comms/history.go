package comms

import "sync"

// History is the append-only, ordered record of every message the environment
// has routed. Insertion order is arrival order at the bus; entries are never
// mutated or removed. The environment is the single writer.
type History struct {
	mu      sync.RWMutex
	entries []*Message
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Add appends a message.
func (h *History) Add(msg *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, msg)
}

// Get returns the most recent k entries in chronological order, or all
// entries when the history is shorter (or k <= 0).
func (h *History) Get(k int) []*Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if k <= 0 || k > len(h.entries) {
		k = len(h.entries)
	}
	out := make([]*Message, k)
	copy(out, h.entries[len(h.entries)-k:])
	return out
}

// Len returns the number of recorded messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
