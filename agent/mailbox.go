package agent

import (
	"sync"

	"github.com/atelier-ai/atelier/comms"
)

// Mailbox is an agent's inbound FIFO queue. The environment is the single
// writer (Enqueue) and the owning agent the single reader (Drain). A message
// already seen by this mailbox is not re-added.
type Mailbox struct {
	mu    sync.Mutex
	queue []*comms.Message
	seen  map[string]struct{}
	idle  bool
}

// NewMailbox returns an empty, idle mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{seen: make(map[string]struct{}), idle: true}
}

// Enqueue appends a message and marks the mailbox busy. Duplicates by message
// identity are dropped.
func (mb *Mailbox) Enqueue(msg *comms.Message) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if _, dup := mb.seen[msg.ID]; dup {
		return
	}
	mb.seen[msg.ID] = struct{}{}
	mb.queue = append(mb.queue, msg)
	mb.idle = false
}

// Drain removes and returns all pending messages in arrival order.
func (mb *Mailbox) Drain() []*comms.Message {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := mb.queue
	mb.queue = nil
	return out
}

// Pending returns the number of queued messages.
func (mb *Mailbox) Pending() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.queue)
}

// Idle reports whether the owner has no pending work.
func (mb *Mailbox) Idle() bool {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.idle && len(mb.queue) == 0
}

// SetIdle flips the owner's idle flag. The owning agent calls this after it
// finishes (or starts) acting on its queue.
func (mb *Mailbox) SetIdle(idle bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.idle = idle
}
