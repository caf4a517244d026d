package agent

import (
	"context"
	"fmt"

	"github.com/atelier-ai/atelier/comms"
	"github.com/atelier-ai/atelier/provider"
)

// Runtime binds an identity, its mailbox, and its decision function. The
// environment enqueues messages into the mailbox; the driver loop calls Act
// to let the agent consume them and produce replies.
type Runtime struct {
	id      Identity
	mailbox *Mailbox
	backend provider.Provider
}

// NewRuntime creates a runtime for the given identity and decision backend.
func NewRuntime(id Identity, backend provider.Provider) *Runtime {
	return &Runtime{id: id, mailbox: NewMailbox(), backend: backend}
}

// Identity returns the agent's identity.
func (r *Runtime) Identity() Identity { return r.id }

// Name returns the agent's unique name.
func (r *Runtime) Name() string { return r.id.Name }

// Mailbox returns the agent's inbound queue.
func (r *Runtime) Mailbox() *Mailbox { return r.mailbox }

// Idle reports whether the agent has no pending work.
func (r *Runtime) Idle() bool { return r.mailbox.Idle() }

// Put enqueues a message directly into the agent's mailbox.
func (r *Runtime) Put(msg *comms.Message) { r.mailbox.Enqueue(msg) }

// Act drains the mailbox and runs the decision function over the unread
// messages. The returned messages carry this agent's name as sender. With an
// empty queue the agent simply stays idle.
func (r *Runtime) Act(ctx context.Context) ([]*comms.Message, error) {
	unread := r.mailbox.Drain()
	if len(unread) == 0 {
		r.mailbox.SetIdle(true)
		return nil, nil
	}

	out, err := r.backend.Decide(ctx, unread)
	r.mailbox.SetIdle(true)
	if err != nil {
		return nil, fmt.Errorf("agent %s: decide: %w", r.id.Name, err)
	}
	for _, m := range out {
		if m.SentFrom == "" {
			m.SentFrom = r.id.Name
		}
	}
	return out, nil
}
