// Package provider defines the external decision function that powers an
// agent. What an agent decides to do with its unread messages is opaque to
// the routing core: input is the ordered unread queue, output is the ordered
// list of messages to publish.
package provider

import (
	"context"

	"github.com/atelier-ai/atelier/comms"
)

// Provider is an agent's decision backend.
type Provider interface {
	// Name returns the provider identifier (e.g., "scripted").
	Name() string

	// Decide consumes the agent's unread messages and returns the messages
	// the agent wants published. A nil or empty result means the agent has
	// nothing to say this turn. Decide may block (e.g., on a remote call);
	// the context bounds that wait.
	Decide(ctx context.Context, unread []*comms.Message) ([]*comms.Message, error)
}

// Func adapts a plain function to the Provider interface.
type Func func(ctx context.Context, unread []*comms.Message) ([]*comms.Message, error)

// Name returns "func".
func (f Func) Name() string { return "func" }

// Decide calls f.
func (f Func) Decide(ctx context.Context, unread []*comms.Message) ([]*comms.Message, error) {
	return f(ctx, unread)
}
