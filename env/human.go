package env

import (
	"context"
	"errors"

	"github.com/atelier-ai/atelier/comms"
)

// ErrNoRequirement is returned when an operation needs a user requirement
// and the history holds none. Callers treat this as fatal for their action.
var ErrNoRequirement = errors.New("env: no user requirement found")

// HumanIO is the blocking human-input collaborator: a question out, a free
// UTF-8 answer back.
type HumanIO interface {
	Ask(ctx context.Context, question string) (string, error)
}

// HumanIOFunc adapts a function to HumanIO.
type HumanIOFunc func(ctx context.Context, question string) (string, error)

// Ask calls f.
func (f HumanIOFunc) Ask(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

// AskHuman forwards a question to the configured human collaborator and
// prefixes the answer so downstream consumers can tell it apart from agent
// output.
func (e *Environment) AskHuman(ctx context.Context, question string) (string, error) {
	e.mu.Lock()
	h := e.human
	e.mu.Unlock()
	if h == nil {
		return "", errors.New("env: no human io configured")
	}
	rsp, err := h.Ask(ctx, question)
	if err != nil {
		return "", err
	}
	return "Human response: " + rsp, nil
}

// ReplyToHuman acknowledges a reply sent to the human. The reply itself
// reaches the human through history, not through a mailbox.
func (e *Environment) ReplyToHuman(_ context.Context, _ string) string {
	return "SUCCESS, human has received your reply. Refrain from resending duplicate messages."
}

// LatestRequirement returns the most recent user requirement in history, or
// ErrNoRequirement when none exists.
func (e *Environment) LatestRequirement() (*comms.Message, error) {
	var found *comms.Message
	for _, m := range e.history.Get(0) {
		if m.CauseBy == comms.TagUserRequirement {
			found = m
		}
	}
	if found == nil {
		return nil, ErrNoRequirement
	}
	return found, nil
}
