// Package scripted provides a replayable decision function for tests and
// local demo runs.
package scripted

import (
	"context"

	"github.com/atelier-ai/atelier/comms"
	"github.com/atelier-ai/atelier/provider"
)

// Scripted implements provider.Provider by replaying queued turns in order.
// Each call to Decide returns the next turn; once the script is exhausted the
// agent stays silent.
type Scripted struct {
	turns [][]*comms.Message
	idx   int
}

var _ provider.Provider = (*Scripted)(nil)

// New creates a Scripted provider with the given turns.
func New(turns ...[]*comms.Message) *Scripted {
	return &Scripted{turns: turns}
}

// Say appends a single-message turn with the given content and recipients.
func (s *Scripted) Say(content string, causeBy comms.ActionTag, recipients ...string) *Scripted {
	msg := comms.NewMessage(content, comms.RoleAssistant, recipients...)
	msg.CauseBy = causeBy
	s.turns = append(s.turns, []*comms.Message{msg})
	return s
}

// Name returns the provider identifier.
func (s *Scripted) Name() string { return "scripted" }

// Decide returns the next scripted turn, or nothing once exhausted.
func (s *Scripted) Decide(_ context.Context, _ []*comms.Message) ([]*comms.Message, error) {
	if s.idx >= len(s.turns) {
		return nil, nil
	}
	turn := s.turns[s.idx]
	s.idx++
	return turn, nil
}
