package env

import (
	"context"
	"log/slog"

	"github.com/atelier-ai/atelier/agent"
)

// Budget caps a run. Zero values mean unlimited. Hitting a cap is a normal
// termination, not an error: the loop exits and leaves state as-is, safe to
// resume with another Run call.
type Budget struct {
	MaxRounds   int // full passes over the roster
	MaxMessages int // total messages accepted by PublishMessage
}

// Exhausted reports whether the budget is spent after the given progress.
func (b Budget) Exhausted(rounds, published int) bool {
	if b.MaxRounds > 0 && rounds >= b.MaxRounds {
		return true
	}
	if b.MaxMessages > 0 && published >= b.MaxMessages {
		return true
	}
	return false
}

// IsIdle reports whether every agent is idle with an empty queue.
func (e *Environment) IsIdle() bool {
	for _, rt := range e.Roster() {
		if !rt.Idle() || rt.Mailbox().Pending() > 0 {
			return false
		}
	}
	return true
}

// Run drives the cooperative loop: one turn is one agent draining its queue
// through its decision function, with every produced message routed and
// recorded before the next agent moves. Returns the number of completed
// rounds. The loop ends when the roster is fully idle, the budget is
// exhausted, or the context is cancelled; a decision-function error aborts
// the run and is returned to the caller.
func (e *Environment) Run(ctx context.Context, budget Budget) (int, error) {
	rounds := 0
	for {
		if err := ctx.Err(); err != nil {
			return rounds, err
		}
		if e.IsIdle() || budget.Exhausted(rounds, e.Published()) {
			return rounds, nil
		}
		rounds++

		for _, rt := range e.Roster() {
			if rt.Idle() {
				continue
			}
			out, err := rt.Act(ctx)
			if err != nil {
				return rounds, err
			}
			for _, msg := range out {
				if budget.MaxMessages > 0 && e.Published() >= budget.MaxMessages {
					e.logger.Info("message budget exhausted",
						slog.Int("published", e.Published()))
					return rounds, nil
				}
				e.PublishMessage(msg, e.publishOptsFor(rt))
			}
		}
	}
}

// publishOptsFor marks messages released by the team leader so the routing
// rules can recognize them.
func (e *Environment) publishOptsFor(rt *agent.Runtime) PublishOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.leader != nil && rt == e.leader {
		return PublishOptions{Publicer: e.leader.Identity().Profile()}
	}
	return PublishOptions{}
}
