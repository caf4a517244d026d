// Package env implements the environment: the central bus holding the agent
// roster and conversation history, the routing of every published message,
// and the cooperative driver loop.
package env

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/atelier-ai/atelier/agent"
	"github.com/atelier-ai/atelier/comms"
	"github.com/atelier-ai/atelier/plan"
)

// Environment coordinates a team of role-agents. It is the single writer of
// the history log, the direct-chat set, and every mailbox's inbound side; all
// publish operations are serialized by its mutex.
type Environment struct {
	mu sync.Mutex

	roster []*agent.Runtime
	byName map[string]*agent.Runtime
	leader *agent.Runtime

	history    *comms.History
	directChat map[string]struct{}

	policy      RoutingPolicy
	allowBypass bool

	plan       *plan.Plan
	transcript *comms.TranscriptStore
	human      HumanIO
	logger     *slog.Logger
	onPublish  func(*comms.Message)

	published int // messages accepted by PublishMessage, for budget checks
}

// New creates an empty environment with the default SOP routing policy.
func New(logger *slog.Logger) *Environment {
	if logger == nil {
		logger = slog.Default()
	}
	return &Environment{
		byName:     make(map[string]*agent.Runtime),
		history:    comms.NewHistory(),
		directChat: make(map[string]struct{}),
		policy:     SOPPolicy{},
		logger:     logger,
	}
}

// SetPolicy replaces the routing policy.
func (e *Environment) SetPolicy(p RoutingPolicy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policy = p
}

// SetAllowBypassTeamLeader toggles the SOP fast path. When false the team
// leader fully mediates routing.
func (e *Environment) SetAllowBypassTeamLeader(allow bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.allowBypass = allow
}

// SetPlan attaches the team leader's plan, enabling the fast path's direct
// finish-current-task transition.
func (e *Environment) SetPlan(p *plan.Plan) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plan = p
}

// SetTranscript attaches a persistent archive; every routed message is
// appended to it alongside the in-memory history.
func (e *Environment) SetTranscript(s *comms.TranscriptStore) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transcript = s
}

// SetOnPublish registers a hook invoked for every message recorded to
// history, including messages agents produce inside Run. The hook runs with
// the environment lock held and must not call back into the environment.
func (e *Environment) SetOnPublish(fn func(*comms.Message)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPublish = fn
}

// SetHumanIO attaches the blocking human-input collaborator.
func (e *Environment) SetHumanIO(h HumanIO) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.human = h
}

// AddAgent adds a runtime to the roster. The first (and only) agent with the
// team-leader kind becomes the designated mediator.
func (e *Environment) AddAgent(rt *agent.Runtime) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := rt.Name()
	if _, dup := e.byName[name]; dup {
		return fmt.Errorf("env: duplicate agent name %q", name)
	}
	if rt.Identity().Kind == agent.KindTeamLeader {
		if e.leader != nil {
			return fmt.Errorf("env: team leader already set (%s)", e.leader.Name())
		}
		e.leader = rt
	}
	e.byName[name] = rt
	e.roster = append(e.roster, rt)
	return nil
}

// Role returns the runtime for the named agent, or nil.
func (e *Environment) Role(name string) *agent.Runtime {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.byName[name]
}

// Roster returns the runtimes in registration order.
func (e *Environment) Roster() []*agent.Runtime {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*agent.Runtime, len(e.roster))
	copy(out, e.roster)
	return out
}

// History returns the shared append-only history log.
func (e *Environment) History() *comms.History { return e.history }

// EnterDirectChat marks an agent as awaiting a direct reply to the human,
// bypassing the team leader for its next message. Only the environment's
// routing calls this; agents never touch the set.
func (e *Environment) EnterDirectChat(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.directChat[name] = struct{}{}
}

// ExitDirectChat removes an agent from the direct-chat set.
func (e *Environment) ExitDirectChat(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.directChat, name)
}

// InDirectChat reports whether the named agent is mid direct chat.
func (e *Environment) InDirectChat(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.directChat[name]
	return ok
}

// PublishMessage routes one message. It always returns true: delivery is
// best-effort and unroutable messages are dropped, but the (possibly
// rewritten) message is appended to history exactly once regardless of the
// routing outcome.
func (e *Environment) PublishMessage(msg *comms.Message, opts PublishOptions) bool {
	// Multi-modal side effect: runs once, before any routing decision.
	comms.AttachImages(msg)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.published++

	if strings.TrimSpace(msg.Content) == "" {
		// Malformed; recorded but never delivered. An empty direct-chat
		// reply still closes the side channel so the sender cannot get
		// stuck in it.
		delete(e.directChat, msg.SentFrom)
		e.record(msg)
		return true
	}

	d := e.policy.Decide(msg, opts, view{e})
	e.apply(d)
	return true
}

// Published returns the number of messages accepted so far.
func (e *Environment) Published() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.published
}

// apply executes a routing decision: one history append, then fanout and
// state changes. Caller holds e.mu.
func (e *Environment) apply(d Decision) {
	e.record(d.Message)

	for _, name := range d.EnterDirect {
		e.directChat[name] = struct{}{}
	}
	if d.ExitDirect != "" {
		delete(e.directChat, d.ExitDirect)
	}

	switch d.Action {
	case ActionSuppress:
	case ActionDeliver, ActionDeliverToLeader:
		for _, name := range d.Recipients {
			rt := e.byName[name]
			if rt == nil {
				// Unknown recipient: dropped silently per contract.
				continue
			}
			rt.Put(d.Message)
		}
	}

	if d.FinishTask {
		// Documented exception to single-writer mailbox discipline: the bus
		// notifies the leader and advances its plan without a message-driven
		// trigger.
		if d.LeaderNote != nil && e.leader != nil {
			e.leader.Put(d.LeaderNote)
		}
		if e.plan != nil {
			if err := e.plan.FinishCurrent(d.Message.Content); err != nil {
				e.logger.Error("finish current task", slog.Any("err", err))
			}
		}
	}
}

// record appends to the in-memory history and, when configured, the
// persistent transcript. Caller holds e.mu.
func (e *Environment) record(msg *comms.Message) {
	e.history.Add(msg)
	if e.transcript != nil {
		if err := e.transcript.Append(msg); err != nil {
			e.logger.Error("archive message", slog.String("id", msg.ID), slog.Any("err", err))
		}
	}
	if e.onPublish != nil {
		e.onPublish(msg)
	}
}

// view adapts the environment to the policy's read-only View. All methods
// run with e.mu already held by PublishMessage.
type view struct{ e *Environment }

func (v view) Leader() agent.Identity {
	if v.e.leader == nil {
		return agent.Identity{}
	}
	return v.e.leader.Identity()
}

func (v view) AllowBypassTeamLeader() bool { return v.e.allowBypass }

func (v view) IsIdle(name string) bool {
	rt := v.e.byName[name]
	return rt != nil && rt.Idle()
}

func (v view) InDirectChat(name string) bool {
	_, ok := v.e.directChat[name]
	return ok
}

func (v view) KindOf(name string) (agent.RoleKind, bool) {
	rt := v.e.byName[name]
	if rt == nil {
		return "", false
	}
	return rt.Identity().Kind, true
}

func (v view) HasUserRequirement(k int) bool {
	for _, m := range v.e.history.Get(k) {
		if m.CauseBy == comms.TagUserRequirement {
			return true
		}
	}
	return false
}

// Resolve maps a recipient set to roster names: an agent matches by name, by
// profile, or via the "all" broadcast marker.
func (v view) Resolve(recipients comms.Set) []string {
	var names []string
	all := recipients.Has("all")
	for _, rt := range v.e.roster {
		if all || recipients.Has(rt.Name()) || recipients.Has(rt.Identity().Profile()) {
			names = append(names, rt.Name())
		}
	}
	return names
}
