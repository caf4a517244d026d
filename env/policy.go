package env

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/atelier-ai/atelier/agent"
	"github.com/atelier-ai/atelier/comms"
)

// PublishOptions qualifies a publish call.
type PublishOptions struct {
	// UserDefinedRecipient is set when a human explicitly addressed named
	// agents, initiating (or continuing) a direct chat.
	UserDefinedRecipient string

	// Publicer is the profile of the party releasing the message. The driver
	// sets it to the team leader's profile for messages the leader publishes.
	Publicer string
}

// Action is the routing outcome for one message.
type Action int

const (
	// ActionDeliver fans the message out to its resolved recipients.
	ActionDeliver Action = iota
	// ActionDeliverToLeader delivers the (rewritten) message to the team
	// leader's mailbox only.
	ActionDeliverToLeader
	// ActionSuppress records the message in history but delivers it nowhere.
	ActionSuppress
)

// Decision is the pure routing outcome computed before any side effect. The
// environment records Message in history exactly once and then applies the
// rest: mailbox fanout, direct-chat set changes, and the optional
// finish-task transition.
type Decision struct {
	Action     Action
	Message    *comms.Message // possibly rewritten; this is what history records
	Recipients []string       // resolved mailbox owners for ActionDeliver

	EnterDirect []string // agent names entering the direct-chat set
	ExitDirect  string   // agent name leaving the direct-chat set

	// FinishTask asks the environment to invoke the leader's
	// finish-current-task transition directly, with LeaderNote queued to the
	// leader's mailbox out-of-band (no extra history entry).
	FinishTask bool
	LeaderNote *comms.Message
}

// View is the read-only environment state a routing policy may consult.
type View interface {
	Leader() agent.Identity
	AllowBypassTeamLeader() bool
	IsIdle(name string) bool
	InDirectChat(name string) bool
	KindOf(name string) (agent.RoleKind, bool)
	HasUserRequirement(k int) bool
	Resolve(recipients comms.Set) []string
}

// RoutingPolicy decides, for every outgoing message, who receives it. It is
// a pure function of the message, the publish options, and the environment
// view; the environment applies the returned decision.
type RoutingPolicy interface {
	Decide(msg *comms.Message, opts PublishOptions, view View) Decision
}

// SOPPolicy is the default policy: team-leader-mediated routing with a
// direct-chat bypass and an optional fast path for messages flowing within
// the software SOP. Rules are ordered; the first match wins.
type SOPPolicy struct{}

// Decide applies the routing rules in priority order.
func (SOPPolicy) Decide(msg *comms.Message, opts PublishOptions, view View) Decision {
	leader := view.Leader()

	switch {
	case opts.UserDefinedRecipient != "":
		// A human addressed named agents directly. Idle addressees enter the
		// direct-chat set and will reply straight to the human; busy ones
		// get the message as help with their current work.
		var enter []string
		for _, name := range msg.SendTo.Values() {
			if _, known := view.KindOf(name); known && view.IsIdle(name) {
				enter = append(enter, name)
			}
		}
		return Decision{
			Action:      ActionDeliver,
			Message:     msg,
			Recipients:  view.Resolve(msg.SendTo),
			EnterDirect: enter,
		}

	case view.InDirectChat(msg.SentFrom):
		// The direct-chat reply ends the side channel. The human reads it
		// from history; no mailbox sees it.
		return Decision{Action: ActionSuppress, Message: msg, ExitDirect: msg.SentFrom}

	case view.AllowBypassTeamLeader() && messageWithinSoftwareSOP(msg, view) && !view.HasUserRequirement(1):
		// Fast path within the software SOP. A user requirement in the last
		// history entry vetoes it: fresh user input invalidates in-flight
		// routing and forces leader mediation.
		d := Decision{
			Action:     ActionDeliver,
			Message:    msg,
			Recipients: view.Resolve(msg.SendTo),
		}
		if IsSoftwareTaskFinished(msg) {
			d.FinishTask = true
			// The note is a new message, not the routed one: a shared ID
			// would trip the mailbox dedupe if the leader got both.
			note := RewriteForLeader(msg, leader.Name)
			note.ID = uuid.NewString()
			d.LeaderNote = note
		}
		return d

	case opts.Publicer == leader.Profile() || (opts.Publicer != "" && opts.Publicer == leader.Name):
		if msg.SendTo.Only(comms.NoOne) {
			// Dummy message from the leader; recorded but not delivered.
			return Decision{Action: ActionSuppress, Message: msg}
		}
		// The leader already processed this message; release it as-is.
		return Decision{Action: ActionDeliver, Message: msg, Recipients: view.Resolve(msg.SendTo)}

	default:
		// Every other message goes through the team leader.
		rewritten := RewriteForLeader(msg, leader.Name)
		return Decision{
			Action:     ActionDeliverToLeader,
			Message:    rewritten,
			Recipients: []string{leader.Name},
		}
	}
}

// messageWithinSoftwareSOP reports whether the sender is one of the canonical
// planning roles. Engineer and QA can end the SOP, so their messages always
// route through the leader.
func messageWithinSoftwareSOP(msg *comms.Message, view View) bool {
	kind, ok := view.KindOf(msg.SentFrom)
	return ok && kind.PlanningRole()
}

// RewriteForLeader returns a copy of msg prepared for the team leader: the
// role is coerced into the three standard chat roles, provenance is folded
// into the content, and the leader joins the recipient set so consumers who
// filter by the original recipients still see it after the leader processes
// it.
func RewriteForLeader(msg *comms.Message, leaderName string) *comms.Message {
	cp := msg.Clone()
	if !cp.Role.Valid() {
		cp.Role = comms.RoleAssistant
	}
	sender := cp.Sender()
	if sender == "" {
		sender = "User"
	}
	cp.Content = fmt.Sprintf("[Message] from %s to %s: %s",
		sender, strings.Join(msg.SendTo.Values(), ", "), msg.Content)
	cp.SendTo.Add(leaderName)
	return cp
}
