// Package comms defines the message model shared by all role-agents and the
// append-only conversation history the environment maintains for them.
package comms

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the chat role attached to a message. External model APIs
// accept only the three standard values; anything else is coerced to
// RoleAssistant when a message is rewritten for the team leader.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three standard chat roles.
func (r Role) Valid() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// ActionTag identifies which action produced a message. Routing and
// finish-task detection key off these tags.
type ActionTag string

const (
	TagUserRequirement ActionTag = "UserRequirement"
	TagWritePRD        ActionTag = "WritePRD"
	TagWriteDesign     ActionTag = "WriteDesign"
	TagWriteTasks      ActionTag = "WriteTasks"
	TagWriteCode       ActionTag = "WriteCode"
	TagWriteTest       ActionTag = "WriteTest"
	TagSummarizeCode   ActionTag = "SummarizeCode"
	TagChat            ActionTag = "Chat"
)

// NoOne is the sentinel recipient. A message addressed to {NoOne} is recorded
// in history but delivered nowhere.
const NoOne = "no one"

// Reserved metadata keys.
const (
	MetaAgent  = "agent"  // overrides SentFrom in content rewrites
	MetaImages = "images" // base64-encoded images extracted from user content
)

// Message is the unit of communication between agents. Once published it is
// immutable except for the single content/role rewrite the environment may
// perform during routing.
type Message struct {
	ID              string         `json:"id"`
	Content         string         `json:"content"`
	Role            Role           `json:"role"`
	SentFrom        string         `json:"sent_from,omitempty"`
	SendTo          Set            `json:"send_to"`
	CauseBy         ActionTag      `json:"cause_by"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	InstructContent any            `json:"instruct_content,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// NewMessage creates a message with a fresh ID and timestamp. SendTo is never
// nil: with no recipients the message is addressed to nobody.
func NewMessage(content string, role Role, recipients ...string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Content:   content,
		Role:      role,
		SendTo:    NewSet(recipients...),
		CauseBy:   TagChat,
		Timestamp: time.Now().UTC(),
	}
}

// Clone returns a deep copy safe to rewrite without touching the original.
func (m *Message) Clone() *Message {
	cp := *m
	cp.SendTo = m.SendTo.Clone()
	if m.Metadata != nil {
		cp.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// AddMetadata sets a metadata key, allocating the map on first use.
func (m *Message) AddMetadata(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// Sender returns the name used for provenance in content rewrites: the
// MetaAgent metadata entry when present, otherwise SentFrom.
func (m *Message) Sender() string {
	if m.Metadata != nil {
		if v, ok := m.Metadata[MetaAgent].(string); ok && v != "" {
			return v
		}
	}
	return m.SentFrom
}
