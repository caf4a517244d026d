package comms

import (
	"encoding/json"
	"testing"
)

func TestNewMessage_Defaults(t *testing.T) {
	msg := NewMessage("hello", RoleUser, "Bob")
	if msg.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if msg.SendTo == nil {
		t.Fatal("SendTo must never be nil")
	}
	if !msg.SendTo.Has("Bob") {
		t.Error("expected Bob in SendTo")
	}
	if msg.CauseBy != TagChat {
		t.Errorf("CauseBy = %q, want %q", msg.CauseBy, TagChat)
	}
}

func TestMessage_Clone_Independent(t *testing.T) {
	msg := NewMessage("original", RoleAssistant, "Bob")
	msg.AddMetadata("key", "val")

	cp := msg.Clone()
	cp.Content = "rewritten"
	cp.SendTo.Add("Mike")
	cp.AddMetadata("key", "other")

	if msg.Content != "original" {
		t.Errorf("clone mutated original content: %q", msg.Content)
	}
	if msg.SendTo.Has("Mike") {
		t.Error("clone mutated original SendTo")
	}
	if msg.Metadata["key"] != "val" {
		t.Error("clone mutated original metadata")
	}
}

func TestMessage_Sender_MetadataOverride(t *testing.T) {
	msg := NewMessage("hi", RoleAssistant)
	msg.SentFrom = "Alex"
	if got := msg.Sender(); got != "Alex" {
		t.Errorf("Sender() = %q, want Alex", got)
	}
	msg.AddMetadata(MetaAgent, "SubAgent")
	if got := msg.Sender(); got != "SubAgent" {
		t.Errorf("Sender() = %q, want SubAgent", got)
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleSystem, RoleUser, RoleAssistant} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Role("tool").Valid() {
		t.Error("non-standard role should be invalid")
	}
}

func TestSet_JSONRoundTrip(t *testing.T) {
	s := NewSet("Bob", "Alice")
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["Alice","Bob"]` {
		t.Errorf("marshal = %s, want sorted array", data)
	}

	var back Set
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Has("Bob") || !back.Has("Alice") || back.Len() != 2 {
		t.Errorf("round trip lost members: %v", back.Values())
	}
}

func TestSet_Only(t *testing.T) {
	if !NewSet(NoOne).Only(NoOne) {
		t.Error("single-member set should match Only")
	}
	if NewSet(NoOne, "Bob").Only(NoOne) {
		t.Error("two-member set should not match Only")
	}
	if NewSet().Only(NoOne) {
		t.Error("empty set should not match Only")
	}
}

func TestSet_CloneNilSafe(t *testing.T) {
	var s Set
	cp := s.Clone()
	if cp == nil {
		t.Fatal("clone of nil set must be usable")
	}
	cp.Add("Bob")
	if !cp.Has("Bob") {
		t.Error("expected Bob after Add")
	}
}
