package scripted

import (
	"context"
	"testing"

	"github.com/atelier-ai/atelier/comms"
)

func TestScripted_ReplaysTurnsInOrder(t *testing.T) {
	s := New().
		Say("first", comms.TagChat, "Alice").
		Say("second", comms.TagWritePRD, "Bob", "Eve")

	out, err := s.Decide(context.Background(), nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(out) != 1 || out[0].Content != "first" {
		t.Fatalf("turn 1 = %+v", out)
	}
	if !out[0].SendTo.Has("Alice") {
		t.Errorf("turn 1 SendTo = %v", out[0].SendTo.Values())
	}

	out, err = s.Decide(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Content != "second" {
		t.Fatalf("turn 2 = %+v", out)
	}
	if out[0].CauseBy != comms.TagWritePRD {
		t.Errorf("turn 2 cause = %s", out[0].CauseBy)
	}
	if !out[0].SendTo.Has("Bob") || !out[0].SendTo.Has("Eve") {
		t.Errorf("turn 2 SendTo = %v", out[0].SendTo.Values())
	}
}

func TestScripted_SilentWhenExhausted(t *testing.T) {
	s := New().Say("only", comms.TagChat)

	if _, err := s.Decide(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		out, err := s.Decide(context.Background(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if out != nil {
			t.Fatalf("call %d after exhaustion = %+v, want silence", i, out)
		}
	}
}
