package comms

import (
	"os"
	"testing"
)

func newTestStore(t *testing.T) *TranscriptStore {
	t.Helper()
	f, err := os.CreateTemp("", "atelier-transcript-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()
	path := f.Name()
	t.Cleanup(func() { os.Remove(path) })

	store, err := NewTranscriptStore(path)
	if err != nil {
		t.Fatalf("NewTranscriptStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTranscriptStore_AppendAndRecent(t *testing.T) {
	store := newTestStore(t)

	msg := NewMessage("build a calculator", RoleUser, "Mike")
	msg.SentFrom = ""
	msg.CauseBy = TagUserRequirement
	msg.AddMetadata("origin", "api")

	if err := store.Append(msg); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Recent returned %d messages, want 1", len(got))
	}
	m := got[0]
	if m.ID != msg.ID {
		t.Errorf("ID = %q, want %q", m.ID, msg.ID)
	}
	if m.Content != "build a calculator" {
		t.Errorf("Content = %q", m.Content)
	}
	if m.CauseBy != TagUserRequirement {
		t.Errorf("CauseBy = %q, want %q", m.CauseBy, TagUserRequirement)
	}
	if !m.SendTo.Has("Mike") {
		t.Errorf("SendTo = %v, want Mike", m.SendTo.Values())
	}
	if m.Metadata["origin"] != "api" {
		t.Errorf("Metadata = %v", m.Metadata)
	}
}

func TestTranscriptStore_AppendIdempotent(t *testing.T) {
	store := newTestStore(t)

	msg := NewMessage("hello", RoleAssistant)
	if err := store.Append(msg); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(msg); err != nil {
		t.Fatalf("Append duplicate: %v", err)
	}

	got, err := store.Recent(0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("duplicate append stored %d rows, want 1", len(got))
	}
}

func TestTranscriptStore_RecentOrderAndLimit(t *testing.T) {
	store := newTestStore(t)

	for _, content := range []string{"one", "two", "three"} {
		if err := store.Append(NewMessage(content, RoleAssistant)); err != nil {
			t.Fatalf("Append %s: %v", content, err)
		}
	}

	got, err := store.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d messages", len(got))
	}
	if got[0].Content != "two" || got[1].Content != "three" {
		t.Errorf("Recent(2) = [%s, %s], want chronological tail", got[0].Content, got[1].Content)
	}
}
