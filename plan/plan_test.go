package plan

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "plan.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPlan_AddAndCurrent(t *testing.T) {
	p := New(newTestStore(t))

	if _, err := p.Current(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Current on empty plan: err = %v, want ErrNotFound", err)
	}

	first, err := p.Add("write the PRD", "requirements doc", "Alice")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := p.Add("design the system", "", "Bob"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	cur, err := p.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.ID != first.ID {
		t.Errorf("current = %q, want first step %q", cur.Title, first.Title)
	}
	if cur.Status != StatusPending {
		t.Errorf("status = %s, want pending", cur.Status)
	}
}

func TestPlan_FinishCurrentAdvances(t *testing.T) {
	p := New(newTestStore(t))
	if _, err := p.Add("step one", "", "Alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add("step two", "", "Bob"); err != nil {
		t.Fatal(err)
	}

	if err := p.FinishCurrent("one done"); err != nil {
		t.Fatalf("FinishCurrent: %v", err)
	}
	cur, err := p.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.Title != "step two" {
		t.Errorf("current = %q, want step two", cur.Title)
	}

	if err := p.FinishCurrent("two done"); err != nil {
		t.Fatalf("FinishCurrent: %v", err)
	}
	if _, err := p.Current(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Current after finishing all: err = %v, want ErrNotFound", err)
	}

	steps, err := p.Steps()
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range steps {
		if s.Status != StatusCompleted {
			t.Errorf("step %d status = %s, want completed", i, s.Status)
		}
		if s.CompletedAt == nil {
			t.Errorf("step %d has no completion time", i)
		}
	}
	if steps[0].Result != "one done" || steps[1].Result != "two done" {
		t.Errorf("results = %q, %q", steps[0].Result, steps[1].Result)
	}
}

func TestPlan_FinishCurrentEmptyIsNoop(t *testing.T) {
	p := New(newTestStore(t))
	if err := p.FinishCurrent("nothing to finish"); err != nil {
		t.Errorf("FinishCurrent on empty plan: %v", err)
	}
}

func TestStore_AppendAssignsSequence(t *testing.T) {
	store := newTestStore(t)

	for i, title := range []string{"a", "b", "c"} {
		st := &Step{Title: title, Status: StatusPending}
		if _, err := store.Append(st); err != nil {
			t.Fatalf("Append %q: %v", title, err)
		}
		if st.Seq != i+1 {
			t.Errorf("seq for %q = %d, want %d", title, st.Seq, i+1)
		}
		if st.ID == "" {
			t.Errorf("no ID assigned for %q", title)
		}
	}

	steps, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("len = %d, want 3", len(steps))
	}
	for i, want := range []string{"a", "b", "c"} {
		if steps[i].Title != want {
			t.Errorf("steps[%d] = %q, want %q", i, steps[i].Title, want)
		}
	}
}

func TestStore_GetAndUpdate(t *testing.T) {
	store := newTestStore(t)

	st := &Step{Title: "write tests", Owner: "Edward", Status: StatusPending}
	id, err := store.Append(st)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "write tests" || got.Owner != "Edward" {
		t.Errorf("got %+v", got)
	}

	got.Status = StatusInProgress
	if err := store.Update(got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, err := store.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if again.Status != StatusInProgress {
		t.Errorf("status = %s, want in_progress", again.Status)
	}
	if !again.UpdatedAt.After(again.CreatedAt) && !again.UpdatedAt.Equal(again.CreatedAt) {
		t.Error("UpdatedAt went backwards")
	}
}

func TestStore_NotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get: err = %v, want ErrNotFound", err)
	}
	if err := store.Update(&Step{ID: "missing", Status: StatusPending}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update: err = %v, want ErrNotFound", err)
	}
}
