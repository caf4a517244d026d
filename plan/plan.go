// Package plan tracks the team leader's ordered plan of steps and persists it
// across runs.
package plan

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested step (or the current step) does
// not exist. Callers that require an upstream step treat this as fatal.
var ErrNotFound = errors.New("plan: step not found")

// Status represents the lifecycle state of a plan step.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Step is one unit of the leader's plan.
type Step struct {
	ID          string     `json:"id"`
	Seq         int        `json:"seq"` // position within the plan
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Owner       string     `json:"owner,omitempty"` // agent name responsible
	Status      Status     `json:"status"`
	Result      string     `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Store persists and retrieves plan steps.
type Store interface {
	// Append persists a new step at the end of the plan and returns its ID.
	Append(s *Step) (string, error)

	// Get retrieves a step by ID.
	Get(id string) (*Step, error)

	// Update saves changes to an existing step.
	Update(s *Step) error

	// List returns all steps in plan order.
	List() ([]*Step, error)
}

// Plan manages the ordered steps for one team, backed by a Store.
type Plan struct {
	store Store
}

// New creates a plan over the given store.
func New(store Store) *Plan {
	return &Plan{store: store}
}

// Add appends a pending step to the plan.
func (p *Plan) Add(title, description, owner string) (*Step, error) {
	s := &Step{
		Title:       title,
		Description: description,
		Owner:       owner,
		Status:      StatusPending,
	}
	if _, err := p.store.Append(s); err != nil {
		return nil, fmt.Errorf("add step: %w", err)
	}
	return s, nil
}

// Current returns the first step that is not completed or failed, i.e. the
// step the team is working on. Returns ErrNotFound when the plan is empty or
// fully finished.
func (p *Plan) Current() (*Step, error) {
	steps, err := p.store.List()
	if err != nil {
		return nil, err
	}
	for _, s := range steps {
		if s.Status == StatusPending || s.Status == StatusInProgress {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

// FinishCurrent marks the current step completed and records its result.
// Finishing an empty or exhausted plan is a no-op: the fast-path routing rule
// may fire before the leader has planned anything.
func (p *Plan) FinishCurrent(result string) error {
	cur, err := p.Current()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	now := time.Now().UTC()
	cur.Status = StatusCompleted
	cur.Result = result
	cur.CompletedAt = &now
	return p.store.Update(cur)
}

// Steps returns all steps in plan order.
func (p *Plan) Steps() ([]*Step, error) {
	return p.store.List()
}
