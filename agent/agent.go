// Package agent defines role identities, per-agent mailboxes, and the runtime
// that drives an agent's external decision function.
package agent

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RoleKind is the closed set of role identities the environment routes by.
// Routing behavior is keyed on kinds, not on free-form profile strings, and
// kinds are validated when an identity is constructed.
type RoleKind string

const (
	KindTeamLeader     RoleKind = "team_leader"
	KindProductManager RoleKind = "product_manager"
	KindArchitect      RoleKind = "architect"
	KindProjectManager RoleKind = "project_manager"
	KindEngineer       RoleKind = "engineer"
	KindQAEngineer     RoleKind = "qa_engineer"
	KindDataAnalyst    RoleKind = "data_analyst"
)

// profileByKind maps each kind to its canonical human-readable profile.
var profileByKind = map[RoleKind]string{
	KindTeamLeader:     "Team Leader",
	KindProductManager: "Product Manager",
	KindArchitect:      "Architect",
	KindProjectManager: "Project Manager",
	KindEngineer:       "Engineer",
	KindQAEngineer:     "QA Engineer",
	KindDataAnalyst:    "Data Analyst",
}

var titleCaser = cases.Title(language.English)

// kindByProfile is keyed by the title-cased profile so lookups and canonical
// profiles go through the same transform. Title casing folds acronyms too
// ("QA Engineer" and "qa engineer" both key as "Qa Engineer"), so the map key
// is not necessarily the canonical display string.
var kindByProfile = func() map[string]RoleKind {
	m := make(map[string]RoleKind, len(profileByKind))
	for k, p := range profileByKind {
		m[titleCaser.String(p)] = k
	}
	return m
}()

// ParseKind resolves a profile string to its RoleKind. Matching is case
// insensitive ("product manager" and "Product Manager" are the same role).
func ParseKind(profile string) (RoleKind, error) {
	if k, ok := kindByProfile[titleCaser.String(profile)]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown role profile %q", profile)
}

// Profile returns the canonical profile string for the kind.
func (k RoleKind) Profile() string { return profileByKind[k] }

// Valid reports whether k is one of the declared kinds.
func (k RoleKind) Valid() bool {
	_, ok := profileByKind[k]
	return ok
}

// PlanningRole reports whether the kind is one of the canonical planning
// roles of the software SOP (the only senders eligible for the fast path).
func (k RoleKind) PlanningRole() bool {
	return k == KindProductManager || k == KindArchitect || k == KindProjectManager
}

// Identity names an agent: a unique name plus a validated role kind.
type Identity struct {
	Name string
	Kind RoleKind
}

// NewIdentity builds an identity from a name and profile string, rejecting
// unknown profiles up front rather than at routing time.
func NewIdentity(name, profile string) (Identity, error) {
	if name == "" {
		return Identity{}, fmt.Errorf("agent name must not be empty")
	}
	kind, err := ParseKind(profile)
	if err != nil {
		return Identity{}, fmt.Errorf("agent %s: %w", name, err)
	}
	return Identity{Name: name, Kind: kind}, nil
}

// Profile returns the canonical profile of the identity's kind.
func (id Identity) Profile() string { return id.Kind.Profile() }
