package comms

import (
	"encoding/json"
	"sort"
)

// Set is an unordered collection of agent names. It marshals as a sorted JSON
// array so transcripts stay stable.
type Set map[string]struct{}

// NewSet builds a set from the given names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Add inserts a name.
func (s Set) Add(name string) { s[name] = struct{}{} }

// Has reports membership.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int { return len(s) }

// Only reports whether the set contains exactly the given name.
func (s Set) Only(name string) bool {
	return len(s) == 1 && s.Has(name)
}

// Values returns the members in sorted order.
func (s Set) Values() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy. A nil set clones to an empty set, so
// callers never observe a null recipient list.
func (s Set) Clone() Set {
	cp := make(Set, len(s))
	for n := range s {
		cp[n] = struct{}{}
	}
	return cp
}

// MarshalJSON encodes the set as a sorted array of names.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON decodes an array of names.
func (s *Set) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = NewSet(names...)
	return nil
}
