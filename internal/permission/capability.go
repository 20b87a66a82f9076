// Package permission implements the capability gate every business operation passes first.
package permission

import (
	"slices"
	"strings"
)

type Capability string

const (
	Read           Capability = "READ"
	Write          Capability = "WRITE"
	Delete         Capability = "DELETE"
	Update         Capability = "UPDATE"
	ViewFunding    Capability = "VIEW_FUNDING"
	ManageTeam     Capability = "MANAGE_TEAM"
	ManageSettings Capability = "MANAGE_SETTINGS"
)

var all = []Capability{Read, Write, Delete, Update, ViewFunding, ManageTeam, ManageSettings}

// All returns the full vocabulary. Organization creators receive every capability.
func All() []Capability {
	return slices.Clone(all)
}

func Parse(raw string) (Capability, bool) {
	c := Capability(strings.ToUpper(strings.TrimSpace(raw)))
	return c, slices.Contains(all, c)
}

// Set is an unordered collection of unique capabilities.
type Set map[Capability]struct{}

func NewSet(caps ...Capability) Set {
	s := make(Set, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

func (s Set) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Intersects reports whether s holds at least one of required.
func (s Set) Intersects(required ...Capability) bool {
	for _, c := range required {
		if s.Has(c) {
			return true
		}
	}
	return false
}

// Sorted returns the members in vocabulary order.
func (s Set) Sorted() []Capability {
	out := make([]Capability, 0, len(s))
	for _, c := range all {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
