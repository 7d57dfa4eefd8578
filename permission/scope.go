package permission

import (
	"sort"
	"strings"
)

// Wildcard is the scope that grants every other scope.
const Wildcard = "*"

// Set is a parsed permission claim. The zero value grants nothing.
type Set struct {
	scopes map[string]struct{}
}

// Parse splits a permission claim into scopes. Empty entries are dropped.
func Parse(claim string) Set {
	fields := strings.FieldsFunc(claim, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return Set{}
	}
	s := Set{scopes: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		s.scopes[f] = struct{}{}
	}
	return s
}

// Contains reports whether scope appears literally in the set.
func (s Set) Contains(scope string) bool {
	_, ok := s.scopes[scope]
	return ok
}

// Has reports whether the set grants scope, honoring trailing-"*" wildcards.
func (s Set) Has(scope string) bool {
	if scope == "" || len(s.scopes) == 0 {
		return false
	}
	if s.Contains(scope) || s.Contains(Wildcard) {
		return true
	}
	for granted := range s.scopes {
		if !strings.HasSuffix(granted, Wildcard) {
			continue
		}
		if strings.HasPrefix(scope, strings.TrimSuffix(granted, Wildcard)) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct scopes.
func (s Set) Len() int {
	return len(s.scopes)
}

// Scopes returns the scopes sorted.
func (s Set) Scopes() []string {
	out := make([]string, 0, len(s.scopes))
	for scope := range s.scopes {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}

// String re-encodes the set as a space separated claim.
func (s Set) String() string {
	return strings.Join(s.Scopes(), " ")
}
