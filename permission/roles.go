package permission

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Roles is the set of role names the account service accepts.
//
// It starts empty and unloaded. [Roles.Load] replaces the contents with the list returned by
// the service; until then [Roles.Allows] accepts any non-empty name so a missing role list
// never blocks an administrator.
type Roles struct {
	mu     sync.RWMutex
	names  map[string]struct{}
	loaded bool
}

// NewRoles returns an empty, unloaded role set.
func NewRoles() *Roles {
	return &Roles{names: make(map[string]struct{})}
}

// Load replaces the known role names. Blank or duplicate names are rejected.
func (r *Roles) Load(names []string) error {
	next := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return errors.New("role name cannot be empty")
		}
		if _, dup := next[n]; dup {
			return errors.New("role already registered")
		}
		next[n] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = next
	r.loaded = true
	return nil
}

// Loaded reports whether a role list has been loaded.
func (r *Roles) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Has reports whether name is a known role.
func (r *Roles) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

// Allows reports whether name may be assigned: any non-empty name before Load, only known
// names after.
func (r *Roles) Allows(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return true
	}
	_, ok := r.names[name]
	return ok
}

// Names returns the known role names sorted.
func (r *Roles) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Reset forgets the loaded list.
func (r *Roles) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = make(map[string]struct{})
	r.loaded = false
}
