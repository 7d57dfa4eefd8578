package permission

import (
	"reflect"
	"testing"
)

func TestParseSplitsOnSpacesAndCommas(t *testing.T) {
	s := Parse("users:read, users:write  admin:*,,")
	want := []string{"admin:*", "users:read", "users:write"}
	if got := s.Scopes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if s.String() != "admin:* users:read users:write" {
		t.Fatalf("unexpected string %q", s.String())
	}
}

func TestHasWildcards(t *testing.T) {
	s := Parse("users:* reports:read")
	cases := map[string]bool{
		"users:read":    true,
		"users:delete":  true,
		"reports:read":  true,
		"reports:write": false,
		"":              false,
		"admin":         false,
	}
	for scope, want := range cases {
		if got := s.Has(scope); got != want {
			t.Fatalf("Has(%q) = %v, want %v", scope, got, want)
		}
	}

	root := Parse(Wildcard)
	if !root.Has("anything:at:all") {
		t.Fatal("bare wildcard must grant every scope")
	}
	if !root.Contains(Wildcard) {
		t.Fatal("expected literal wildcard to be contained")
	}
}

func TestZeroSetGrantsNothing(t *testing.T) {
	var s Set
	if s.Has("users:read") || s.Contains(Wildcard) || s.Len() != 0 {
		t.Fatal("zero set must grant nothing")
	}
	if Parse("   ").Len() != 0 {
		t.Fatal("blank claim must parse to empty set")
	}
}

func TestRolesLoadAndAllow(t *testing.T) {
	r := NewRoles()
	if r.Loaded() {
		t.Fatal("new role set must be unloaded")
	}
	if !r.Allows("anything") {
		t.Fatal("unloaded set must allow any non-empty role")
	}
	if r.Allows(" ") {
		t.Fatal("blank role must never be allowed")
	}

	if err := r.Load([]string{"user", "admin"}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !r.Allows("admin") || r.Allows("root") {
		t.Fatal("loaded set must allow only known roles")
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"admin", "user"}) {
		t.Fatalf("unexpected names %v", got)
	}

	if err := r.Load([]string{"a", "a"}); err == nil {
		t.Fatal("expected duplicate role to be rejected")
	}
	if !r.Has("admin") {
		t.Fatal("failed load must not replace the previous list")
	}

	r.Reset()
	if r.Loaded() || r.Has("admin") {
		t.Fatal("reset must forget the list")
	}
}

func FuzzParse(f *testing.F) {
	f.Add("users:read users:write")
	f.Add("*")
	f.Add(",,, ,")
	f.Add("a:*,b")
	f.Fuzz(func(t *testing.T, claim string) {
		s := Parse(claim)
		for _, scope := range s.Scopes() {
			if !s.Has(scope) {
				t.Fatalf("parsed scope %q not granted", scope)
			}
		}
	})
}
