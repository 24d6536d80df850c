package name_test

import (
	"testing"

	"github.com/arkhe-engine/arkhe/name"
)

func TestInternReturnsStableIDs(t *testing.T) {
	a := name.Intern("player")
	b := name.Intern("player")
	c := name.Intern("camera")

	if a != b {
		t.Fatalf("same string must intern to the same id: %d vs %d", a, b)
	}
	if a == c {
		t.Fatal("distinct strings must intern to distinct ids")
	}

	value, ok := name.Lookup(a)
	if !ok || value != "player" {
		t.Fatalf("lookup mismatch: %q %v", value, ok)
	}
}

func TestFindDoesNotIntern(t *testing.T) {
	if _, ok := name.Find("never-interned-sentinel"); ok {
		t.Fatal("find must not report strings that were never interned")
	}
	id := name.Intern("found")
	got, ok := name.Find("found")
	if !ok || got != id {
		t.Fatalf("find mismatch: %d %v", got, ok)
	}
}

func TestUnsetNeverResolves(t *testing.T) {
	if _, ok := name.Lookup(name.Unset); ok {
		t.Fatal("the unset id must not resolve")
	}
}
