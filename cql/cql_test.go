package cql_test

import (
	"testing"

	"github.com/rotisserie/eris"

	"github.com/arkhe-engine/arkhe/cql"
	"github.com/arkhe-engine/arkhe/types"
)

var testComponents = map[string]types.ComponentID{
	"alpha": 1,
	"beta":  2,
	"gamma": 3,
}

func resolve(componentName string) (types.ComponentID, error) {
	id, ok := testComponents[componentName]
	if !ok {
		return 0, eris.Errorf("unknown component %q", componentName)
	}
	return id, nil
}

func mustParse(t *testing.T, text string) func(ids ...types.ComponentID) bool {
	t.Helper()
	f, err := cql.Parse(text, resolve)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return func(ids ...types.ComponentID) bool {
		return f.MatchesComponents(types.MakeTypeSet(ids...))
	}
}

func TestParseContains(t *testing.T) {
	matches := mustParse(t, "CONTAINS(alpha, beta)")

	if !matches(1, 2) || !matches(1, 2, 3) {
		t.Fatal("CONTAINS should match supersets")
	}
	if matches(1) {
		t.Fatal("CONTAINS should reject sets missing a named component")
	}
}

func TestParseExact(t *testing.T) {
	matches := mustParse(t, "EXACT(alpha)")

	if !matches(1) {
		t.Fatal("EXACT should match the precise set")
	}
	if matches(1, 2) {
		t.Fatal("EXACT should reject supersets")
	}
}

func TestParseCombinators(t *testing.T) {
	matches := mustParse(t, "CONTAINS(alpha) & !CONTAINS(gamma)")
	if !matches(1, 2) || matches(1, 3) {
		t.Fatal("& with ! should exclude gamma-bearing sets")
	}

	either := mustParse(t, "EXACT(alpha) | EXACT(beta)")
	if !either(1) || !either(2) || either(1, 2) {
		t.Fatal("| should match either exact set only")
	}

	grouped := mustParse(t, "(CONTAINS(alpha) | CONTAINS(beta)) & ALL()")
	if !grouped(1) || !grouped(2) || grouped(3) {
		t.Fatal("grouping with parentheses should nest correctly")
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := cql.Parse("CONTAINS(delta)", resolve); err == nil {
		t.Fatal("unknown component names must fail to resolve")
	}
	if _, err := cql.Parse("&&&", resolve); err == nil {
		t.Fatal("syntax errors must be reported")
	}
}
