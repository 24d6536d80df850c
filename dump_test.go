package arkhe_test

import (
	"strconv"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/arkhe-engine/arkhe"
	"github.com/arkhe-engine/arkhe/assert"
	"github.com/arkhe-engine/arkhe/component"
	"github.com/arkhe-engine/arkhe/cql"
	"github.com/arkhe-engine/arkhe/filter"
	"github.com/arkhe-engine/arkhe/types"
)

func TestComponentJSON(t *testing.T) {
	world := arkhe.NewEntityManager()
	h := addEntityWith(t, world, withA(2.5))

	raw, err := world.ComponentJSON(h, component.ID[ComponentA]())
	assert.NilError(t, err)

	var decoded ComponentA
	assert.NilError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, decoded.D, 2.5)

	_, err = world.ComponentJSON(h, component.ID[ComponentB]())
	assert.ErrorIs(t, err, arkhe.ErrMissingComponent)
}

func TestDumpJSONListsEveryLiveEntity(t *testing.T) {
	world := arkhe.NewEntityManager()
	h1 := addEntityWith(t, world, withA(1))
	h2 := addEntityWith(t, world, withB("two"))

	raw, err := world.DumpJSON()
	assert.NilError(t, err)

	var dump map[string]map[string]json.RawMessage
	assert.NilError(t, json.Unmarshal(raw, &dump))
	assert.Len(t, dump, 2)

	first := dump[strconv.FormatUint(h1.ID(), 10)]
	var a ComponentA
	assert.NilError(t, json.Unmarshal(first["arkhe_test.component_a"], &a))
	assert.Equal(t, a.D, 1.0)

	second := dump[strconv.FormatUint(h2.ID(), 10)]
	var b ComponentB
	assert.NilError(t, json.Unmarshal(second["arkhe_test.component_b"], &b))
	assert.Equal(t, b.Str, "two")
}

func TestFindArchetypesWithFilterAndCQL(t *testing.T) {
	world := arkhe.NewEntityManager()
	addEntityWith(t, world, withA(1))
	addEntityWith(t, world, withA(2), withB("x"))

	found := world.FindArchetypes(filter.Contains(component.ID[ComponentA]()))
	assert.Len(t, found, 2)

	parsed, err := cql.Parse(
		"CONTAINS(component_a) & !CONTAINS(component_b)",
		func(componentName string) (types.ComponentID, error) {
			id, ok := component.IDByName("arkhe_test." + componentName)
			if !ok {
				return 0, eris.Errorf("unknown component %q", componentName)
			}
			return id, nil
		},
	)
	assert.NilError(t, err)

	onlyA := world.FindArchetypes(parsed)
	assert.Len(t, onlyA, 1)
}
