package arkhe

import (
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/arkhe-engine/arkhe/component"
	"github.com/arkhe-engine/arkhe/filter"
	"github.com/arkhe-engine/arkhe/storage"
	"github.com/arkhe-engine/arkhe/types"
)

// FindArchetypes returns the keys of every archetype accepted by the filter,
// in insertion order.
func (m *EntityManager) FindArchetypes(f filter.ComponentFilter) []types.ArchetypeID {
	var found []types.ArchetypeID
	m.state.archetypes.ForEach(func(key types.ArchetypeID, archetype *storage.Archetype) {
		if f.MatchesComponents(archetype.TypeSet()) {
			found = append(found, key)
		}
	})
	return found
}

// ComponentJSON returns the JSON encoding of one component on the entity
// behind the handle. Debug helper.
func (m *EntityManager) ComponentJSON(h Handle, id types.ComponentID) (json.RawMessage, error) {
	rec, ok := m.state.record(h.key)
	if !ok {
		return nil, eris.Wrap(ErrInvalidHandle, "component dump through a stale handle")
	}
	archetype := m.state.archetypes.Get(rec.archetype)
	col, err := archetype.ColumnByID(id)
	if err != nil {
		return nil, err
	}
	return col.RowJSON(rec.row)
}

// DumpJSON renders every live entity as a map from entity index to component
// name to value. Intended for debugging and tooling; the encoding is not a
// persistence format.
func (m *EntityManager) DumpJSON() (json.RawMessage, error) {
	world := make(map[string]map[string]json.RawMessage)
	var dumpErr error
	m.ForEachHandle(func(h Handle) {
		if dumpErr != nil {
			return
		}
		rec, _ := m.state.record(h.key)
		archetype := m.state.archetypes.Get(rec.archetype)
		components := make(map[string]json.RawMessage, archetype.TypeSet().Len())
		for i, id := range archetype.TypeSet().IDs() {
			raw, err := archetype.Column(i).RowJSON(rec.row)
			if err != nil {
				dumpErr = err
				return
			}
			components[component.NameOf(id)] = raw
		}
		world[strconv.FormatUint(h.ID(), 10)] = components
	})
	if dumpErr != nil {
		return nil, dumpErr
	}
	bz, err := json.Marshal(world)
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode world dump")
	}
	return bz, nil
}
