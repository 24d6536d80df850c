package storage

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/arkhe-engine/arkhe/types"
)

// ArchetypeStore owns every archetype, keyed two ways: by ArchetypeID for
// direct access and by TypeSet for lookup during structural changes.
//
// Archetypes are held behind pointers so that references acquired before an
// insertion stay valid afterwards: a query may be iterating an archetype
// while a deferred mutation creates new ones.
type ArchetypeStore struct {
	byKey     []*Archetype
	byTypeSet map[string]types.ArchetypeID
}

// NewArchetypeStore creates a store holding only the empty archetype, at key
// zero.
func NewArchetypeStore() *ArchetypeStore {
	store := &ArchetypeStore{
		byTypeSet: make(map[string]types.ArchetypeID),
	}
	empty := NewArchetype(types.MakeTypeSet(), nil)
	store.insert(empty)
	return store
}

// GetEmpty returns the empty archetype.
func (s *ArchetypeStore) GetEmpty() *Archetype {
	return s.byKey[types.EmptyArchetypeID]
}

// Get returns the archetype stored at key. The reference stays valid across
// later insertions.
func (s *ArchetypeStore) Get(key types.ArchetypeID) *Archetype {
	return s.byKey[key]
}

// KeyOf returns the key of the archetype for the exact set, or
// ErrArchetypeNotFound.
func (s *ArchetypeStore) KeyOf(typeSet types.TypeSet) (types.ArchetypeID, error) {
	if key, ok := s.byTypeSet[typeSet.Key()]; ok {
		return key, nil
	}
	return types.InvalidArchetypeID, eris.Wrapf(ErrArchetypeNotFound, "set %q", typeSet.Key())
}

// MakeIfAbsent returns the key of the archetype for typeSet, calling makeFn
// to construct it if the set is new. The second return reports whether an
// insertion happened, so the caller can offer the newcomer to query backends.
func (s *ArchetypeStore) MakeIfAbsent(typeSet types.TypeSet, makeFn func() *Archetype) (types.ArchetypeID, bool) {
	if key, ok := s.byTypeSet[typeSet.Key()]; ok {
		return key, false
	}
	archetype := makeFn()
	if !archetype.TypeSet().Equal(typeSet) {
		panic(eris.Errorf(
			"constructed archetype set %q does not match requested set %q",
			archetype.TypeSet().Key(), typeSet.Key(),
		))
	}
	key := s.insert(archetype)
	log.Debug().Int("archetype_id", int(key)).Str("type_set", typeSet.Key()).Msg("archetype created")
	return key, true
}

// Count returns the number of archetypes in the store.
func (s *ArchetypeStore) Count() int {
	return len(s.byKey)
}

// ForEach visits every archetype in insertion order.
func (s *ArchetypeStore) ForEach(visit func(key types.ArchetypeID, archetype *Archetype)) {
	for i, archetype := range s.byKey {
		visit(types.ArchetypeID(i), archetype)
	}
}

// Clone returns a deep copy of the store and every archetype in it.
func (s *ArchetypeStore) Clone() *ArchetypeStore {
	cloned := &ArchetypeStore{
		byKey:     make([]*Archetype, len(s.byKey)),
		byTypeSet: make(map[string]types.ArchetypeID, len(s.byTypeSet)),
	}
	for i, archetype := range s.byKey {
		cloned.byKey[i] = archetype.Clone()
	}
	for key, id := range s.byTypeSet {
		cloned.byTypeSet[key] = id
	}
	return cloned
}

func (s *ArchetypeStore) insert(archetype *Archetype) types.ArchetypeID {
	key := types.ArchetypeID(len(s.byKey))
	archetype.id = key
	s.byKey = append(s.byKey, archetype)
	s.byTypeSet[archetype.TypeSet().Key()] = key
	return key
}
