package types

import (
	"sort"
	"strconv"
	"strings"
)

// ComponentID uniquely identifies a component type within the process.
type ComponentID int

// ArchetypeID identifies an archetype inside an ArchetypeStore. Archetypes
// are never removed from a store, so a plain index is a stable key.
type ArchetypeID int

// InvalidArchetypeID marks a record that does not point at any archetype.
const InvalidArchetypeID = ArchetypeID(-1)

// EmptyArchetypeID is the key of the archetype with no components. Every
// store installs it on construction.
const EmptyArchetypeID = ArchetypeID(0)

// Component is the interface that the user needs to implement to create a
// new component type.
type Component interface {
	// Name returns the name of the component.
	Name() string
}

// TypeSet is an ordered set of component ids: sorted, without duplicates.
// Two TypeSets over the same ids compare equal regardless of the order the
// ids were provided in.
type TypeSet struct {
	ids []ComponentID
}

// MakeTypeSet builds a TypeSet from the given ids, sorting and deduplicating.
func MakeTypeSet(ids ...ComponentID) TypeSet {
	sorted := make([]ComponentID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	deduped := sorted[:0]
	for i, id := range sorted {
		if i == 0 || id != sorted[i-1] {
			deduped = append(deduped, id)
		}
	}
	return TypeSet{ids: deduped}
}

// Len returns the number of ids in the set.
func (s TypeSet) Len() int {
	return len(s.ids)
}

// IDs returns the ids in ascending order. The returned slice must not be
// mutated.
func (s TypeSet) IDs() []ComponentID {
	return s.ids
}

// Contains reports whether id is a member of the set.
func (s TypeSet) Contains(id ComponentID) bool {
	i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= id })
	return i < len(s.ids) && s.ids[i] == id
}

// ContainsAll reports whether every id of other is a member of the set.
func (s TypeSet) ContainsAll(other TypeSet) bool {
	for _, id := range other.ids {
		if !s.Contains(id) {
			return false
		}
	}
	return true
}

// Union returns a new set with id added.
func (s TypeSet) Union(id ComponentID) TypeSet {
	return MakeTypeSet(append(append([]ComponentID{}, s.ids...), id)...)
}

// Merge returns a new set with every id of other added.
func (s TypeSet) Merge(other TypeSet) TypeSet {
	return MakeTypeSet(append(append([]ComponentID{}, s.ids...), other.ids...)...)
}

// Without returns a new set with id removed.
func (s TypeSet) Without(id ComponentID) TypeSet {
	ids := make([]ComponentID, 0, len(s.ids))
	for _, existing := range s.ids {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	return TypeSet{ids: ids}
}

// Equal reports whether both sets hold exactly the same ids.
func (s TypeSet) Equal(other TypeSet) bool {
	if len(s.ids) != len(other.ids) {
		return false
	}
	for i, id := range s.ids {
		if other.ids[i] != id {
			return false
		}
	}
	return true
}

// Key returns a canonical string form of the set, suitable as a map key.
func (s TypeSet) Key() string {
	return joinIDs(s.ids)
}

// TypeSequence is an ordered list of component ids that preserves the
// declaration order of a query. It is used only as a cache key for query
// backends, so that callbacks can receive components in declaration order.
type TypeSequence struct {
	ids []ComponentID
}

// MakeTypeSequence builds a TypeSequence preserving the given order.
func MakeTypeSequence(ids ...ComponentID) TypeSequence {
	owned := make([]ComponentID, len(ids))
	copy(owned, ids)
	return TypeSequence{ids: owned}
}

// Len returns the number of ids in the sequence.
func (s TypeSequence) Len() int {
	return len(s.ids)
}

// IDs returns the ids in declaration order. The returned slice must not be
// mutated.
func (s TypeSequence) IDs() []ComponentID {
	return s.ids
}

// ToSet returns the TypeSet over the same ids.
func (s TypeSequence) ToSet() TypeSet {
	return MakeTypeSet(s.ids...)
}

// Key returns a canonical string form of the sequence, suitable as a map key.
func (s TypeSequence) Key() string {
	return joinIDs(s.ids)
}

func joinIDs(ids []ComponentID) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(id)))
	}
	return b.String()
}
