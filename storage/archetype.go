package storage

import (
	"sync/atomic"

	"github.com/rotisserie/eris"

	"github.com/arkhe-engine/arkhe/config"
	"github.com/arkhe-engine/arkhe/types"
)

// RecordKeeper is the slice of the entity manager the archetype needs while
// shuffling rows: remove-by-swap relocates another entity, whose record must
// be redirected to its new row.
type RecordKeeper interface {
	// SetEntityRow updates the row stored in the record for key.
	SetEntityRow(key types.HandleKey, row int)
	// EntityLocation returns the archetype key and row currently recorded
	// for key. ok is false for freed or unknown keys.
	EntityLocation(key types.HandleKey) (arch types.ArchetypeID, row int, ok bool)
}

// Archetype groups the entities carrying exactly one component set. Each
// component type is stored in its own dense column; the parallel rows slice
// holds the handle key of the entity living at each row.
type Archetype struct {
	id      types.ArchetypeID
	typeSet types.TypeSet
	columns DataStore
	rows    []types.HandleKey

	// Number of query iterations currently walking this archetype. When
	// sanitize mode is on, structural mutation while non-zero is fatal.
	iterations atomic.Int32
}

// NewArchetype builds an archetype over the given columns. Columns are
// matched to the component set by their id tags; their order must agree with
// the sorted order of the set.
func NewArchetype(typeSet types.TypeSet, columns DataStore) *Archetype {
	if len(columns) != typeSet.Len() {
		panic(eris.Errorf(
			"archetype columns/types mismatch: %d columns for %d types",
			len(columns), typeSet.Len(),
		))
	}
	for i, id := range typeSet.IDs() {
		if columns[i].ComponentID() != id {
			panic(eris.Errorf(
				"archetype column %d stores component id %d, expected %d",
				i, columns[i].ComponentID(), id,
			))
		}
	}
	return &Archetype{
		id:      types.InvalidArchetypeID,
		typeSet: typeSet,
		columns: columns,
	}
}

// ID returns the key this archetype is stored under.
func (a *Archetype) ID() types.ArchetypeID {
	return a.id
}

// TypeSet returns the component set shared by every entity in the archetype.
func (a *Archetype) TypeSet() types.TypeSet {
	return a.typeSet
}

// CountEntities returns the number of entities stored. All columns share
// this length; sanitize mode verifies it.
func (a *Archetype) CountEntities() int {
	if config.Sanitize() {
		for _, col := range a.columns {
			if col.Len() != len(a.rows) {
				panic(eris.Errorf(
					"archetype %d: column for component id %d has %d elements for %d rows",
					a.id, col.ComponentID(), col.Len(), len(a.rows),
				))
			}
		}
	}
	return len(a.rows)
}

// HasComponent reports whether the archetype stores the given component.
func (a *Archetype) HasComponent(id types.ComponentID) bool {
	return a.typeSet.Contains(id)
}

// ColumnIndex returns the position of the column storing id, or -1.
func (a *Archetype) ColumnIndex(id types.ComponentID) int {
	for i, col := range a.columns {
		if col.ComponentID() == id {
			return i
		}
	}
	return -1
}

// Column returns the column at position i.
func (a *Archetype) Column(i int) Column {
	return a.columns[i]
}

// ColumnByID returns the column storing id, or ErrMissingComponent.
func (a *Archetype) ColumnByID(id types.ComponentID) (Column, error) {
	if i := a.ColumnIndex(id); i >= 0 {
		return a.columns[i], nil
	}
	return nil, eris.Wrapf(ErrMissingComponent, "component id %d not in archetype %d", id, a.id)
}

// RowKey returns the handle key of the entity at row.
func (a *Archetype) RowKey(row int) types.HandleKey {
	return a.rows[row]
}

// Rows returns the handle keys by row. The slice must not be mutated.
func (a *Archetype) Rows() []types.HandleKey {
	return a.rows
}

// PushKey appends a handle key to the rows list. It is only meaningful for
// the empty archetype, where entities have no column data.
func (a *Archetype) PushKey(key types.HandleKey) int {
	a.assertMutable()
	a.rows = append(a.rows, key)
	return len(a.rows) - 1
}

// MakeExtended constructs the archetype for this set plus the component of
// newColumn: same column shapes, no contents.
func (a *Archetype) MakeExtended(newColumn Column) *Archetype {
	extendedSet := a.typeSet.Union(newColumn.ComponentID())
	columns := make(DataStore, 0, extendedSet.Len())
	for _, id := range extendedSet.IDs() {
		if id == newColumn.ComponentID() && !a.typeSet.Contains(id) {
			columns = append(columns, newColumn.CloneEmpty())
			continue
		}
		columns = append(columns, a.columns[a.ColumnIndex(id)].CloneEmpty())
	}
	return NewArchetype(extendedSet, columns)
}

// MakeRestricted constructs the archetype for this set minus id: same column
// shapes, no contents.
func (a *Archetype) MakeRestricted(id types.ComponentID) *Archetype {
	restrictedSet := a.typeSet.Without(id)
	columns := make(DataStore, 0, restrictedSet.Len())
	for _, remaining := range restrictedSet.IDs() {
		columns = append(columns, a.columns[a.ColumnIndex(remaining)].CloneEmpty())
	}
	return NewArchetype(restrictedSet, columns)
}

// MoveRow transfers the entity at srcRow to dst: every component type present
// in both archetypes is moved to the back of dst's corresponding column, the
// row key follows, and the source row is removed. The moved entity's record
// is NOT updated here; the caller owns that. A move onto the same archetype
// is a no-op.
func (a *Archetype) MoveRow(srcRow int, dst *Archetype, keeper RecordKeeper) {
	if a == dst {
		return
	}
	a.assertMutable()
	dst.assertMutable()

	for _, srcCol := range a.columns {
		if dstIdx := dst.ColumnIndex(srcCol.ComponentID()); dstIdx >= 0 {
			dst.columns[dstIdx].PushMovedFrom(srcCol, srcRow)
		}
	}
	dst.rows = append(dst.rows, a.rows[srcRow])

	a.RemoveRow(srcRow, keeper)
}

// CopyRow appends a copy of every component type present in both archetypes
// to dst, owned by the (different) entity dstKey. Returns dst's new row.
// The source row is left untouched.
func (a *Archetype) CopyRow(srcRow int, dstKey types.HandleKey, dst *Archetype, keeper RecordKeeper) int {
	dst.assertMutable()

	for _, srcCol := range a.columns {
		if dstIdx := dst.ColumnIndex(srcCol.ComponentID()); dstIdx >= 0 {
			dst.columns[dstIdx].PushCopiedFrom(srcCol, srcRow)
		}
	}
	dst.rows = append(dst.rows, dstKey)
	newRow := len(dst.rows) - 1
	keeper.SetEntityRow(dstKey, newRow)
	return newRow
}

// RemoveRow erases the entity at row from every column and the rows list by
// swap, then redirects the record of the entity that was relocated onto row.
// This is what keeps "record.row equals the physical row" O(1) to maintain.
func (a *Archetype) RemoveRow(row int, keeper RecordKeeper) {
	a.assertMutable()

	// The last entity takes the removed entity's place. If the removed
	// entity was the last one, this overwrites its record with the same
	// value before the row disappears.
	replacement := a.rows[len(a.rows)-1]
	keeper.SetEntityRow(replacement, row)

	last := len(a.rows) - 1
	a.rows[row] = a.rows[last]
	a.rows = a.rows[:last]

	for _, col := range a.columns {
		col.EraseBySwap(row)
	}
}

// BeginIteration marks the archetype as being walked by a query. The
// returned func undoes the mark; callers must invoke it at iteration end.
func (a *Archetype) BeginIteration() func() {
	a.iterations.Add(1)
	return func() { a.iterations.Add(-1) }
}

func (a *Archetype) assertMutable() {
	if config.Sanitize() && a.iterations.Load() != 0 {
		panic(eris.Errorf(
			"structural change on archetype %d while %d query iterations are active",
			a.id, a.iterations.Load(),
		))
	}
}

// Clone returns a deep copy: columns and rows duplicated, iteration guard
// reset.
func (a *Archetype) Clone() *Archetype {
	rows := make([]types.HandleKey, len(a.rows))
	copy(rows, a.rows)
	return &Archetype{
		id:      a.id,
		typeSet: a.typeSet,
		columns: a.columns.Clone(),
		rows:    rows,
	}
}

// VerifyStoresConsistency checks the structural invariants that do not need
// the handle map: one column per type id, matching tags, equal lengths.
func (a *Archetype) VerifyStoresConsistency() error {
	if len(a.columns) != a.typeSet.Len() {
		return eris.Errorf(
			"archetype %d: %d columns for %d types", a.id, len(a.columns), a.typeSet.Len(),
		)
	}
	for i, id := range a.typeSet.IDs() {
		if a.columns[i].ComponentID() != id {
			return eris.Errorf(
				"archetype %d: column %d tagged with component id %d, expected %d",
				a.id, i, a.columns[i].ComponentID(), id,
			)
		}
		if a.columns[i].Len() != len(a.rows) {
			return eris.Errorf(
				"archetype %d: column %d has %d elements for %d rows",
				a.id, i, a.columns[i].Len(), len(a.rows),
			)
		}
	}
	return nil
}

// VerifyHandlesConsistency checks that every row's handle resolves back to
// this archetype at this row.
func (a *Archetype) VerifyHandlesConsistency(keeper RecordKeeper) error {
	for row, key := range a.rows {
		arch, recordedRow, ok := keeper.EntityLocation(key)
		if !ok {
			return eris.Errorf("archetype %d row %d: handle key %d is not live", a.id, row, key)
		}
		if arch != a.id {
			return eris.Errorf(
				"archetype %d row %d: record points at archetype %d", a.id, row, arch,
			)
		}
		if recordedRow != row {
			return eris.Errorf(
				"archetype %d row %d: record points at row %d", a.id, row, recordedRow,
			)
		}
	}
	return nil
}
