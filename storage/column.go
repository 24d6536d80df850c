// Package storage implements the columnar memory layout of the entity store:
// one dense, type-erased column per component type, grouped into archetypes,
// which are owned by an ArchetypeStore behind stable keys.
package storage

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/arkhe-engine/arkhe/types"
)

// Column is a type-erased dense array holding one component type. The
// concrete element type is recoverable through the ComponentID tag with a
// checked cast (see Slice).
type Column interface {
	// ComponentID returns the id tag of the stored component type.
	ComponentID() types.ComponentID
	// Len returns the number of stored elements.
	Len() int
	// EraseBySwap removes the element at row by moving the last element
	// onto it and popping the back. O(1), relocates at most one row.
	EraseBySwap(row int)
	// PushMovedFrom appends src's element at row to this column. Both
	// columns must store the same component type.
	PushMovedFrom(src Column, row int)
	// PushCopiedFrom appends a copy of src's element at row to this
	// column. Both columns must store the same component type.
	PushCopiedFrom(src Column, row int)
	// SetCopiedFrom overwrites the element at row with a copy of src's
	// element at srcRow. Both columns must store the same component type.
	SetCopiedFrom(row int, src Column, srcRow int)
	// Clone returns a deep copy of the column.
	Clone() Column
	// CloneEmpty returns a new, empty column for the same component type.
	CloneEmpty() Column
	// RowJSON returns the JSON encoding of the element at row.
	RowJSON(row int) (json.RawMessage, error)
}

type column[T types.Component] struct {
	id   types.ComponentID
	data []T
}

// NewColumn creates an empty column for component type T tagged with id.
func NewColumn[T types.Component](id types.ComponentID) Column {
	return &column[T]{id: id}
}

func (c *column[T]) ComponentID() types.ComponentID {
	return c.id
}

func (c *column[T]) Len() int {
	return len(c.data)
}

func (c *column[T]) EraseBySwap(row int) {
	last := len(c.data) - 1
	c.data[row] = c.data[last]
	var zero T
	c.data[last] = zero
	c.data = c.data[:last]
}

func (c *column[T]) PushMovedFrom(src Column, row int) {
	source := sameColumn[T](c, src)
	c.data = append(c.data, source.data[row])
}

func (c *column[T]) PushCopiedFrom(src Column, row int) {
	source := sameColumn[T](c, src)
	c.data = append(c.data, source.data[row])
}

func (c *column[T]) SetCopiedFrom(row int, src Column, srcRow int) {
	source := sameColumn[T](c, src)
	c.data[row] = source.data[srcRow]
}

func (c *column[T]) Clone() Column {
	data := make([]T, len(c.data))
	copy(data, c.data)
	return &column[T]{id: c.id, data: data}
}

func (c *column[T]) CloneEmpty() Column {
	return &column[T]{id: c.id}
}

func (c *column[T]) RowJSON(row int) (json.RawMessage, error) {
	if row < 0 || row >= len(c.data) {
		return nil, eris.Errorf("row %d out of range for column of %d elements", row, len(c.data))
	}
	bz, err := json.Marshal(c.data[row])
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode component")
	}
	return bz, nil
}

// Slice returns the backing slice of a column known to store T. The tag is
// checked: a mismatch is a programming error and panics.
//
// The slice remains valid until the next structural mutation of the owning
// archetype; within a query iteration structural changes are deferred, so
// element pointers are stable for the iteration's duration.
func Slice[T types.Component](c Column) []T {
	return cast[T](c).data
}

// Push appends value to a column known to store T and returns the new row
// index.
func Push[T types.Component](c Column, value T) int {
	typed := cast[T](c)
	typed.data = append(typed.data, value)
	return len(typed.data) - 1
}

// Set overwrites the element at row of a column known to store T.
func Set[T types.Component](c Column, row int, value T) {
	cast[T](c).data[row] = value
}

// Get returns a pointer to the element at row of a column known to store T.
func Get[T types.Component](c Column, row int) *T {
	return &cast[T](c).data[row]
}

func cast[T types.Component](c Column) *column[T] {
	typed, ok := c.(*column[T])
	if !ok {
		var zero T
		panic(eris.Errorf(
			"column type tag mismatch: column stores component id %d, requested %q",
			c.ComponentID(), zero.Name(),
		))
	}
	return typed
}

func sameColumn[T types.Component](dst *column[T], src Column) *column[T] {
	source, ok := src.(*column[T])
	if !ok || source.id != dst.id {
		panic(eris.Errorf(
			"cross-type column transfer: destination stores component id %d, source stores %d",
			dst.id, src.ComponentID(),
		))
	}
	return source
}

// DataStore is an ordered collection of owning columns with value semantics:
// cloning deep-clones every column.
type DataStore []Column

// Clone returns a deep copy of every column.
func (d DataStore) Clone() DataStore {
	cloned := make(DataStore, len(d))
	for i, col := range d {
		cloned[i] = col.Clone()
	}
	return cloned
}

// CloneEmpty returns empty columns of the same shape.
func (d DataStore) CloneEmpty() DataStore {
	cloned := make(DataStore, len(d))
	for i, col := range d {
		cloned[i] = col.CloneEmpty()
	}
	return cloned
}
