package arkhe

import (
	"github.com/rotisserie/eris"

	"github.com/arkhe-engine/arkhe/types"
)

// Wrap boxes one instance of T as the single component of a dedicated
// entity. This lets arbitrary state live inside the manager and therefore
// participate in snapshot and restore alongside the normal entities.
type Wrap[T types.Component] struct {
	wrapped Handle
}

// NewWrap stores value in a fresh entity and returns the wrapper around it.
func NewWrap[T types.Component](m *EntityManager, value T) Wrap[T] {
	wrapped := m.AddEntity()
	init := NewPhase()
	entity, _ := wrapped.Get(init)
	Add(entity, value)
	init.Commit()
	return Wrap[T]{wrapped: wrapped}
}

// Get returns the stored instance. The pointer is valid until the next
// structural mutation of the manager.
func (w Wrap[T]) Get() *T {
	view, ok := w.wrapped.View()
	if !ok {
		panic(eris.New("wrap entity was erased behind the wrapper's back"))
	}
	value, err := Get[T](view)
	if err != nil {
		panic(err)
	}
	return value
}

// Handle exposes the wrapped entity's handle.
func (w Wrap[T]) Handle() Handle {
	return w.wrapped
}

// Close erases the wrapped entity.
func (w Wrap[T]) Close() {
	destruction := NewPhase()
	if entity, ok := w.wrapped.Get(destruction); ok {
		entity.Erase()
	}
	destruction.Commit()
}
