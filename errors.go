package arkhe

import (
	"github.com/rotisserie/eris"

	"github.com/arkhe-engine/arkhe/storage"
)

var (
	// ErrMissingComponent reports typed access for a component that is not
	// part of the entity's archetype.
	ErrMissingComponent = storage.ErrMissingComponent

	// ErrInvalidHandle reports an operation through a handle whose
	// generation no longer matches the handle map.
	ErrInvalidHandle = eris.New("handle does not reference a live entity")

	// ErrDoubleErase reports an erase of an already-invalid handle. A
	// plain no-op unless sanitize mode is on, where it is fatal.
	ErrDoubleErase = eris.New("entity already erased")
)
