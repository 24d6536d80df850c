package storage

import "github.com/rotisserie/eris"

var (
	// ErrMissingComponent reports typed access for a component that is not
	// part of the archetype.
	ErrMissingComponent = eris.New("component not present on archetype")

	// ErrArchetypeNotFound reports a TypeSet with no archetype in the store.
	ErrArchetypeNotFound = eris.New("archetype for components not found")
)
