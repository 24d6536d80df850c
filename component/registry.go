// Package component implements the process-wide registry mapping component
// types to their ComponentID. Ids are assigned on first use and are stable
// for the lifetime of the process, which makes them usable as archetype and
// query cache keys.
package component

import (
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"github.com/arkhe-engine/arkhe/types"
)

type registration struct {
	id       types.ComponentID
	name     string
	compType reflect.Type
	schema   []byte
}

var registry = struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*registration
	byName map[string]*registration
	byID   []*registration
}{
	byType: make(map[reflect.Type]*registration),
	byName: make(map[string]*registration),
}

// ID returns the ComponentID for T, registering the type on first use.
// The result is deterministic within a process: repeated calls for the same
// type always return the same id.
//
// Two distinct types sharing a Name() have their reflected JSON schemas
// compared: identical schemas make the later type an alias of the earlier
// one (same id), differing schemas are a programming error and panic.
func ID[T types.Component]() types.ComponentID {
	var zero T
	compType := reflect.TypeOf(zero)

	registry.mu.RLock()
	reg, ok := registry.byType[compType]
	registry.mu.RUnlock()
	if ok {
		return reg.id
	}

	return register[T](compType, zero.Name())
}

func register[T types.Component](compType reflect.Type, compName string) types.ComponentID {
	schema, err := jsonschema.ReflectFromType(compType).MarshalJSON()
	if err != nil {
		panic(eris.Wrapf(err, "component %q must be json serializable", compName))
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if reg, ok := registry.byType[compType]; ok {
		return reg.id
	}
	if existing, ok := registry.byName[compName]; ok {
		patch, err := jsondiff.CompareJSON(existing.schema, schema)
		if err != nil {
			panic(eris.Wrapf(err, "failed to compare schemas for component %q", compName))
		}
		if patch.String() != "" {
			panic(eris.Errorf(
				"component name %q is already registered with a different schema: %s",
				compName, patch.String(),
			))
		}
		// Same name, same shape: alias of an already registered type.
		registry.byType[compType] = existing
		return existing.id
	}

	reg := &registration{
		id:       types.ComponentID(len(registry.byID)),
		name:     compName,
		compType: compType,
		schema:   schema,
	}
	registry.byType[compType] = reg
	registry.byName[compName] = reg
	registry.byID = append(registry.byID, reg)
	return reg.id
}

// NameOf returns the registered name for id, or the empty string for an
// unknown id.
func NameOf(id types.ComponentID) string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(registry.byID) {
		return ""
	}
	return registry.byID[id].name
}

// IDByName resolves a registered component name to its id. Used by textual
// query parsing.
func IDByName(compName string) (types.ComponentID, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	reg, ok := registry.byName[compName]
	if !ok {
		return 0, false
	}
	return reg.id, true
}

// SchemaOf returns the reflected JSON schema recorded for id.
func SchemaOf(id types.ComponentID) []byte {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(registry.byID) {
		return nil
	}
	return registry.byID[id].schema
}

// TypeOf returns the reflect.Type recorded for id.
func TypeOf(id types.ComponentID) reflect.Type {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(registry.byID) {
		return nil
	}
	return registry.byID[id].compType
}
