package arkhe

import (
	"github.com/arkhe-engine/arkhe/component"
	"github.com/arkhe-engine/arkhe/types"
)

// Blueprint marks an entity as a template. It is an ordinary component:
// query backends that do not name it exclude blueprint-bearing archetypes
// from their matches, which keeps templates invisible to normal iteration.
type Blueprint struct{}

func (Blueprint) Name() string { return "arkhe.blueprint" }

func blueprintID() types.ComponentID {
	return component.ID[Blueprint]()
}
