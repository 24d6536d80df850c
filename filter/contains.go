package filter

import (
	"github.com/arkhe-engine/arkhe/types"
)

type contains struct {
	components types.TypeSet
}

// Contains matches archetypes that contain all the components specified.
func Contains(components ...types.ComponentID) ComponentFilter {
	return &contains{components: types.MakeTypeSet(components...)}
}

// ContainsSet is Contains over an already built TypeSet.
func ContainsSet(components types.TypeSet) ComponentFilter {
	return &contains{components: components}
}

func (f *contains) MatchesComponents(components types.TypeSet) bool {
	return components.ContainsAll(f.components)
}
