package filter

import (
	"github.com/arkhe-engine/arkhe/types"
)

type exact struct {
	components types.TypeSet
}

// Exact matches archetypes that contain exactly the components specified.
func Exact(components ...types.ComponentID) ComponentFilter {
	return exact{components: types.MakeTypeSet(components...)}
}

func (f exact) MatchesComponents(components types.TypeSet) bool {
	return components.Equal(f.components)
}
