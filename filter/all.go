package filter

import (
	"github.com/arkhe-engine/arkhe/types"
)

type all struct {
}

// All matches every archetype.
func All() ComponentFilter {
	return &all{}
}

func (f *all) MatchesComponents(_ types.TypeSet) bool {
	return true
}
