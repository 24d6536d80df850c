package filter

import (
	"github.com/arkhe-engine/arkhe/types"
)

func Not(filter ComponentFilter) ComponentFilter {
	return &not{filter: filter}
}

type not struct {
	filter ComponentFilter
}

func (f *not) MatchesComponents(components types.TypeSet) bool {
	return !f.filter.MatchesComponents(components)
}
