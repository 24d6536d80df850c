// Package filter provides composable archetype filters. A filter decides
// whether an archetype's component set is of interest; query backends and
// archetype searches are built on top of it.
package filter

import (
	"github.com/arkhe-engine/arkhe/types"
)

// ComponentFilter is a filter that matches archetypes based on their
// component sets.
type ComponentFilter interface {
	// MatchesComponents returns true if an archetype with the given
	// component set matches the filter.
	MatchesComponents(components types.TypeSet) bool
}
