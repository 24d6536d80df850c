package arkhe

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/arkhe-engine/arkhe/statsd"
)

// State is an owning snapshot of a manager's entire internal state:
// archetypes with their columns, the handle map, the free list, the name
// map, and every query backend with its listener registries.
//
// A State is inert: destroying it does not cancel listeners in the active
// state, and it can be restored any number of times.
type State struct {
	state *internalState
}

// SaveState moves the currently active internal state into the returned
// State, then installs a fresh deep copy as the active state. From that
// point, all accesses through handles resolve into the new copy; the caller
// keeps the original to restore later.
func (m *EntityManager) SaveState() *State {
	start := time.Now()
	backup := &State{state: m.state}
	m.state = backup.state.clone()
	statsd.EmitStateStat(start, "save")
	m.logger.Debug().Int("live_entities", m.state.countLiveEntities()).Msg("state saved")
	return backup
}

// RestoreState replaces the active state with a fresh deep copy of the
// snapshot. Handles created before the snapshot resolve against the restored
// map exactly as they did at save time; listeners live at save time fire
// again, including any that were closed in the meantime in the active state.
func (m *EntityManager) RestoreState(s *State) {
	if s == nil || s.state == nil {
		panic(eris.New("restore of an empty state"))
	}
	start := time.Now()
	m.state = s.state.clone()
	statsd.EmitStateStat(start, "restore")
	m.logger.Debug().Int("live_entities", m.state.countLiveEntities()).Msg("state restored")
}
