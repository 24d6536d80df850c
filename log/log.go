// Package log holds zerolog helpers for the structured events the entity
// store emits: entity lifecycle, archetype transitions, and backend wiring.
package log

import (
	"github.com/rs/zerolog"

	"github.com/arkhe-engine/arkhe/types"
)

func loadComponentsIntoArray(set types.TypeSet, arrayLogger *zerolog.Array) *zerolog.Array {
	for _, id := range set.IDs() {
		arrayLogger = arrayLogger.Int(int(id))
	}
	return arrayLogger
}

// Entity logs an entity lifecycle event: the handle key, the archetype it
// lives in, and the archetype's component set.
func Entity(
	logger *zerolog.Logger, level zerolog.Level,
	key types.HandleKey, archID types.ArchetypeID, set types.TypeSet,
) {
	event := logger.WithLevel(level)
	event.Uint64("entity_index", key.Index())
	event.Uint64("entity_generation", key.Generation())
	event.Int("archetype_id", int(archID))
	event.Array("component_ids", loadComponentsIntoArray(set, zerolog.Arr()))
	event.Send()
}

// Move logs an entity transition between archetypes.
func Move(
	logger *zerolog.Logger, level zerolog.Level,
	key types.HandleKey, from, to types.ArchetypeID,
) {
	event := logger.WithLevel(level)
	event.Uint64("entity_index", key.Index())
	event.Int("from_archetype", int(from))
	event.Int("to_archetype", int(to))
	event.Send()
}

// Backend logs a query backend event: its component sequence and current
// match count.
func Backend(
	logger *zerolog.Logger, level zerolog.Level,
	sequence types.TypeSequence, matchCount int,
) {
	event := logger.WithLevel(level)
	event.Str("sequence", sequence.Key())
	event.Int("matched_archetypes", matchCount)
	event.Send()
}

// CreateManagerLogger returns a sub-logger carrying the manager id, so that
// events from several managers in one process stay distinguishable.
func CreateManagerLogger(logger *zerolog.Logger, managerID string) *zerolog.Logger {
	sub := logger.With().Str("entity_manager", managerID).Logger()
	return &sub
}
