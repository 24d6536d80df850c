package arkhe

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/arkhe-engine/arkhe/filter"
	"github.com/arkhe-engine/arkhe/storage"
	"github.com/arkhe-engine/arkhe/types"
)

// matchedArchetype caches, per backend, the key of a matching archetype plus
// the position of each requested component's column inside it. Column
// indices are in the backend's declaration order.
type matchedArchetype struct {
	archetype     types.ArchetypeID
	columnIndices []int
}

// rawListener is the type-erased callback stored by a backend. Typed query
// front ends wrap their user callbacks around it, projecting components out
// of the archetype through the cached match.
type rawListener func(h Handle, archetype *storage.Archetype, row int, match *matchedArchetype)

// handledStore keeps listeners behind stable integer handles, so that
// deregistration by handle is O(1) and iteration order is insertion order.
type handledStore struct {
	nextHandle int
	order      []int
	listeners  map[int]rawListener
}

func newHandledStore() handledStore {
	return handledStore{listeners: make(map[int]rawListener)}
}

func (s *handledStore) insert(listener rawListener) int {
	handle := s.nextHandle
	s.nextHandle++
	s.listeners[handle] = listener
	s.order = append(s.order, handle)
	return handle
}

func (s *handledStore) erase(handle int) {
	delete(s.listeners, handle)
}

func (s *handledStore) forEach(visit func(rawListener)) {
	for _, handle := range s.order {
		if listener, ok := s.listeners[handle]; ok {
			visit(listener)
		}
	}
}

func (s *handledStore) clone() handledStore {
	cloned := handledStore{
		nextHandle: s.nextHandle,
		order:      append([]int(nil), s.order...),
		listeners:  make(map[int]rawListener, len(s.listeners)),
	}
	for handle, listener := range s.listeners {
		cloned.listeners[handle] = listener
	}
	return cloned
}

// queryBackend is the cached half of a query, keyed by TypeSequence and
// hosted by the manager: one instance per sequence, shared by every query
// value over it. It keeps the matched-archetype cache up to date as
// archetypes appear, and dispatches entity add/remove events to listeners.
type queryBackend struct {
	sequence    types.TypeSequence
	requiredSet types.TypeSet
	matchFilter filter.ComponentFilter

	// Matches are kept in archetype insertion order.
	matches []matchedArchetype

	addListeners    handledStore
	removeListeners handledStore
}

func newQueryBackend(sequence types.TypeSequence, archetypes *storage.ArchetypeStore) *queryBackend {
	requiredSet := sequence.ToSet()
	matchFilter := filter.ComponentFilter(filter.ContainsSet(requiredSet))
	if !requiredSet.Contains(blueprintID()) {
		// Blueprints are templates: archetypes carrying the marker are
		// invisible to queries that do not ask for it.
		matchFilter = filter.And(matchFilter, filter.Not(filter.Contains(blueprintID())))
	}
	backend := &queryBackend{
		sequence:        sequence,
		requiredSet:     requiredSet,
		matchFilter:     matchFilter,
		addListeners:    newHandledStore(),
		removeListeners: newHandledStore(),
	}
	archetypes.ForEach(func(_ types.ArchetypeID, archetype *storage.Archetype) {
		backend.pushIfMatches(archetype)
	})
	return backend
}

func (b *queryBackend) matchesSet(set types.TypeSet) bool {
	return b.matchFilter.MatchesComponents(set)
}

// pushIfMatches appends a match entry for the candidate archetype if its
// component set satisfies the backend's filter.
func (b *queryBackend) pushIfMatches(archetype *storage.Archetype) {
	if !b.matchesSet(archetype.TypeSet()) {
		return
	}
	b.matches = append(b.matches, matchedArchetype{
		archetype:     archetype.ID(),
		columnIndices: b.columnIndicesFor(archetype),
	})
}

func (b *queryBackend) columnIndicesFor(archetype *storage.Archetype) []int {
	indices := make([]int, b.sequence.Len())
	for i, id := range b.sequence.IDs() {
		indices[i] = archetype.ColumnIndex(id)
	}
	return indices
}

// matchFor returns the cached match entry for the archetype, or nil.
func (b *queryBackend) matchFor(id types.ArchetypeID) *matchedArchetype {
	for i := range b.matches {
		if b.matches[i].archetype == id {
			return &b.matches[i]
		}
	}
	return nil
}

func (b *queryBackend) signalEntityAdded(h Handle, archetype *storage.Archetype, row int) {
	b.signal(h, archetype, row, &b.addListeners)
}

func (b *queryBackend) signalEntityRemoved(h Handle, archetype *storage.Archetype, row int) {
	b.signal(h, archetype, row, &b.removeListeners)
}

func (b *queryBackend) signal(h Handle, archetype *storage.Archetype, row int, listeners *handledStore) {
	match := b.matchFor(archetype.ID())
	if match == nil {
		panic(eris.Errorf(
			"backend %q signalled for archetype %d outside its match set",
			b.sequence.Key(), archetype.ID(),
		))
	}
	listeners.forEach(func(listener rawListener) {
		listener(h, archetype, row, match)
	})
}

// clone deep-copies the backend: the match cache and both listener
// registries. Callbacks themselves are shared, which is what lets a
// restored snapshot keep firing the listeners that were live at save time.
func (b *queryBackend) clone() *queryBackend {
	cloned := &queryBackend{
		sequence:        b.sequence,
		requiredSet:     b.requiredSet,
		matchFilter:     b.matchFilter,
		matches:         make([]matchedArchetype, len(b.matches)),
		addListeners:    b.addListeners.clone(),
		removeListeners: b.removeListeners.clone(),
	}
	for i, match := range b.matches {
		cloned.matches[i] = matchedArchetype{
			archetype:     match.archetype,
			columnIndices: append([]int(nil), match.columnIndices...),
		}
	}
	return cloned
}

// listenerKind selects one of the two registries of a backend.
type listenerKind int

const (
	addListener listenerKind = iota
	removeListener
)

// Listening deregisters exactly the listener it tracks when closed. The
// token addresses its backend by sequence key through the manager, not by
// pointer, so it survives the backend replacement a snapshot restore
// performs: closing after a restore removes the listener from whichever
// backend is active for the sequence at that point.
type Listening struct {
	manager     *EntityManager
	sequenceKey string
	kind        listenerKind
	handle      int
	closed      bool
}

// Close removes the tracked listener from the currently active backend.
// Closing twice is a no-op.
func (l *Listening) Close() {
	if l == nil || l.closed {
		return
	}
	l.closed = true
	backend, ok := l.manager.state.queryBackends[l.sequenceKey]
	if !ok {
		return
	}
	switch l.kind {
	case addListener:
		backend.addListeners.erase(l.handle)
	case removeListener:
		backend.removeListeners.erase(l.handle)
	}
}

// BackendSequences is a debugging helper: the sequence keys of every query
// backend the manager hosts, ordered.
func (m *EntityManager) BackendSequences() []string {
	keys := make([]string, 0, len(m.state.queryBackends))
	for key := range m.state.queryBackends {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
