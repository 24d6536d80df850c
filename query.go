package arkhe

import (
	"github.com/arkhe-engine/arkhe/component"
	"github.com/arkhe-engine/arkhe/storage"
	"github.com/arkhe-engine/arkhe/types"
)

// queryBase carries the manager and sequence shared by every query arity.
// Query values address their backend by sequence key: copying a query, or
// snapshotting the world out from under it, never leaves it pointing at a
// dead backend.
type queryBase struct {
	manager  *EntityManager
	sequence types.TypeSequence
}

func newQueryBase(m *EntityManager, sequence types.TypeSequence) queryBase {
	m.ensureBackend(sequence)
	return queryBase{manager: m, sequence: sequence}
}

func (q queryBase) backend() *queryBackend {
	return q.manager.ensureBackend(q.sequence)
}

// countMatches sums entity counts over matched archetypes.
func (q queryBase) countMatches() int {
	count := 0
	q.forEachMatch(func(archetype *storage.Archetype, _ *matchedArchetype) {
		count += archetype.CountEntities()
	})
	return count
}

func (q queryBase) forEachMatch(visit func(archetype *storage.Archetype, match *matchedArchetype)) {
	backend := q.backend()
	for i := range backend.matches {
		match := &backend.matches[i]
		visit(q.manager.state.archetypes.Get(match.archetype), match)
	}
}

// eachRow visits every row of every matched archetype, holding the
// archetype's iteration guard for the duration of its walk.
func (q queryBase) eachRow(visit func(archetype *storage.Archetype, row int, match *matchedArchetype)) {
	q.forEachMatch(func(archetype *storage.Archetype, match *matchedArchetype) {
		end := archetype.BeginIteration()
		defer end()
		count := archetype.CountEntities()
		for row := 0; row < count; row++ {
			visit(archetype, row, match)
		}
	})
}

// eachPairRow visits every ordered pair of rows, left strictly before right
// in the flattened matched order, without repetition.
func (q queryBase) eachPairRow(
	visit func(
		leftArch *storage.Archetype, leftRow int, leftMatch *matchedArchetype,
		rightArch *storage.Archetype, rightRow int, rightMatch *matchedArchetype,
	),
) {
	backend := q.backend()
	archetypes := q.manager.state.archetypes

	type iterated struct {
		archetype *storage.Archetype
		match     *matchedArchetype
		end       func()
	}
	walked := make([]iterated, len(backend.matches))
	for i := range backend.matches {
		match := &backend.matches[i]
		archetype := archetypes.Get(match.archetype)
		walked[i] = iterated{archetype: archetype, match: match, end: archetype.BeginIteration()}
	}
	defer func() {
		for _, entry := range walked {
			entry.end()
		}
	}()

	for li, left := range walked {
		leftCount := left.archetype.CountEntities()
		for leftRow := 0; leftRow < leftCount; leftRow++ {
			// Remaining rows of the same archetype.
			for rightRow := leftRow + 1; rightRow < leftCount; rightRow++ {
				visit(left.archetype, leftRow, left.match, left.archetype, rightRow, left.match)
			}
			// All rows of the archetypes after this one.
			for ri := li + 1; ri < len(walked); ri++ {
				right := walked[ri]
				rightCount := right.archetype.CountEntities()
				for rightRow := 0; rightRow < rightCount; rightRow++ {
					visit(left.archetype, leftRow, left.match, right.archetype, rightRow, right.match)
				}
			}
		}
	}
}

// verifyArchetypes runs the test-grade structural checks over all matched
// archetypes.
func (q queryBase) verifyArchetypes() error {
	var firstErr error
	q.forEachMatch(func(archetype *storage.Archetype, _ *matchedArchetype) {
		if firstErr != nil {
			return
		}
		if err := archetype.VerifyStoresConsistency(); err != nil {
			firstErr = err
			return
		}
		firstErr = archetype.VerifyHandlesConsistency(q.manager.state)
	})
	return firstErr
}

func (q queryBase) eachHandle(visit func(Handle)) {
	q.eachRow(func(archetype *storage.Archetype, row int, _ *matchedArchetype) {
		visit(Handle{key: archetype.RowKey(row), manager: q.manager})
	})
}

func (q queryBase) onListener(kind listenerKind, raw rawListener) *Listening {
	backend := q.backend()
	var handle int
	switch kind {
	case addListener:
		handle = backend.addListeners.insert(raw)
	case removeListener:
		handle = backend.removeListeners.insert(raw)
	}
	return &Listening{
		manager:     q.manager,
		sequenceKey: q.sequence.Key(),
		kind:        kind,
		handle:      handle,
	}
}

// componentAt projects the component at sequence position pos out of the
// archetype row through the cached column indices.
func componentAt[T types.Component](archetype *storage.Archetype, match *matchedArchetype, pos, row int) *T {
	return &storage.Slice[T](archetype.Column(match.columnIndices[pos]))[row]
}

// Query iterates all entities carrying component A. Constructing a query
// ensures the shared backend for its component sequence exists, with matches
// prepopulated from all current archetypes; query values themselves are
// cheap and freely copyable.
type Query[A types.Component] struct {
	base queryBase
}

// NewQuery instantiates the query for the provided manager.
func NewQuery[A types.Component](m *EntityManager) Query[A] {
	return Query[A]{base: newQueryBase(m, types.MakeTypeSequence(component.ID[A]()))}
}

// CountMatches returns the number of distinct entities matching the query.
func (q Query[A]) CountMatches() int { return q.base.countMatches() }

// VerifyArchetypes checks the consistency of the matched archetypes and the
// handles inside them. Intended for tests.
func (q Query[A]) VerifyArchetypes() error { return q.base.verifyArchetypes() }

// Each invokes fn for every matching entity.
func (q Query[A]) Each(fn func(*A)) {
	q.base.eachRow(func(archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(componentAt[A](archetype, match, 0, row))
	})
}

// EachWithHandle is Each with the entity handle prefixed.
func (q Query[A]) EachWithHandle(fn func(Handle, *A)) {
	q.base.eachRow(func(archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(Handle{key: archetype.RowKey(row), manager: q.base.manager}, componentAt[A](archetype, match, 0, row))
	})
}

// EachHandle visits only the handles of matching entities.
func (q Query[A]) EachHandle(fn func(Handle)) { q.base.eachHandle(fn) }

// EachPair invokes fn once per unordered pair of distinct matching entities,
// left before right in the flattened matched order.
func (q Query[A]) EachPair(fn func(left, right *A)) {
	q.base.eachPairRow(func(
		leftArch *storage.Archetype, leftRow int, leftMatch *matchedArchetype,
		rightArch *storage.Archetype, rightRow int, rightMatch *matchedArchetype,
	) {
		fn(
			componentAt[A](leftArch, leftMatch, 0, leftRow),
			componentAt[A](rightArch, rightMatch, 0, rightRow),
		)
	})
}

// EachPairWithHandles is EachPair with both handles prefixed.
func (q Query[A]) EachPairWithHandles(fn func(leftHandle, rightHandle Handle, left, right *A)) {
	q.base.eachPairRow(func(
		leftArch *storage.Archetype, leftRow int, leftMatch *matchedArchetype,
		rightArch *storage.Archetype, rightRow int, rightMatch *matchedArchetype,
	) {
		fn(
			Handle{key: leftArch.RowKey(leftRow), manager: q.base.manager},
			Handle{key: rightArch.RowKey(rightRow), manager: q.base.manager},
			componentAt[A](leftArch, leftMatch, 0, leftRow),
			componentAt[A](rightArch, rightMatch, 0, rightRow),
		)
	})
}

// OnAddEntity installs a listener fired when an entity enters the match set:
// a component add moved it in, at most once per actual transition. Listeners
// are not retroactively notified of pre-existing matches.
func (q Query[A]) OnAddEntity(fn func(Handle, *A)) *Listening {
	return q.base.onListener(addListener, func(h Handle, archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(h, componentAt[A](archetype, match, 0, row))
	})
}

// OnRemoveEntity installs a listener fired when an entity leaves the match
// set. The listener still sees the departing components.
func (q Query[A]) OnRemoveEntity(fn func(Handle, *A)) *Listening {
	return q.base.onListener(removeListener, func(h Handle, archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(h, componentAt[A](archetype, match, 0, row))
	})
}

// Query2 iterates all entities carrying both A and B, with callbacks
// receiving components in declaration order.
type Query2[A, B types.Component] struct {
	base queryBase
}

// NewQuery2 instantiates the query for the provided manager.
func NewQuery2[A, B types.Component](m *EntityManager) Query2[A, B] {
	return Query2[A, B]{base: newQueryBase(m, types.MakeTypeSequence(component.ID[A](), component.ID[B]()))}
}

func (q Query2[A, B]) CountMatches() int        { return q.base.countMatches() }
func (q Query2[A, B]) VerifyArchetypes() error  { return q.base.verifyArchetypes() }
func (q Query2[A, B]) EachHandle(fn func(Handle)) { q.base.eachHandle(fn) }

// Each invokes fn for every matching entity with both components in
// declaration order.
func (q Query2[A, B]) Each(fn func(*A, *B)) {
	q.base.eachRow(func(archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(
			componentAt[A](archetype, match, 0, row),
			componentAt[B](archetype, match, 1, row),
		)
	})
}

// EachWithHandle is Each with the entity handle prefixed.
func (q Query2[A, B]) EachWithHandle(fn func(Handle, *A, *B)) {
	q.base.eachRow(func(archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(
			Handle{key: archetype.RowKey(row), manager: q.base.manager},
			componentAt[A](archetype, match, 0, row),
			componentAt[B](archetype, match, 1, row),
		)
	})
}

// EachFirst visits only the A component: the subset callback shape.
func (q Query2[A, B]) EachFirst(fn func(*A)) {
	q.base.eachRow(func(archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(componentAt[A](archetype, match, 0, row))
	})
}

// EachSecond visits only the B component.
func (q Query2[A, B]) EachSecond(fn func(*B)) {
	q.base.eachRow(func(archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(componentAt[B](archetype, match, 1, row))
	})
}

// EachPair invokes fn once per unordered pair of distinct matching entities,
// with the left entity's components before the right's.
func (q Query2[A, B]) EachPair(fn func(leftA *A, leftB *B, rightA *A, rightB *B)) {
	q.base.eachPairRow(func(
		leftArch *storage.Archetype, leftRow int, leftMatch *matchedArchetype,
		rightArch *storage.Archetype, rightRow int, rightMatch *matchedArchetype,
	) {
		fn(
			componentAt[A](leftArch, leftMatch, 0, leftRow),
			componentAt[B](leftArch, leftMatch, 1, leftRow),
			componentAt[A](rightArch, rightMatch, 0, rightRow),
			componentAt[B](rightArch, rightMatch, 1, rightRow),
		)
	})
}

// EachPairWithHandles is EachPair with both handles prefixed.
func (q Query2[A, B]) EachPairWithHandles(
	fn func(leftHandle, rightHandle Handle, leftA *A, leftB *B, rightA *A, rightB *B),
) {
	q.base.eachPairRow(func(
		leftArch *storage.Archetype, leftRow int, leftMatch *matchedArchetype,
		rightArch *storage.Archetype, rightRow int, rightMatch *matchedArchetype,
	) {
		fn(
			Handle{key: leftArch.RowKey(leftRow), manager: q.base.manager},
			Handle{key: rightArch.RowKey(rightRow), manager: q.base.manager},
			componentAt[A](leftArch, leftMatch, 0, leftRow),
			componentAt[B](leftArch, leftMatch, 1, leftRow),
			componentAt[A](rightArch, rightMatch, 0, rightRow),
			componentAt[B](rightArch, rightMatch, 1, rightRow),
		)
	})
}

// OnAddEntity installs a listener fired when an entity enters the match set.
func (q Query2[A, B]) OnAddEntity(fn func(Handle, *A, *B)) *Listening {
	return q.base.onListener(addListener, func(h Handle, archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(h, componentAt[A](archetype, match, 0, row), componentAt[B](archetype, match, 1, row))
	})
}

// OnRemoveEntity installs a listener fired when an entity leaves the match
// set, before its components move.
func (q Query2[A, B]) OnRemoveEntity(fn func(Handle, *A, *B)) *Listening {
	return q.base.onListener(removeListener, func(h Handle, archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(h, componentAt[A](archetype, match, 0, row), componentAt[B](archetype, match, 1, row))
	})
}

// Query3 iterates all entities carrying A, B, and C.
type Query3[A, B, C types.Component] struct {
	base queryBase
}

// NewQuery3 instantiates the query for the provided manager.
func NewQuery3[A, B, C types.Component](m *EntityManager) Query3[A, B, C] {
	return Query3[A, B, C]{
		base: newQueryBase(m, types.MakeTypeSequence(component.ID[A](), component.ID[B](), component.ID[C]())),
	}
}

func (q Query3[A, B, C]) CountMatches() int          { return q.base.countMatches() }
func (q Query3[A, B, C]) VerifyArchetypes() error    { return q.base.verifyArchetypes() }
func (q Query3[A, B, C]) EachHandle(fn func(Handle)) { q.base.eachHandle(fn) }

// Each invokes fn for every matching entity with all three components in
// declaration order.
func (q Query3[A, B, C]) Each(fn func(*A, *B, *C)) {
	q.base.eachRow(func(archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(
			componentAt[A](archetype, match, 0, row),
			componentAt[B](archetype, match, 1, row),
			componentAt[C](archetype, match, 2, row),
		)
	})
}

// EachWithHandle is Each with the entity handle prefixed.
func (q Query3[A, B, C]) EachWithHandle(fn func(Handle, *A, *B, *C)) {
	q.base.eachRow(func(archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(
			Handle{key: archetype.RowKey(row), manager: q.base.manager},
			componentAt[A](archetype, match, 0, row),
			componentAt[B](archetype, match, 1, row),
			componentAt[C](archetype, match, 2, row),
		)
	})
}

// OnAddEntity installs a listener fired when an entity enters the match set.
func (q Query3[A, B, C]) OnAddEntity(fn func(Handle, *A, *B, *C)) *Listening {
	return q.base.onListener(addListener, func(h Handle, archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(
			h,
			componentAt[A](archetype, match, 0, row),
			componentAt[B](archetype, match, 1, row),
			componentAt[C](archetype, match, 2, row),
		)
	})
}

// OnRemoveEntity installs a listener fired when an entity leaves the match
// set, before its components move.
func (q Query3[A, B, C]) OnRemoveEntity(fn func(Handle, *A, *B, *C)) *Listening {
	return q.base.onListener(removeListener, func(h Handle, archetype *storage.Archetype, row int, match *matchedArchetype) {
		fn(
			h,
			componentAt[A](archetype, match, 0, row),
			componentAt[B](archetype, match, 1, row),
			componentAt[C](archetype, match, 2, row),
		)
	})
}
