// Package arkhe is an in-memory archetype-based entity-component store.
// Entities are grouped by the exact set of component types they carry, each
// component type lives in a contiguous column per group, and queries iterate
// any required subset of component types without touching the rest.
//
// Structural mutation (adding or removing components, erasing entities) is
// deferred through Phase scopes so that iteration always sees a stable
// layout; queries can additionally listen for entities entering or leaving
// their match set. The whole world state can be snapshotted and restored,
// with live queries staying wired across the swap.
package arkhe

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/arkhe-engine/arkhe/component"
	"github.com/arkhe-engine/arkhe/config"
	ecslog "github.com/arkhe-engine/arkhe/log"
	"github.com/arkhe-engine/arkhe/name"
	"github.com/arkhe-engine/arkhe/statsd"
	"github.com/arkhe-engine/arkhe/storage"
	"github.com/arkhe-engine/arkhe/types"
)

// invalidRow marks the record of an erased entity.
const invalidRow = -1

// entityRecord describes where an entity physically lives. It is created
// when the entity is added, overwritten when the entity moves between
// archetypes, and invalidated (row set to the sentinel, generation advanced)
// when the entity is erased.
type entityRecord struct {
	// key holds the full handle key currently live for this index. A
	// handle whose key differs (stale generation) is invalid.
	key       types.HandleKey
	archetype types.ArchetypeID
	row       int
	name      name.StringID
}

// internalState owns everything behind an EntityManager. Snapshots are deep
// copies of one of these.
type internalState struct {
	nextKey       types.HandleKey
	handleMap     map[uint64]*entityRecord
	freedHandles  []types.HandleKey
	nameMap       map[name.StringID]types.HandleKey
	queryBackends map[string]*queryBackend
	archetypes    *storage.ArchetypeStore
}

func newInternalState() *internalState {
	return &internalState{
		nextKey:       types.MakeFirstKey(),
		handleMap:     make(map[uint64]*entityRecord),
		nameMap:       make(map[name.StringID]types.HandleKey),
		queryBackends: make(map[string]*queryBackend),
		archetypes:    storage.NewArchetypeStore(),
	}
}

// record resolves a full handle key: present, matching generation, not
// erased.
func (s *internalState) record(key types.HandleKey) (*entityRecord, bool) {
	rec, ok := s.handleMap[key.Index()]
	if !ok || rec.key != key || rec.row == invalidRow {
		return nil, false
	}
	return rec, true
}

// SetEntityRow implements storage.RecordKeeper. Row shuffles inside an
// archetype look records up by index only.
func (s *internalState) SetEntityRow(key types.HandleKey, row int) {
	if rec, ok := s.handleMap[key.Index()]; ok {
		rec.row = row
	}
}

// EntityLocation implements storage.RecordKeeper.
func (s *internalState) EntityLocation(key types.HandleKey) (types.ArchetypeID, int, bool) {
	rec, ok := s.record(key)
	if !ok {
		return types.InvalidArchetypeID, invalidRow, false
	}
	return rec.archetype, rec.row, true
}

// availableHandle reuses a freed handle (generation already advanced at
// erase time) or mints a fresh one.
func (s *internalState) availableHandle() types.HandleKey {
	if len(s.freedHandles) > 0 {
		key := s.freedHandles[0]
		s.freedHandles = s.freedHandles[1:]
		return key
	}
	return s.nextKey.PostIncrementIndex()
}

func (s *internalState) countLiveEntities() int {
	return len(s.handleMap) - len(s.freedHandles)
}

// clone deep-copies the whole state: archetypes with their columns, the
// handle map, the free list, the name map, and every query backend with its
// listener registries.
func (s *internalState) clone() *internalState {
	cloned := &internalState{
		nextKey:       s.nextKey,
		handleMap:     make(map[uint64]*entityRecord, len(s.handleMap)),
		freedHandles:  append([]types.HandleKey(nil), s.freedHandles...),
		nameMap:       make(map[name.StringID]types.HandleKey, len(s.nameMap)),
		queryBackends: make(map[string]*queryBackend, len(s.queryBackends)),
		archetypes:    s.archetypes.Clone(),
	}
	for index, rec := range s.handleMap {
		copied := *rec
		cloned.handleMap[index] = &copied
	}
	for id, key := range s.nameMap {
		cloned.nameMap[id] = key
	}
	for key, backend := range s.queryBackends {
		cloned.queryBackends[key] = backend.clone()
	}
	return cloned
}

// EntityManager owns all entity, component, archetype, and query backend
// data. None of its operations are safe for concurrent use; only
// Phase.Append may be called from other goroutines.
type EntityManager struct {
	id     uuid.UUID
	logger *zerolog.Logger
	state  *internalState
}

var telemetryOnce sync.Once

// NewEntityManager creates an empty manager: no entities, one (empty)
// archetype, no query backends.
func NewEntityManager() *EntityManager {
	telemetryOnce.Do(func() {
		cfg := config.Get()
		if cfg.ArkheLogLevel != "" {
			if level, err := zerolog.ParseLevel(cfg.ArkheLogLevel); err != nil {
				zlog.Warn().Err(err).Msg("invalid ARKHE_LOG_LEVEL")
			} else {
				zerolog.SetGlobalLevel(level)
			}
		}
		if cfg.ArkheStatsdAddress == "" {
			return
		}
		if err := statsd.Init(cfg.ArkheStatsdAddress, nil); err != nil {
			zlog.Warn().Err(err).Msg("failed to initialize statsd client")
		}
	})
	m := &EntityManager{
		id:    uuid.New(),
		state: newInternalState(),
	}
	m.logger = ecslog.CreateManagerLogger(&zlog.Logger, m.id.String())
	return m
}

// ID returns the manager's process-unique identity.
func (m *EntityManager) ID() uuid.UUID {
	return m.id
}

// AddEntity creates a new entity carrying no components, optionally bound to
// a debugging name. The returned handle stays valid until the entity is
// erased, across any archetype moves.
//
// Warning: not thread safe.
func (m *EntityManager) AddEntity(names ...string) Handle {
	st := m.state
	key := st.availableHandle()
	empty := st.archetypes.GetEmpty()

	rec := &entityRecord{
		key:       key,
		archetype: types.EmptyArchetypeID,
		row:       empty.CountEntities(),
		name:      name.Unset,
	}
	if len(names) > 0 && names[0] != "" {
		rec.name = name.Intern(names[0])
		if _, taken := st.nameMap[rec.name]; taken && config.Sanitize() {
			panic(eris.Errorf("entity name %q is already in use", names[0]))
		}
		st.nameMap[rec.name] = key
	}
	st.handleMap[key.Index()] = rec
	empty.PushKey(key)

	ecslog.Entity(m.logger, zerolog.DebugLevel, key, types.EmptyArchetypeID, empty.TypeSet())
	return Handle{key: key, manager: m}
}

// AddBlueprint creates an entity pre-tagged with the Blueprint marker, to be
// used as a cloning template. Queries that do not name Blueprint never see
// it.
func (m *EntityManager) AddBlueprint(names ...string) Handle {
	h := m.AddEntity(names...)
	addComponentNow(m, h, Blueprint{})
	return h
}

// CreateFromBlueprint creates a new entity carrying deep copies of every
// component on the blueprint except the Blueprint marker itself. The
// blueprint is untouched.
func (m *EntityManager) CreateFromBlueprint(blueprint Handle, entityName string) (Handle, error) {
	if blueprint.manager != m {
		return Handle{}, eris.Wrap(ErrInvalidHandle, "blueprint handle belongs to a different manager")
	}
	srcRec, ok := m.state.record(blueprint.key)
	if !ok {
		return Handle{}, eris.Wrap(ErrInvalidHandle, "blueprint handle is stale")
	}

	h := m.AddEntity(entityName)
	st := m.state
	rec := st.handleMap[h.key.Index()]
	srcArch := st.archetypes.Get(srcRec.archetype)

	// Pull the clone out of the empty archetype, then copy the blueprint's
	// row wholesale (marker included) into the blueprint's archetype.
	st.archetypes.GetEmpty().RemoveRow(rec.row, st)
	srcArch.CopyRow(srcRec.row, h.key, srcArch, st)
	rec.archetype = srcArch.ID()

	for _, backend := range m.extraBackends(srcArch.TypeSet(), types.MakeTypeSet()) {
		backend.signalEntityAdded(h, srcArch, rec.row)
	}

	removeComponentByIDNow(m, h, blueprintID())
	return h, nil
}

// CountLiveEntities returns the number of entities that have been added and
// not erased.
func (m *EntityManager) CountLiveEntities() int {
	return m.state.countLiveEntities()
}

// ForEachHandle enumerates all live handles, in index order.
func (m *EntityManager) ForEachHandle(visit func(Handle)) {
	indices := make([]uint64, 0, len(m.state.handleMap))
	for index, rec := range m.state.handleMap {
		if rec.row != invalidRow {
			indices = append(indices, index)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	for _, index := range indices {
		visit(Handle{key: m.state.handleMap[index].key, manager: m})
	}
}

// HandleFromName returns the handle bound to the given name by AddEntity.
// Debug helper; name uniqueness is only enforced in sanitize mode.
func (m *EntityManager) HandleFromName(entityName string) (Handle, bool) {
	id, ok := name.Find(entityName)
	if !ok {
		return Handle{}, false
	}
	key, ok := m.state.nameMap[id]
	if !ok {
		return Handle{}, false
	}
	if _, live := m.state.record(key); !live {
		return Handle{}, false
	}
	return Handle{key: key, manager: m}, true
}

// CountArchetypes returns the number of archetypes that have been created,
// the empty one included.
func (m *EntityManager) CountArchetypes() int {
	return m.state.archetypes.Count()
}

// ensureBackend returns the query backend for the sequence, creating it and
// prepopulating its matches from all current archetypes on first use.
func (m *EntityManager) ensureBackend(sequence types.TypeSequence) *queryBackend {
	key := sequence.Key()
	if backend, ok := m.state.queryBackends[key]; ok {
		return backend
	}
	backend := newQueryBackend(sequence, m.state.archetypes)
	m.state.queryBackends[key] = backend
	ecslog.Backend(m.logger, zerolog.DebugLevel, sequence, len(backend.matches))
	return backend
}

// offerArchetype presents a freshly inserted archetype to every backend.
func (m *EntityManager) offerArchetype(id types.ArchetypeID) {
	archetype := m.state.archetypes.Get(id)
	for _, backend := range m.state.queryBackends {
		backend.pushIfMatches(archetype)
	}
}

// backendsMatching lists backends whose filter accepts the given set.
func (m *EntityManager) backendsMatching(set types.TypeSet) []*queryBackend {
	var matching []*queryBackend
	for _, backend := range m.state.queryBackends {
		if backend.matchesSet(set) {
			matching = append(matching, backend)
		}
	}
	return matching
}

// extraBackends lists backends that match target but not reference. This is
// the event dispatch set for a move between the two component sets.
func (m *EntityManager) extraBackends(target, reference types.TypeSet) []*queryBackend {
	var extra []*queryBackend
	for _, backend := range m.state.queryBackends {
		if backend.matchesSet(target) && !backend.matchesSet(reference) {
			extra = append(extra, backend)
		}
	}
	return extra
}

// addComponentNow performs the structural part of Entity.Add: it runs at
// phase replay time, or immediately for manager-internal callers.
func addComponentNow[T types.Component](m *EntityManager, h Handle, value T) {
	st := m.state
	rec, ok := st.record(h.key)
	if !ok {
		if config.Sanitize() {
			panic(eris.Wrap(ErrInvalidHandle, "add component through a stale handle"))
		}
		return
	}
	cid := component.ID[T]()
	src := st.archetypes.Get(rec.archetype)

	if src.HasComponent(cid) {
		// Component already present: overwrite in place, no event, record
		// unchanged.
		col, err := src.ColumnByID(cid)
		if err != nil {
			panic(err)
		}
		storage.Set(col, rec.row, value)
		return
	}

	extendedSet := src.TypeSet().Union(cid)
	dstID, inserted := st.archetypes.MakeIfAbsent(extendedSet, func() *storage.Archetype {
		return src.MakeExtended(storage.NewColumn[T](cid))
	})
	if inserted {
		m.offerArchetype(dstID)
	}
	dst := st.archetypes.Get(dstID)

	src.MoveRow(rec.row, dst, st)
	col, err := dst.ColumnByID(cid)
	if err != nil {
		panic(err)
	}
	storage.Push(col, value)
	rec.archetype = dstID
	rec.row = dst.CountEntities() - 1

	ecslog.Move(m.logger, zerolog.DebugLevel, h.key, src.ID(), dstID)
	for _, backend := range m.extraBackends(dst.TypeSet(), src.TypeSet()) {
		backend.signalEntityAdded(h, dst, rec.row)
	}
	m.sanitizeAfterMutation(dst)
}

// removeComponentNow mirrors addComponentNow for removal.
func removeComponentNow[T types.Component](m *EntityManager, h Handle) {
	removeComponentByIDNow(m, h, component.ID[T]())
}

func removeComponentByIDNow(m *EntityManager, h Handle, cid types.ComponentID) {
	st := m.state
	rec, ok := st.record(h.key)
	if !ok {
		if config.Sanitize() {
			panic(eris.Wrap(ErrInvalidHandle, "remove component through a stale handle"))
		}
		return
	}
	src := st.archetypes.Get(rec.archetype)
	if !src.HasComponent(cid) {
		// Component already absent: no event.
		return
	}

	restrictedSet := src.TypeSet().Without(cid)
	dstID, inserted := st.archetypes.MakeIfAbsent(restrictedSet, func() *storage.Archetype {
		return src.MakeRestricted(cid)
	})
	if inserted {
		m.offerArchetype(dstID)
	}
	dst := st.archetypes.Get(dstID)

	// Listeners must still see the component, so removal events fire
	// before the row moves.
	for _, backend := range m.extraBackends(src.TypeSet(), dst.TypeSet()) {
		backend.signalEntityRemoved(h, src, rec.row)
	}

	src.MoveRow(rec.row, dst, st)
	rec.archetype = dstID
	rec.row = dst.CountEntities() - 1

	ecslog.Move(m.logger, zerolog.DebugLevel, h.key, src.ID(), dstID)
	m.sanitizeAfterMutation(dst)
}

// eraseEntityNow removes the entity from its archetype, fires removal events
// for every matching backend, and retires the handle's generation so that
// all outstanding copies of the handle go stale.
func eraseEntityNow(m *EntityManager, h Handle) {
	st := m.state
	rec, ok := st.record(h.key)
	if !ok {
		if config.Sanitize() {
			panic(eris.Wrap(ErrDoubleErase, "erase through a stale handle"))
		}
		return
	}
	archetype := st.archetypes.Get(rec.archetype)

	for _, backend := range m.backendsMatching(archetype.TypeSet()) {
		backend.signalEntityRemoved(h, archetype, rec.row)
	}
	archetype.RemoveRow(rec.row, st)

	if rec.name != name.Unset {
		// Only drop the binding if it still points at this entity: a later
		// entity registered under the same name keeps its binding.
		if bound, ok := st.nameMap[rec.name]; ok && bound == rec.key {
			delete(st.nameMap, rec.name)
		}
		rec.name = name.Unset
	}
	if rec.key == types.MakeLatestKey() {
		panic(eris.New("the reserved invalid handle key cannot be retired"))
	}
	rec.row = invalidRow
	rec.archetype = types.InvalidArchetypeID
	rec.key = rec.key.AdvanceGeneration()
	st.freedHandles = append(st.freedHandles, rec.key)
}

// copyComponentsNow implements the deferred Entity.CopyFrom: dst acquires a
// copy of every component present on src, overwriting shared ones and
// keeping its own extras.
func copyComponentsNow(m *EntityManager, dst Handle, src Handle) {
	st := m.state
	dstRec, ok := st.record(dst.key)
	if !ok {
		if config.Sanitize() {
			panic(eris.Wrap(ErrInvalidHandle, "copy into a stale handle"))
		}
		return
	}
	srcRec, ok := st.record(src.key)
	if !ok {
		if config.Sanitize() {
			panic(eris.Wrap(ErrInvalidHandle, "copy from a stale handle"))
		}
		return
	}

	dstArch := st.archetypes.Get(dstRec.archetype)
	srcArch := st.archetypes.Get(srcRec.archetype)
	originalSet := dstArch.TypeSet()
	targetSet := originalSet.Merge(srcArch.TypeSet())

	targetID, inserted := st.archetypes.MakeIfAbsent(targetSet, func() *storage.Archetype {
		columns := make(storage.DataStore, 0, targetSet.Len())
		for _, id := range targetSet.IDs() {
			if idx := srcArch.ColumnIndex(id); idx >= 0 {
				columns = append(columns, srcArch.Column(idx).CloneEmpty())
				continue
			}
			columns = append(columns, dstArch.Column(dstArch.ColumnIndex(id)).CloneEmpty())
		}
		return storage.NewArchetype(targetSet, columns)
	})
	if inserted {
		m.offerArchetype(targetID)
	}
	target := st.archetypes.Get(targetID)

	if target != dstArch {
		dstArch.MoveRow(dstRec.row, target, st)
		dstRec.archetype = targetID
		dstRec.row = len(target.Rows()) - 1
	}
	// srcArch and target may be the same archetype; the source row is
	// left untouched either way.
	for _, id := range srcArch.TypeSet().IDs() {
		srcCol := srcArch.Column(srcArch.ColumnIndex(id))
		targetCol := target.Column(target.ColumnIndex(id))
		if originalSet.Contains(id) {
			targetCol.SetCopiedFrom(dstRec.row, srcCol, srcRec.row)
		} else {
			targetCol.PushCopiedFrom(srcCol, srcRec.row)
		}
	}

	for _, backend := range m.extraBackends(target.TypeSet(), originalSet) {
		backend.signalEntityAdded(dst, target, dstRec.row)
	}
	m.sanitizeAfterMutation(target)
}

func (m *EntityManager) sanitizeAfterMutation(archetype *storage.Archetype) {
	if !config.Sanitize() {
		return
	}
	if err := archetype.VerifyStoresConsistency(); err != nil {
		panic(err)
	}
	if err := archetype.VerifyHandlesConsistency(m.state); err != nil {
		panic(err)
	}
}

// recordPhaseFlush reports phase replay timing to the metrics sink.
func recordPhaseFlush(start time.Time) {
	statsd.EmitPhaseStat(start, "flush")
}
