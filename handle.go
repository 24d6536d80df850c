package arkhe

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/arkhe-engine/arkhe/component"
	"github.com/arkhe-engine/arkhe/name"
	"github.com/arkhe-engine/arkhe/storage"
	"github.com/arkhe-engine/arkhe/types"
)

// Handle is the public reference to an entity. It stays valid across
// archetype moves and goes stale when the entity is erased, because erasure
// advances the generation stored in the handle map.
//
// Handles are plain values: copyable, comparable (equality is manager
// identity plus the full key), and safe to keep across deferred mutation.
// The zero Handle is always invalid.
type Handle struct {
	key     types.HandleKey
	manager *EntityManager
}

// The empty-handle manager resolves default-constructed handles. It holds a
// single, permanently invalid record, so handle operations never need a nil
// branch for "no manager". Initialized on first use, never torn down.
var (
	emptyHandleManagerOnce sync.Once
	emptyHandleManager     *EntityManager
)

func sentinelManager() *EntityManager {
	emptyHandleManagerOnce.Do(func() {
		disabled := zlog.Logger.Level(zerolog.Disabled)
		m := &EntityManager{
			id:     uuid.New(),
			state:  newInternalState(),
			logger: &disabled,
		}
		latest := types.MakeLatestKey()
		m.state.handleMap[latest.Index()] = &entityRecord{
			key:       latest,
			archetype: types.InvalidArchetypeID,
			row:       invalidRow,
			name:      name.Unset,
		}
		emptyHandleManager = m
	})
	return emptyHandleManager
}

// InvalidHandle returns the distinguished always-invalid handle: the
// reserved all-ones key, resolving into the empty-handle manager.
func InvalidHandle() Handle {
	return Handle{key: types.MakeLatestKey(), manager: nil}
}

func (h Handle) resolveManager() *EntityManager {
	if h.manager != nil {
		return h.manager
	}
	return sentinelManager()
}

func (h Handle) record() (*entityRecord, bool) {
	return h.resolveManager().state.record(h.key)
}

// IsValid reports whether the handle still points at a live entity: the
// generation stored for this key's index equals the handle's own generation.
func (h Handle) IsValid() bool {
	_, ok := h.record()
	return ok
}

// ID returns the index portion of the key only, discarding the generation.
func (h Handle) ID() uint64 {
	return h.key.Index()
}

// Key returns the full packed key.
func (h Handle) Key() types.HandleKey {
	return h.key
}

// Name returns the debugging name bound at AddEntity time.
func (h Handle) Name() (string, bool) {
	rec, ok := h.record()
	if !ok || rec.name == name.Unset {
		return "", false
	}
	return name.Lookup(rec.name)
}

// View returns an immediate, no-phase view of the entity, for reads only.
// ok is false for a stale handle.
func (h Handle) View() (View, bool) {
	rec, ok := h.record()
	if !ok {
		return View{}, false
	}
	manager := h.resolveManager()
	return View{
		handle:    h,
		archetype: manager.state.archetypes.Get(rec.archetype),
		row:       rec.row,
	}, true
}

// Get returns the entity behind the handle, with structural mutation
// deferred into phase. ok is false for a stale handle.
//
// The handle may be copied freely; the returned Entity must not outlive the
// phase.
func (h Handle) Get(phase *Phase) (Entity, bool) {
	view, ok := h.View()
	if !ok {
		return Entity{}, false
	}
	return Entity{view: view, phase: phase}, true
}

// View is the immediate (read-only, no-phase) aspect of an entity: typed
// component access against the archetype row the entity occupied when the
// view was taken. Structural mutation invalidates it; re-resolve through the
// handle after any phase commit.
type View struct {
	handle    Handle
	archetype *storage.Archetype
	row       int
}

// Handle returns the handle the view was resolved from.
func (v View) Handle() Handle {
	return v.handle
}

// Has reports whether the viewed entity carries component T.
func Has[T types.Component](v View) bool {
	if v.archetype == nil {
		return false
	}
	return v.archetype.HasComponent(component.ID[T]())
}

// Get returns a pointer to the viewed entity's component T, or
// ErrMissingComponent. The pointer is valid until the next structural
// mutation.
func Get[T types.Component](v View) (*T, error) {
	if v.archetype == nil {
		return nil, eris.Wrap(ErrInvalidHandle, "component access through an absent view")
	}
	col, err := v.archetype.ColumnByID(component.ID[T]())
	if err != nil {
		return nil, err
	}
	return storage.Get[T](col, v.row), nil
}

// Entity is the deferrable aspect of an entity: reads are immediate through
// the embedded view, structural changes are appended to the phase and
// applied at commit.
type Entity struct {
	view  View
	phase *Phase
}

// View returns the immediate view of the entity.
func (e Entity) View() View {
	return e.view
}

// Handle returns the entity's handle.
func (e Entity) Handle() Handle {
	return e.view.handle
}

// Add defers attaching component T with the given value. Adding a component
// that is already present overwrites it in place at commit time, without
// firing an add event.
func Add[T types.Component](e Entity, value T) {
	h := e.view.handle
	e.phase.Append(func() {
		addComponentNow(h.resolveManager(), h, value)
	})
}

// Remove defers detaching component T. Removing an absent component is a
// no-op without a remove event.
func Remove[T types.Component](e Entity) {
	h := e.view.handle
	e.phase.Append(func() {
		removeComponentNow[T](h.resolveManager(), h)
	})
}

// Erase defers removing the entity itself from the manager.
func (e Entity) Erase() {
	h := e.view.handle
	e.phase.Append(func() {
		eraseEntityNow(h.resolveManager(), h)
	})
}

// CopyFrom defers copying every component present on src onto this entity,
// overwriting shared components and keeping this entity's extras.
func (e Entity) CopyFrom(src Handle) {
	h := e.view.handle
	e.phase.Append(func() {
		copyComponentsNow(h.resolveManager(), h, src)
	})
}
