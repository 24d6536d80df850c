package arkhe_test

import (
	"testing"

	"github.com/arkhe-engine/arkhe"
	"github.com/arkhe-engine/arkhe/assert"
)

func TestAddListenerFiresAtMostOncePerTransition(t *testing.T) {
	world := arkhe.NewEntityManager()
	h1 := world.AddEntity()
	q := arkhe.NewQuery[ComponentA](world)

	added := 0
	listening := q.OnAddEntity(func(arkhe.Handle, *ComponentA) { added++ })
	defer listening.Close()

	// Adding twice in one phase transitions once; the second add is an
	// in-place overwrite.
	phase := arkhe.NewPhase()
	entity, _ := h1.Get(phase)
	arkhe.Add(entity, ComponentA{D: 1})
	arkhe.Add(entity, ComponentA{D: 2})
	phase.Commit()
	assert.Equal(t, added, 1)

	// Remove and re-add: a second genuine transition.
	phase2 := arkhe.NewPhase()
	entity, _ = h1.Get(phase2)
	arkhe.Remove[ComponentA](entity)
	arkhe.Add(entity, ComponentA{D: 3})
	phase2.Commit()
	assert.Equal(t, added, 2)
}

func TestRemoveListenerFiresOnceAndSeesTheComponent(t *testing.T) {
	world := arkhe.NewEntityManager()
	h1 := world.AddEntity()
	q := arkhe.NewQuery[ComponentA](world)

	setup := arkhe.NewPhase()
	entity, _ := h1.Get(setup)
	arkhe.Add(entity, ComponentA{D: 7})
	setup.Commit()

	removed := 0
	var lastSeen float64
	listening := q.OnRemoveEntity(func(_ arkhe.Handle, a *ComponentA) {
		removed++
		lastSeen = a.D
	})
	defer listening.Close()

	phase := arkhe.NewPhase()
	entity, _ = h1.Get(phase)
	arkhe.Remove[ComponentA](entity)
	arkhe.Remove[ComponentA](entity)
	phase.Commit()

	assert.Equal(t, removed, 1)
	// The listener runs before the row moves, so the value is intact.
	assert.Equal(t, lastSeen, 7.0)
}

func TestEraseFiresRemoveListeners(t *testing.T) {
	world := arkhe.NewEntityManager()
	h1 := world.AddEntity()
	q := arkhe.NewQuery[ComponentA](world)

	setup := arkhe.NewPhase()
	entity, _ := h1.Get(setup)
	arkhe.Add(entity, ComponentA{D: 1})
	setup.Commit()

	removed := 0
	listening := q.OnRemoveEntity(func(h arkhe.Handle, _ *ComponentA) {
		removed++
		// The handle is still resolvable inside the callback.
		assert.True(t, h.IsValid())
	})
	defer listening.Close()

	phase := arkhe.NewPhase()
	entity, _ = h1.Get(phase)
	entity.Erase()
	phase.Commit()

	assert.Equal(t, removed, 1)
	assert.False(t, h1.IsValid())
}

func TestListenersAreNotRetroactive(t *testing.T) {
	world := arkhe.NewEntityManager()
	addEntityWith(t, world, withA(1))

	q := arkhe.NewQuery[ComponentA](world)
	added := 0
	listening := q.OnAddEntity(func(arkhe.Handle, *ComponentA) { added++ })
	defer listening.Close()

	// The pre-existing matching entity must not be announced.
	assert.Equal(t, added, 0)

	addEntityWith(t, world, withA(2))
	assert.Equal(t, added, 1)
}

func TestListeningCloseStopsDelivery(t *testing.T) {
	world := arkhe.NewEntityManager()
	q := arkhe.NewQuery[ComponentA](world)

	added := 0
	listening := q.OnAddEntity(func(arkhe.Handle, *ComponentA) { added++ })

	addEntityWith(t, world, withA(1))
	assert.Equal(t, added, 1)

	listening.Close()
	addEntityWith(t, world, withA(2))
	assert.Equal(t, added, 1)

	// Closing twice is harmless.
	listening.Close()
}

func TestCloseRemovesExactlyItsListener(t *testing.T) {
	world := arkhe.NewEntityManager()
	q := arkhe.NewQuery[ComponentA](world)

	first, second := 0, 0
	l1 := q.OnAddEntity(func(arkhe.Handle, *ComponentA) { first++ })
	l2 := q.OnAddEntity(func(arkhe.Handle, *ComponentA) { second++ })
	defer l2.Close()

	l1.Close()
	addEntityWith(t, world, withA(1))

	assert.Equal(t, first, 0)
	assert.Equal(t, second, 1)
}

func TestListenerReceivesHandleAndComponents(t *testing.T) {
	world := arkhe.NewEntityManager()
	q := arkhe.NewQuery2[ComponentA, ComponentB](world)

	var gotHandle arkhe.Handle
	var gotA float64
	var gotB string
	listening := q.OnAddEntity(func(h arkhe.Handle, a *ComponentA, b *ComponentB) {
		gotHandle = h
		gotA = a.D
		gotB = b.Str
	})
	defer listening.Close()

	h := addEntityWith(t, world, withA(5), withB("five"))

	assert.Assert(t, gotHandle == h)
	assert.Equal(t, gotA, 5.0)
	assert.Equal(t, gotB, "five")
}
