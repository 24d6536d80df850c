package arkhe_test

import (
	"sync"
	"testing"

	"github.com/arkhe-engine/arkhe"
	"github.com/arkhe-engine/arkhe/assert"
)

func TestPhaseRepliesInInsertionOrder(t *testing.T) {
	world := arkhe.NewEntityManager()
	h1 := world.AddEntity()

	setup := arkhe.NewPhase()
	entity, _ := h1.Get(setup)
	arkhe.Add(entity, ComponentA{D: 1})
	setup.Commit()

	q := arkhe.NewQuery[ComponentA](world)
	var events []string
	onAdd := q.OnAddEntity(func(arkhe.Handle, *ComponentA) { events = append(events, "add") })
	defer onAdd.Close()
	onRemove := q.OnRemoveEntity(func(arkhe.Handle, *ComponentA) { events = append(events, "remove") })
	defer onRemove.Close()

	// remove then add in one phase must replay as two distinct operations
	// in that order.
	phase := arkhe.NewPhase()
	entity, _ = h1.Get(phase)
	arkhe.Remove[ComponentA](entity)
	arkhe.Add(entity, ComponentA{D: 2})
	phase.Commit()

	assert.DeepEqual(t, events, []string{"remove", "add"})
	view, _ := h1.View()
	got, err := arkhe.Get[ComponentA](view)
	assert.NilError(t, err)
	assert.Equal(t, got.D, 2.0)
	assert.Equal(t, q.CountMatches(), 1)
}

func TestDoubleAddKeepsLastValue(t *testing.T) {
	world := arkhe.NewEntityManager()
	h1 := world.AddEntity()

	phase := arkhe.NewPhase()
	entity, _ := h1.Get(phase)
	arkhe.Add(entity, ComponentA{D: 1})
	arkhe.Add(entity, ComponentA{D: 2})
	phase.Commit()

	view, _ := h1.View()
	got, err := arkhe.Get[ComponentA](view)
	assert.NilError(t, err)
	assert.Equal(t, got.D, 2.0)
}

func TestDoubleRemoveIsIdempotent(t *testing.T) {
	world := arkhe.NewEntityManager()
	h1 := world.AddEntity()

	setup := arkhe.NewPhase()
	entity, _ := h1.Get(setup)
	arkhe.Add(entity, ComponentA{D: 1})
	setup.Commit()

	phase := arkhe.NewPhase()
	entity, _ = h1.Get(phase)
	arkhe.Remove[ComponentA](entity)
	arkhe.Remove[ComponentA](entity)
	phase.Commit()

	view, _ := h1.View()
	assert.False(t, arkhe.Has[ComponentA](view))
}

func TestPhaseAppendIsThreadSafe(t *testing.T) {
	world := arkhe.NewEntityManager()
	const workers = 8
	const perWorker = 64

	handles := make([]arkhe.Handle, workers*perWorker)
	for i := range handles {
		handles[i] = world.AddEntity()
	}

	phase := arkhe.NewPhase()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				entity, _ := handles[w*perWorker+i].Get(phase)
				arkhe.Add(entity, ComponentA{D: float64(w)})
			}
		}(w)
	}
	wg.Wait()
	phase.Commit()

	q := arkhe.NewQuery[ComponentA](world)
	assert.Equal(t, q.CountMatches(), workers*perWorker)
}

func TestPhaseUseAfterCommitPanics(t *testing.T) {
	phase := arkhe.NewPhase()
	phase.Commit()

	assert.Panics(t, func() { phase.Append(func() {}) })
	assert.Panics(t, func() { phase.Commit() })
}
