package arkhe_test

import (
	"testing"

	"github.com/arkhe-engine/arkhe"
	"github.com/arkhe-engine/arkhe/assert"
)

type SimulationClock struct {
	Ticks int
}

func (SimulationClock) Name() string { return "arkhe_test.simulation_clock" }

func TestWrapStoresAndReturnsValue(t *testing.T) {
	world := arkhe.NewEntityManager()
	clock := arkhe.NewWrap(world, SimulationClock{Ticks: 10})

	assert.Equal(t, clock.Get().Ticks, 10)

	clock.Get().Ticks = 25
	assert.Equal(t, clock.Get().Ticks, 25)
}

func TestWrapParticipatesInSnapshots(t *testing.T) {
	world := arkhe.NewEntityManager()
	clock := arkhe.NewWrap(world, SimulationClock{Ticks: 1})

	saved := world.SaveState()
	clock.Get().Ticks = 99

	world.RestoreState(saved)
	assert.Equal(t, clock.Get().Ticks, 1)
}

func TestWrapCloseErasesTheEntity(t *testing.T) {
	world := arkhe.NewEntityManager()
	before := world.CountLiveEntities()
	clock := arkhe.NewWrap(world, SimulationClock{})

	assert.Equal(t, world.CountLiveEntities(), before+1)
	clock.Close()
	assert.Equal(t, world.CountLiveEntities(), before)
	assert.False(t, clock.Handle().IsValid())
}
