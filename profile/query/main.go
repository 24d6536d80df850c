// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query cpu.pprof

package main

import (
	"github.com/pkg/profile"

	"github.com/arkhe-engine/arkhe"
)

type position struct {
	X, Y float64
}

func (position) Name() string { return "profile.position" }

type velocity struct {
	X, Y float64
}

func (velocity) Name() string { return "profile.velocity" }

func main() {
	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	defer p.Stop()

	rounds := 50
	iters := 1000
	entities := 10000
	run(rounds, iters, entities)
}

func run(rounds, iters, numEntities int) {
	for r := 0; r < rounds; r++ {
		world := arkhe.NewEntityManager()

		spawn := arkhe.NewPhase()
		for i := 0; i < numEntities; i++ {
			entity, _ := world.AddEntity().Get(spawn)
			arkhe.Add(entity, position{X: float64(i)})
			arkhe.Add(entity, velocity{X: 1, Y: 1})
		}
		spawn.Commit()

		query := arkhe.NewQuery2[position, velocity](world)
		for i := 0; i < iters; i++ {
			query.Each(func(p *position, v *velocity) {
				p.X += v.X
				p.Y += v.Y
			})
		}
	}
}
