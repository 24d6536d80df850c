package arkhe_test

import (
	"sort"
	"testing"

	"github.com/arkhe-engine/arkhe"
	"github.com/arkhe-engine/arkhe/assert"
	"github.com/arkhe-engine/arkhe/config"
)

func addEntityWith(t *testing.T, world *arkhe.EntityManager, components ...func(arkhe.Entity)) arkhe.Handle {
	t.Helper()
	h := world.AddEntity()
	phase := arkhe.NewPhase()
	entity, ok := h.Get(phase)
	assert.True(t, ok)
	for _, attach := range components {
		attach(entity)
	}
	phase.Commit()
	return h
}

func withA(d float64) func(arkhe.Entity) {
	return func(e arkhe.Entity) { arkhe.Add(e, ComponentA{D: d}) }
}

func withB(s string) func(arkhe.Entity) {
	return func(e arkhe.Entity) { arkhe.Add(e, ComponentB{Str: s}) }
}

func TestQueryIteratesAcrossArchetypes(t *testing.T) {
	world := arkhe.NewEntityManager()
	addEntityWith(t, world, withA(1))
	addEntityWith(t, world, withA(2), withB("two"))
	addEntityWith(t, world, withB("ignored"))

	q := arkhe.NewQuery[ComponentA](world)
	assert.Equal(t, q.CountMatches(), 2)

	var seen []float64
	q.Each(func(a *ComponentA) { seen = append(seen, a.D) })
	sort.Float64s(seen)
	assert.DeepEqual(t, seen, []float64{1, 2})
}

func TestQueryCreatedAfterArchetypesPrepopulates(t *testing.T) {
	world := arkhe.NewEntityManager()
	addEntityWith(t, world, withA(1), withB("x"))

	// The backend did not exist when the archetype was created; it must
	// pick it up on construction.
	q := arkhe.NewQuery2[ComponentA, ComponentB](world)
	assert.Equal(t, q.CountMatches(), 1)
}

func TestQuery2DeclarationOrderAndSubsets(t *testing.T) {
	world := arkhe.NewEntityManager()
	h := addEntityWith(t, world, withB("payload"), withA(4))

	q := arkhe.NewQuery2[ComponentA, ComponentB](world)
	q.Each(func(a *ComponentA, b *ComponentB) {
		assert.Equal(t, a.D, 4.0)
		assert.Equal(t, b.Str, "payload")
	})

	var firsts []float64
	q.EachFirst(func(a *ComponentA) { firsts = append(firsts, a.D) })
	assert.DeepEqual(t, firsts, []float64{4})

	var seconds []string
	q.EachSecond(func(b *ComponentB) { seconds = append(seconds, b.Str) })
	assert.DeepEqual(t, seconds, []string{"payload"})

	q.EachWithHandle(func(got arkhe.Handle, a *ComponentA, _ *ComponentB) {
		assert.Assert(t, got == h)
		assert.Equal(t, a.D, 4.0)
	})

	var handles []arkhe.Handle
	q.EachHandle(func(got arkhe.Handle) { handles = append(handles, got) })
	assert.Len(t, handles, 1)
	assert.Assert(t, handles[0] == h)

	// The reversed declaration order is a distinct backend with its own
	// parameter order.
	reversed := arkhe.NewQuery2[ComponentB, ComponentA](world)
	reversed.Each(func(b *ComponentB, a *ComponentA) {
		assert.Equal(t, b.Str, "payload")
		assert.Equal(t, a.D, 4.0)
	})
	assert.Equal(t, reversed.CountMatches(), 1)
}

func TestQueryMutationThroughIteration(t *testing.T) {
	world := arkhe.NewEntityManager()
	addEntityWith(t, world, withA(1))
	addEntityWith(t, world, withA(2))

	q := arkhe.NewQuery[ComponentA](world)
	q.Each(func(a *ComponentA) { a.D *= 10 })

	var seen []float64
	q.Each(func(a *ComponentA) { seen = append(seen, a.D) })
	sort.Float64s(seen)
	assert.DeepEqual(t, seen, []float64{10, 20})
}

func TestEachPairVisitsEveryUnorderedPairOnce(t *testing.T) {
	world := arkhe.NewEntityManager()
	addEntityWith(t, world, withA(10))
	addEntityWith(t, world, withA(100))
	addEntityWith(t, world, withA(1000))

	q := arkhe.NewQuery[ComponentA](world)
	pairs := make(map[[2]float64]int)
	q.EachPair(func(left, right *ComponentA) {
		pairs[[2]float64{left.D, right.D}]++
	})

	assert.Len(t, pairs, 3)
	assert.Equal(t, pairs[[2]float64{10, 100}], 1)
	assert.Equal(t, pairs[[2]float64{10, 1000}], 1)
	assert.Equal(t, pairs[[2]float64{100, 1000}], 1)
}

func TestEachPairSpansArchetypes(t *testing.T) {
	world := arkhe.NewEntityManager()
	// Two archetypes: {A} and {A, B}.
	addEntityWith(t, world, withA(1))
	addEntityWith(t, world, withA(2), withB("x"))
	addEntityWith(t, world, withA(3), withB("y"))

	q := arkhe.NewQuery[ComponentA](world)
	seen := make(map[[2]float64]int)
	q.EachPairWithHandles(func(lh, rh arkhe.Handle, left, right *ComponentA) {
		assert.Assert(t, lh != rh)
		assert.True(t, lh.IsValid())
		assert.True(t, rh.IsValid())
		seen[[2]float64{left.D, right.D}]++
	})
	// Pairs within {A}: none (single entity). Within {A,B}: (2,3).
	// Across: (1,2) and (1,3).
	assert.Len(t, seen, 3)
	for pair, count := range seen {
		assert.Equal(t, count, 1, "pair %v visited more than once", pair)
	}
}

func TestBlueprintArchetypesAreExcluded(t *testing.T) {
	world := arkhe.NewEntityManager()
	h1 := addEntityWith(t, world, withA(1))
	addEntityWith(t, world, withA(2))

	q := arkhe.NewQuery[ComponentA](world)
	assert.Equal(t, q.CountMatches(), 2)

	// Tagging one entity as a blueprint hides it from the query.
	phase := arkhe.NewPhase()
	entity, _ := h1.Get(phase)
	arkhe.Add(entity, arkhe.Blueprint{})
	phase.Commit()

	assert.Equal(t, q.CountMatches(), 1)

	// A query that names the marker sees it.
	blueprints := arkhe.NewQuery2[ComponentA, arkhe.Blueprint](world)
	assert.Equal(t, blueprints.CountMatches(), 1)
}

func TestQueryVerifyArchetypes(t *testing.T) {
	world := arkhe.NewEntityManager()
	addEntityWith(t, world, withA(1), withB("b"))
	addEntityWith(t, world, withA(2))

	q := arkhe.NewQuery[ComponentA](world)
	assert.NilError(t, q.VerifyArchetypes())
}

func TestSanitizeRejectsStructuralChangeDuringIteration(t *testing.T) {
	config.SetSanitize(true)
	t.Cleanup(func() { config.SetSanitize(false) })

	world := arkhe.NewEntityManager()
	b := world.AddBlueprint()
	phase := arkhe.NewPhase()
	entity, _ := b.Get(phase)
	arkhe.Add(entity, ComponentA{D: 1})
	phase.Commit()
	addEntityWith(t, world, withA(2))

	q := arkhe.NewQuery[ComponentA](world)
	assert.Panics(t, func() {
		q.Each(func(*ComponentA) {
			// Cloning the blueprint immediately moves a row into the
			// archetype being iterated.
			_, _ = world.CreateFromBlueprint(b, "")
		})
	})
}

func TestQueryValuesAreCopyable(t *testing.T) {
	world := arkhe.NewEntityManager()
	addEntityWith(t, world, withA(1))

	q := arkhe.NewQuery[ComponentA](world)
	copied := q
	assert.Equal(t, copied.CountMatches(), q.CountMatches())

	addEntityWith(t, world, withA(2))
	// Both values resolve the same shared backend.
	assert.Equal(t, copied.CountMatches(), 2)
	assert.Equal(t, q.CountMatches(), 2)
}
