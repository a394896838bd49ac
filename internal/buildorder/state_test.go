package buildorder

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleBlueprint1() *Blueprint {
	return MustBlueprint(1, map[Resource]map[Resource]int{
		Ore:      {Ore: 4},
		Clay:     {Ore: 2},
		Obsidian: {Ore: 3, Clay: 14},
		Geode:    {Ore: 2, Obsidian: 7},
	})
}

func exampleBlueprint2() *Blueprint {
	return MustBlueprint(2, map[Resource]map[Resource]int{
		Ore:      {Ore: 2},
		Clay:     {Ore: 3},
		Obsidian: {Ore: 3, Clay: 8},
		Geode:    {Ore: 3, Obsidian: 12},
	})
}

// requireContractPanic fails unless fn panics with an ErrContractViolation.
func requireContractPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.True(t, errors.Is(err, ErrContractViolation), "got %v", err)
	}()
	fn()
}

func TestNewStateIsCanonical(t *testing.T) {
	bp := exampleBlueprint1()
	s := NewState(bp, 24)

	assert.Equal(t, 24, s.TimeLeft)
	assert.Equal(t, [NumResources]int{1, 0, 0, 0}, s.Bots)
	assert.Equal(t, [NumResources]int{}, s.Stock)
	assert.Same(t, bp, s.Blueprint)
}

func TestSimulateStepAccruesAndLeavesReceiver(t *testing.T) {
	s := NewState(exampleBlueprint1(), 5)
	s.Bots = [NumResources]int{2, 1, 0, 3}
	s.Stock = [NumResources]int{1, 1, 1, 1}

	next := s.SimulateStep()

	assert.Equal(t, 4, next.TimeLeft)
	assert.Equal(t, [NumResources]int{3, 2, 1, 4}, next.Stock)
	assert.Equal(t, s.Bots, next.Bots)
	assert.Equal(t, 5, s.TimeLeft, "receiver must not change")
	assert.Equal(t, [NumResources]int{1, 1, 1, 1}, s.Stock)
}

func TestSimulateStepWithoutTimePanics(t *testing.T) {
	s := NewState(exampleBlueprint1(), 0)
	requireContractPanic(t, func() { s.SimulateStep() })
}

func TestCanAfford(t *testing.T) {
	s := NewState(exampleBlueprint1(), 3)
	assert.False(t, s.CanAfford(Clay))

	s.Stock[Ore] = 2
	assert.True(t, s.CanAfford(Clay))
	assert.False(t, s.CanAfford(Ore))
	assert.False(t, s.CanAfford(Obsidian))

	s.Stock[Ore] = 3
	s.Stock[Clay] = 14
	assert.True(t, s.CanAfford(Obsidian))

	s.TimeLeft = 0
	assert.False(t, s.CanAfford(Clay), "no time left means nothing is affordable")
}

func TestConstructPaysThenProducesThenAddsBot(t *testing.T) {
	s := NewState(exampleBlueprint1(), 10)
	s.Stock[Ore] = 2

	next := s.Construct(Clay)

	assert.Equal(t, 9, next.TimeLeft)
	assert.Equal(t, 1, next.Stock[Ore], "paid 2, then one ore bot produced 1")
	assert.Equal(t, 0, next.Stock[Clay], "new clay bot must not produce in its build step")
	assert.Equal(t, 1, next.Bots[Clay])
	assert.Equal(t, 0, s.Bots[Clay], "receiver must not change")

	after := next.SimulateStep()
	assert.Equal(t, 1, after.Stock[Clay])
}

func TestConstructUnaffordablePanics(t *testing.T) {
	s := NewState(exampleBlueprint1(), 10)
	requireContractPanic(t, func() { s.Construct(Geode) })

	s.Stock[Ore] = 100
	s.TimeLeft = 0
	requireContractPanic(t, func() { s.Construct(Ore) })
}

func TestNegativeHorizonPanics(t *testing.T) {
	requireContractPanic(t, func() { NewState(exampleBlueprint1(), -1) })
}

func TestHasPrerequisites(t *testing.T) {
	s := NewState(exampleBlueprint1(), 24)
	assert.True(t, s.HasPrerequisites(Ore))
	assert.True(t, s.HasPrerequisites(Clay))
	assert.False(t, s.HasPrerequisites(Obsidian))
	assert.False(t, s.HasPrerequisites(Geode))

	s.Bots[Clay] = 1
	assert.True(t, s.HasPrerequisites(Obsidian))
	assert.False(t, s.HasPrerequisites(Geode))

	// Stock already on hand is as good as a producer.
	s.Stock[Obsidian] = 7
	assert.True(t, s.HasPrerequisites(Geode))
}

func TestScores(t *testing.T) {
	s := NewState(exampleBlueprint1(), 6)
	s.Stock[Geode] = 3
	s.Bots[Geode] = 2

	assert.Equal(t, 3+2*6, s.IdleScore())
	assert.Equal(t, 3+2*6+15, s.OptimisticScore())

	s.TimeLeft = 0
	assert.Equal(t, 3, s.IdleScore())
	assert.Equal(t, 3, s.OptimisticScore())
}

// randomWalk advances s by random legal moves, returning every state it visits.
func randomWalk(rng *rand.Rand, s State) []State {
	visited := []State{s}
	for s.TimeLeft > 0 {
		kind := Resources[rng.Intn(NumResources)]
		if rng.Intn(3) > 0 && s.CanAfford(kind) {
			s = s.Construct(kind)
		} else {
			s = s.SimulateStep()
		}
		visited = append(visited, s)
	}
	return visited
}

func TestBoundsHoldOnReachableStates(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	for i := 0; i < 200; i++ {
		bp := randomBlueprint(rng, 4)
		for _, s := range randomWalk(rng, NewState(bp, 8+rng.Intn(10))) {
			require.GreaterOrEqual(t, s.OptimisticScore(), s.IdleScore(), "state %s", s)
		}
	}
}

func FuzzBoundSoundness(f *testing.F) {
	f.Add(uint8(4), uint8(2), uint8(3), uint8(14), uint8(2), uint8(7), uint8(8), uint8(1), uint8(1), uint8(0), uint8(3), uint8(5))
	f.Add(uint8(0), uint8(0), uint8(0), uint8(0), uint8(0), uint8(0), uint8(6), uint8(0), uint8(0), uint8(2), uint8(0), uint8(0))
	f.Add(uint8(1), uint8(1), uint8(1), uint8(1), uint8(1), uint8(1), uint8(0), uint8(3), uint8(3), uint8(3), uint8(9), uint8(9))

	f.Fuzz(func(t *testing.T, oreOre, clayOre, obsOre, obsClay, geoOre, geoObs, timeLeft, clayBots, obsBots, geoBots, ore, geodes uint8) {
		bp := MustBlueprint(1, map[Resource]map[Resource]int{
			Ore:      {Ore: int(oreOre % 6)},
			Clay:     {Ore: int(clayOre % 6)},
			Obsidian: {Ore: int(obsOre % 6), Clay: int(obsClay % 10)},
			Geode:    {Ore: int(geoOre % 6), Obsidian: int(geoObs % 10)},
		})
		s := NewState(bp, int(timeLeft%9))
		s.Bots[Clay] = int(clayBots % 4)
		s.Bots[Obsidian] = int(obsBots % 4)
		s.Bots[Geode] = int(geoBots % 4)
		s.Stock[Ore] = int(ore % 16)
		s.Stock[Geode] = int(geodes % 16)

		upper, lower := s.OptimisticScore(), s.IdleScore()
		if upper < lower {
			t.Fatalf("optimistic %d < idle %d for %s", upper, lower, s)
		}
		got := SolveState(s, DefaultOptions()).Output
		if got < lower || got > upper {
			t.Fatalf("optimum %d outside [%d, %d] for %s", got, lower, upper, s)
		}
	})
}
