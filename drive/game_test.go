package drive

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/baldhumanity/neat-drive/drive/nn"
)

func testConfig(seed int64) *Config {
	cfg := DefaultConfig()
	cfg.Simulation.Seed = seed
	return cfg
}

func newTestGame(t *testing.T, cfg *Config, opts ...Option) *Game {
	t.Helper()
	g, err := NewGame(cfg, opts...)
	require.NoError(t, err)
	return g
}

func runTicks(t *testing.T, g *Game, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, g.Tick())
	}
}

func TestNewGameInitialState(t *testing.T) {
	g := newTestGame(t, testConfig(1))

	assert.Equal(t, int64(1), g.Seed())
	assert.Len(t, g.Cars(), 20)
	assert.Len(t, g.Traffic(), 10)
	assert.Equal(t, 0, g.Generation())
	assert.Equal(t, 0.0, g.BestFitness())

	for _, c := range g.Cars() {
		assert.Equal(t, ControlNetwork, c.ControlType)
		assert.Equal(t, 200.0, c.X)
		assert.Equal(t, 100.0, c.Y)
		require.NotNil(t, c.Brain)
		assert.Equal(t, 8, c.Brain.HiddenNodes)
	}
	for i, c := range g.Traffic() {
		assert.Equal(t, ControlAutopilot, c.ControlType)
		assert.Equal(t, -100-float64(i)*150, c.Y)
		assert.Contains(t, []float64{80, 200, 320}, c.X)
	}
	assert.Equal(t, ControlHuman, g.Player().ControlType)
	assert.Nil(t, g.Player().Brain)
	assert.NotNil(t, g.Player().Sensor)
}

func TestNewGameRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulation.PopulationSize = 0
	_, err := NewGame(cfg)
	assert.ErrorContains(t, err, "population_size")
}

func TestGameIsDeterministicForASeed(t *testing.T) {
	a := newTestGame(t, testConfig(42))
	b := newTestGame(t, testConfig(42))

	for i := 0; i < 600; i++ {
		require.NoError(t, a.Tick())
		require.NoError(t, b.Tick())
	}

	sa, sb := a.Snapshot(), b.Snapshot()
	assert.Equal(t, sa.Fingerprint(), sb.Fingerprint())
	diff := cmp.Diff(sa, sb, cmpopts.IgnoreFields(CarView{}, "ID"))
	assert.Empty(t, diff)

	c := newTestGame(t, testConfig(43))
	runTicks(t, c, 600)
	assert.NotEqual(t, sa.Fingerprint(), c.Snapshot().Fingerprint())
}

func TestEvolveKeepsTheFittestNetwork(t *testing.T) {
	g := newTestGame(t, testConfig(3))
	cars := g.Cars()
	cars[3].Fitness = 10
	cars[5].Fitness = 10
	cars[7].Fitness = 4
	parent := cars[3].Brain.Parameters()
	bestID := cars[3].ID

	require.NoError(t, g.Evolve())

	assert.Equal(t, 1, g.Generation())
	assert.Equal(t, 10.0, g.BestFitness())
	require.Len(t, g.History(), 1)
	stats := g.History()[0]
	assert.Equal(t, 3, stats.BestIndex, "ties go to the earliest car")
	assert.Equal(t, bestID, stats.BestID)
	assert.Equal(t, TriggerManual, stats.Trigger)
	assert.True(t, stats.Improved)
	assert.InDelta(t, 24.0/20, stats.MeanFitness, 1e-12)

	next := g.Cars()
	require.Len(t, next, 20)
	assert.Equal(t, parent, next[0].Brain.Parameters(), "the elite is an exact copy")
	for i, c := range next[1:] {
		params := c.Brain.Parameters()
		for j := range params {
			assert.LessOrEqual(t, math.Abs(params[j]-parent[j]), nn.MutationStep, "car %d param %d", i+1, j)
		}
	}
	for _, c := range next {
		assert.False(t, c.Damaged)
		assert.Equal(t, 100.0, c.Y)
		assert.Equal(t, 0.0, c.Fitness)
	}
	assert.Len(t, g.Traffic(), 10)
}

func TestEvolveOnlyRaisesBestFitness(t *testing.T) {
	g := newTestGame(t, testConfig(3))
	for _, c := range g.Cars() {
		c.Fitness = -2
	}
	require.NoError(t, g.Evolve())
	assert.Equal(t, 0.0, g.BestFitness())
	assert.False(t, g.History()[0].Improved)

	g.Cars()[1].Fitness = 30
	require.NoError(t, g.Evolve())
	assert.Equal(t, 30.0, g.BestFitness())

	g.Cars()[0].Fitness = 12
	require.NoError(t, g.Evolve())
	assert.Equal(t, 30.0, g.BestFitness())
	assert.Equal(t, 3, g.Generation())
}

func TestZeroMutationRateClonesTheElite(t *testing.T) {
	g := newTestGame(t, testConfig(9))
	require.NoError(t, g.SetMutationRate(0))
	g.Cars()[2].Fitness = 1
	parent := g.Cars()[2].Brain.Parameters()

	require.NoError(t, g.Evolve())
	for _, c := range g.Cars() {
		assert.Equal(t, parent, c.Brain.Parameters())
	}
}

func TestAllDamagedTriggersEvolution(t *testing.T) {
	var events []Event
	g := newTestGame(t, testConfig(5), WithAudio(AudioFunc(func(e Event) {
		events = append(events, e)
	})))

	for _, c := range g.Cars() {
		c.Damaged = true
	}
	require.NoError(t, g.Tick())

	assert.Equal(t, 1, g.Generation())
	assert.Equal(t, TriggerAllDamaged, g.History()[0].Trigger)
	assert.Equal(t, 1, g.History()[0].Ticks)
	assert.Equal(t, 0, g.GenerationTicks())
	assert.Equal(t, 20, g.Alive())

	require.NotEmpty(t, events)
	assert.Equal(t, EventGenerationEvolved, events[len(events)-1].Type)
	assert.Equal(t, 1, events[len(events)-1].Generation)
}

func TestCrashEvents(t *testing.T) {
	var events []Event
	g := newTestGame(t, testConfig(5), WithAudio(AudioFunc(func(e Event) {
		events = append(events, e)
	})))

	g.Player().X = g.Road().Right
	g.Cars()[4].X = g.Road().Left
	require.NoError(t, g.Tick())

	require.True(t, g.Player().Damaged)
	require.True(t, g.Cars()[4].Damaged)

	var player, car *Event
	for i := range events {
		switch {
		case events[i].Type == EventPlayerCrashed:
			player = &events[i]
		case events[i].Type == EventCarCrashed && events[i].CarIndex == 4:
			car = &events[i]
		}
	}
	require.NotNil(t, player)
	assert.Equal(t, g.Player().ID, player.CarID)
	require.NotNil(t, car)
	assert.Equal(t, g.Cars()[4].ID, car.CarID)

	n := len(events)
	require.NoError(t, g.Tick())
	for _, e := range events[n:] {
		assert.NotEqual(t, EventPlayerCrashed, e.Type, "a crash is reported once")
	}
}

func TestPlayerFollowsInput(t *testing.T) {
	g := newTestGame(t, testConfig(5), WithInput(StaticInput{Forward: true}))
	runTicks(t, g, 10)
	assert.Less(t, g.Player().Y, 100.0)
	assert.True(t, g.Player().Controls.Forward)

	idle := newTestGame(t, testConfig(5))
	runTicks(t, idle, 10)
	assert.Equal(t, 100.0, idle.Player().Y)
}

func TestKnobs(t *testing.T) {
	g := newTestGame(t, testConfig(11))

	for _, rate := range []float64{-0.1, 1.5, math.NaN()} {
		assert.Error(t, g.SetMutationRate(rate))
	}
	require.NoError(t, g.SetMutationRate(0.4))
	assert.Equal(t, 0.4, g.MutationRate())

	assert.Error(t, g.SetPopulationSize(0))
	require.NoError(t, g.SetPopulationSize(5))
	assert.Len(t, g.Cars(), 20, "population size applies from the next generation")

	assert.Error(t, g.SetHiddenNodes(0))
	require.NoError(t, g.SetHiddenNodes(3))

	require.NoError(t, g.Evolve())
	require.Len(t, g.Cars(), 5)
	for _, c := range g.Cars() {
		assert.Equal(t, 8, c.Brain.HiddenNodes, "offspring keep the parent's shape")
	}

	require.NoError(t, g.Reset())
	assert.Equal(t, 0, g.Generation())
	assert.Equal(t, 0.0, g.BestFitness())
	assert.Empty(t, g.History())
	require.Len(t, g.Cars(), 5)
	for _, c := range g.Cars() {
		assert.Equal(t, 3, c.Brain.HiddenNodes)
	}
}

func TestResetRebuildsEverything(t *testing.T) {
	var events []Event
	g := newTestGame(t, testConfig(13), WithAudio(AudioFunc(func(e Event) {
		events = append(events, e)
	})), WithInput(StaticInput{Forward: true}))

	runTicks(t, g, 30)
	g.Cars()[0].Fitness = 50
	require.NoError(t, g.Evolve())
	oldPlayer := g.Player().ID

	require.NoError(t, g.Reset())
	assert.Equal(t, 0, g.Generation())
	assert.Equal(t, 0.0, g.BestFitness())
	assert.NotEqual(t, oldPlayer, g.Player().ID)
	assert.Equal(t, 100.0, g.Player().Y)
	assert.Len(t, g.Traffic(), 10)
	assert.Equal(t, EventReset, events[len(events)-1].Type)
}

func TestResize(t *testing.T) {
	g := newTestGame(t, testConfig(2))
	runTicks(t, g, 5)
	before := g.Snapshot()

	require.NoError(t, g.Resize(200))
	assert.Equal(t, 100.0, g.Road().Left)
	assert.Equal(t, 300.0, g.Road().Right)
	for i, c := range g.Cars() {
		assert.Equal(t, before.Cars[i].X, c.X)
		assert.Equal(t, before.Cars[i].Y, c.Y)
	}
	assert.Error(t, g.Resize(-1))
}

func TestLeader(t *testing.T) {
	g := newTestGame(t, testConfig(2))
	cars := g.Cars()
	cars[6].Y = -40
	cars[9].Y = -40
	assert.Equal(t, 6, g.Leader())

	g.population.Cars = nil
	assert.Equal(t, -1, g.Leader())
}

func TestRendererReceivesIndependentSnapshots(t *testing.T) {
	var snaps []*Snapshot
	g := newTestGame(t, testConfig(4), WithRenderer(RendererFunc(func(s *Snapshot) {
		snaps = append(snaps, s)
	})))
	runTicks(t, g, 3)

	require.Len(t, snaps, 3)
	assert.Equal(t, 3, snaps[2].TotalTicks)
	require.NotNil(t, snaps[2].Network)
	assert.Len(t, snaps[2].Network.InputHidden, 8)
	require.NotNil(t, snaps[2].Network.LastActivation)
	assert.Len(t, snaps[2].Network.LastActivation.Inputs, 5)
	assert.Len(t, snaps[2].Cars, 20)
	assert.Len(t, snaps[2].Cars[0].Rays, 5)

	snaps[2].Cars[0].Polygon[0].X = 9999
	snaps[2].Network.BiasOutput[0] = 9999
	assert.NotEqual(t, 9999.0, g.Cars()[0].Polygon[0].X)
	assert.NotEqual(t, 9999.0, g.Cars()[snaps[2].Leader].Brain.BiasOutput[0])
}

func TestGameLogsGenerations(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	g := newTestGame(t, testConfig(6), WithLogger(zap.New(core)))
	assert.Equal(t, 1, logs.FilterMessage("Game created").Len())

	require.NoError(t, g.Evolve())
	entries := logs.FilterMessage("Generation evolved").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 1, entries[0].ContextMap()["generation"])
	assert.Equal(t, "manual", entries[0].ContextMap()["trigger"])
}

func TestResetOnStagnation(t *testing.T) {
	cfg := testConfig(8)
	cfg.Evolution.ResetOnStagnation = 2
	core, logs := observer.New(zap.InfoLevel)
	g := newTestGame(t, cfg, WithLogger(zap.New(core)))

	require.NoError(t, g.Evolve())
	assert.Equal(t, 0, logs.FilterMessage("Resetting population due to stagnation").Len())

	parent := g.Cars()[0].Brain.Parameters()
	require.NoError(t, g.Evolve())
	assert.Equal(t, 1, logs.FilterMessage("Resetting population due to stagnation").Len())
	assert.Equal(t, 2, g.Generation(), "a stagnation reset keeps the generation count")
	assert.NotEqual(t, parent, g.Cars()[0].Brain.Parameters())
}

func TestTickPropagatesNetworkErrors(t *testing.T) {
	g := newTestGame(t, testConfig(1))
	wrong, err := nn.New(nn.Topology{Inputs: 2, Hidden: 2, Outputs: 4}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	g.Cars()[1].Brain = wrong

	err = g.Tick()
	require.Error(t, err)
	assert.True(t, errors.Is(err, nn.ErrDimensionMismatch))
}

func TestEvolveAfterHundredsOfTicks(t *testing.T) {
	g := newTestGame(t, testConfig(21))
	for g.Generation() < 2 && g.TotalTicks() < 20000 {
		require.NoError(t, g.Tick())
		if g.GenerationTicks() >= 1500 {
			require.NoError(t, g.EvolveOnTickLimit())
		}
	}
	require.Equal(t, 2, g.Generation())
	for _, s := range g.History() {
		assert.Contains(t, []Trigger{TriggerAllDamaged, TriggerTickLimit}, s.Trigger)
		assert.Greater(t, s.Ticks, 0)
	}
}
