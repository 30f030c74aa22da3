package drive

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/baldhumanity/neat-drive/drive/nn"
)

// Game is the evolution controller. It owns the road, the player, the traffic and
// the population, and advances them one tick at a time.
//
// A Game is not safe for concurrent use; the runner package serialises access.
type Game struct {
	config *Config
	seed   int64
	rng    *rand.Rand
	logger *zap.Logger

	renderer Renderer
	input    InputSource
	audio    AudioSink

	road         *Road
	player       *Car
	traffic      []*Car
	population   *Population
	reproduction *Reproduction
	stagnation   *Stagnation

	mutationRate   float64
	populationSize int
	hiddenNodes    int

	generationTicks int
	totalTicks      int
}

// Option configures a Game.
type Option func(*Game)

// WithRenderer sets the port that receives a snapshot after every tick.
func WithRenderer(r Renderer) Option {
	return func(g *Game) { g.renderer = r }
}

// WithInput sets the port the player's controls are read from.
func WithInput(in InputSource) Option {
	return func(g *Game) { g.input = in }
}

// WithAudio sets the port that receives game events.
func WithAudio(a AudioSink) Option {
	return func(g *Game) { g.audio = a }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(g *Game) { g.logger = l }
}

// WithRand replaces the random source seeded from the config.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// NewGame validates config and builds the first generation.
// Networks are drawn from the random source before traffic lanes.
func NewGame(config *Config, opts ...Option) (*Game, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.Copy()

	seed := config.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := &Game{
		config:         config,
		seed:           seed,
		logger:         zap.NewNop(),
		renderer:       nopRenderer{},
		input:          StaticInput{},
		audio:          nopAudio{},
		mutationRate:   config.Evolution.MutationRate,
		populationSize: config.Simulation.PopulationSize,
		hiddenNodes:    config.Network.HiddenNodes,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(seed))
	}
	if g.renderer == nil {
		g.renderer = nopRenderer{}
	}
	if g.input == nil {
		g.input = StaticInput{}
	}
	if g.audio == nil {
		g.audio = nopAudio{}
	}

	g.road = NewRoad(&config.Road)
	g.reproduction = NewReproduction(config, g.rng)
	g.stagnation = NewStagnation(config.Evolution.ResetOnStagnation)

	if err := g.build(); err != nil {
		return nil, err
	}

	g.logger.Info("Game created",
		zap.Int64("seed", seed),
		zap.Int("population_size", g.populationSize),
		zap.Int("traffic_count", config.Simulation.TrafficCount),
		zap.Int("hidden_nodes", g.hiddenNodes),
		zap.Float64("mutation_rate", g.mutationRate))
	return g, nil
}

// build creates a fresh population, traffic and player.
func (g *Game) build() error {
	cars, err := g.reproduction.CreateNewPopulation(g.road, g.populationSize, g.topology())
	if err != nil {
		return fmt.Errorf("failed to create population: %w", err)
	}
	g.population = &Population{Cars: cars}
	g.traffic = g.reproduction.CreateTraffic(g.road, g.config.Simulation.TrafficCount)
	g.player = g.reproduction.CreatePlayer(g.road)
	g.stagnation.Reset(0)
	g.generationTicks = 0
	return nil
}

func (g *Game) topology() nn.Topology {
	t := g.config.Topology()
	t.Hidden = g.hiddenNodes
	return t
}

// Tick advances the simulation by one frame: traffic, then the player, then the
// population. When every population car is damaged the next generation is bred
// before the snapshot is rendered.
func (g *Game) Tick() error {
	for i, t := range g.traffic {
		if err := t.Update(g.road.Borders, nil); err != nil {
			return fmt.Errorf("traffic car %d: %w", i, err)
		}
	}

	g.player.Controls = g.input.Controls()
	wasDamaged := g.player.Damaged
	if err := g.player.Update(g.road.Borders, g.traffic); err != nil {
		return fmt.Errorf("player: %w", err)
	}
	if !wasDamaged && g.player.Damaged {
		g.emit(EventPlayerCrashed, g.player, -1)
	}

	for i, c := range g.population.Cars {
		wasDamaged := c.Damaged
		if err := c.Update(g.road.Borders, g.traffic); err != nil {
			return fmt.Errorf("population car %d: %w", i, err)
		}
		if !wasDamaged && c.Damaged {
			g.emit(EventCarCrashed, c, i)
		}
	}

	g.generationTicks++
	g.totalTicks++

	if g.population.AllDamaged() {
		if err := g.evolve(TriggerAllDamaged); err != nil {
			return err
		}
	}

	if _, ok := g.renderer.(nopRenderer); !ok {
		g.renderer.Render(g.Snapshot())
	}
	return nil
}

// Evolve ends the current generation immediately and breeds the next one.
func (g *Game) Evolve() error {
	return g.evolve(TriggerManual)
}

// EvolveOnTickLimit is Evolve recorded as a tick-limit rollover.
func (g *Game) EvolveOnTickLimit() error {
	return g.evolve(TriggerTickLimit)
}

func (g *Game) evolve(trigger Trigger) error {
	bestIdx, best := g.population.findBest()
	if best == nil {
		return fmt.Errorf("cannot evolve an empty population")
	}

	fitnesses := g.population.Fitnesses()
	improved := best.Fitness > g.population.BestFitness
	if improved {
		g.population.BestFitness = best.Fitness
	}

	stats := GenerationStats{
		Generation:   g.population.Generation,
		MeanFitness:  Mean(fitnesses),
		StdevFitness: Stdev(fitnesses),
		MaxFitness:   MaxFloat(fitnesses),
		BestIndex:    bestIdx,
		BestID:       best.ID,
		BestEver:     g.population.BestFitness,
		Ticks:        g.generationTicks,
		Trigger:      trigger,
		Improved:     improved,
	}

	g.population.Cars = g.reproduction.Reproduce(g.road, best.Brain, g.populationSize, g.mutationRate)
	g.traffic = g.reproduction.CreateTraffic(g.road, g.config.Simulation.TrafficCount)
	g.population.Generation++
	g.population.History = append(g.population.History, stats)
	g.stagnation.Update(improved, g.population.Generation)
	g.generationTicks = 0

	g.logger.Info("Generation evolved",
		zap.Int("generation", g.population.Generation),
		zap.String("trigger", string(trigger)),
		zap.Int("ticks", stats.Ticks),
		zap.Float64("max_fitness", stats.MaxFitness),
		zap.Float64("mean_fitness", stats.MeanFitness),
		zap.Float64("best_fitness", g.population.BestFitness),
		zap.Bool("improved", improved))
	g.emit(EventGenerationEvolved, nil, -1)

	if g.stagnation.IsStagnant(g.population.Generation) {
		g.logger.Info("Resetting population due to stagnation",
			zap.Int("generation", g.population.Generation),
			zap.Int("generations_without_improvement", g.stagnation.Since(g.population.Generation)))
		cars, err := g.reproduction.CreateNewPopulation(g.road, g.populationSize, g.topology())
		if err != nil {
			return fmt.Errorf("failed to rebuild stagnant population: %w", err)
		}
		g.population.Cars = cars
		g.stagnation.Reset(g.population.Generation)
	}
	return nil
}

// Reset discards all evolution progress and rebuilds the population, traffic and
// player. New networks use the current hidden layer size.
func (g *Game) Reset() error {
	if err := g.build(); err != nil {
		return err
	}
	g.logger.Info("Game reset", zap.Int("hidden_nodes", g.hiddenNodes), zap.Int("population_size", g.populationSize))
	g.emit(EventReset, nil, -1)
	return nil
}

// Resize changes the road width. Cars keep their positions.
func (g *Game) Resize(width float64) error {
	if err := g.road.Resize(width); err != nil {
		return err
	}
	g.logger.Debug("Road resized", zap.Float64("width", width))
	return nil
}

// SetMutationRate sets the per-parameter mutation probability for the next generation.
func (g *Game) SetMutationRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return fmt.Errorf("mutation rate must be between 0 and 1, got %v", rate)
	}
	g.mutationRate = rate
	return nil
}

// SetPopulationSize sets the number of cars bred at the next generation.
func (g *Game) SetPopulationSize(size int) error {
	if size < 1 {
		return fmt.Errorf("population size must be at least 1, got %d", size)
	}
	g.populationSize = size
	return nil
}

// SetHiddenNodes sets the hidden layer size of newly constructed networks.
// Existing networks and their offspring keep their shape until Reset.
func (g *Game) SetHiddenNodes(n int) error {
	if n < 1 {
		return fmt.Errorf("hidden nodes must be at least 1, got %d", n)
	}
	g.hiddenNodes = n
	return nil
}

func (g *Game) emit(t EventType, c *Car, index int) {
	e := Event{
		Type:       t,
		CarIndex:   index,
		Generation: g.population.Generation,
		Tick:       g.totalTicks,
	}
	if c != nil {
		e.CarID = c.ID
		e.X = c.X
		e.Y = c.Y
	}
	g.audio.Play(e)
}

// Leader returns the index of the population car furthest up the road.
func (g *Game) Leader() int { return g.population.Leader() }

func (g *Game) Seed() int64 { return g.seed }
func (g *Game) Config() *Config { return g.config }
func (g *Game) Road() *Road { return g.road }
func (g *Game) Player() *Car { return g.player }
func (g *Game) Traffic() []*Car { return g.traffic }
func (g *Game) Cars() []*Car { return g.population.Cars }
func (g *Game) Generation() int { return g.population.Generation }
func (g *Game) BestFitness() float64 { return g.population.BestFitness }
func (g *Game) History() []GenerationStats { return g.population.History }
func (g *Game) MutationRate() float64 { return g.mutationRate }
func (g *Game) PopulationSize() int { return g.populationSize }
func (g *Game) HiddenNodes() int { return g.hiddenNodes }
func (g *Game) GenerationTicks() int { return g.generationTicks }
func (g *Game) TotalTicks() int { return g.totalTicks }
func (g *Game) Alive() int { return g.population.Alive() }
