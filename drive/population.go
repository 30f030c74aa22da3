package drive

import "math"

// Trigger names what caused a generation rollover.
type Trigger string

const (
	TriggerAllDamaged Trigger = "all_damaged"
	TriggerManual     Trigger = "manual"
	TriggerTickLimit  Trigger = "tick_limit"
)

// GenerationStats summarises one finished generation.
type GenerationStats struct {
	Generation   int     `json:"generation" yaml:"generation"`
	MeanFitness  float64 `json:"mean_fitness" yaml:"mean_fitness"`
	StdevFitness float64 `json:"stdev_fitness" yaml:"stdev_fitness"`
	MaxFitness   float64 `json:"max_fitness" yaml:"max_fitness"`
	BestIndex    int     `json:"best_index" yaml:"best_index"`
	BestID       string  `json:"best_id" yaml:"best_id"`
	BestEver     float64 `json:"best_ever" yaml:"best_ever"`
	Ticks        int     `json:"ticks" yaml:"ticks"`
	Trigger      Trigger `json:"trigger" yaml:"trigger"`
	Improved     bool    `json:"improved" yaml:"improved"`
}

// Population holds the network-driven cars of the current generation.
type Population struct {
	Cars        []*Car
	Generation  int
	BestFitness float64 // best fitness ever seen; starts at 0
	History     []GenerationStats
}

// findBest returns the car with the highest fitness. Ties go to the earliest car.
func (p *Population) findBest() (int, *Car) {
	bestIdx := -1
	var best *Car
	maxFitness := math.Inf(-1)

	for i, c := range p.Cars {
		if c.Fitness > maxFitness {
			maxFitness = c.Fitness
			best = c
			bestIdx = i
		}
	}
	return bestIdx, best
}

// AllDamaged reports whether every car has crashed.
func (p *Population) AllDamaged() bool {
	for _, c := range p.Cars {
		if !c.Damaged {
			return false
		}
	}
	return true
}

// Leader returns the index of the car furthest up the road (smallest y).
// Ties go to the earliest car; -1 for an empty population.
func (p *Population) Leader() int {
	leader := -1
	minY := math.Inf(1)
	for i, c := range p.Cars {
		if c.Y < minY {
			minY = c.Y
			leader = i
		}
	}
	return leader
}

// Fitnesses returns the current fitness of every car in order.
func (p *Population) Fitnesses() []float64 {
	out := make([]float64, len(p.Cars))
	for i, c := range p.Cars {
		out[i] = c.Fitness
	}
	return out
}

// Alive returns the number of undamaged cars.
func (p *Population) Alive() int {
	n := 0
	for _, c := range p.Cars {
		if !c.Damaged {
			n++
		}
	}
	return n
}
