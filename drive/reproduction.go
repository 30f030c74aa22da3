package drive

import (
	"fmt"
	"math/rand"

	"github.com/baldhumanity/neat-drive/drive/nn"
)

// Reproduction creates cars for new generations, either from scratch or by
// cloning and mutating the previous generation's best network.
type Reproduction struct {
	config *Config
	rng    *rand.Rand
}

// NewReproduction creates a reproduction manager drawing from rng.
func NewReproduction(config *Config, rng *rand.Rand) *Reproduction {
	return &Reproduction{config: config, rng: rng}
}

func (r *Reproduction) startPosition(road *Road) (float64, float64) {
	return road.LaneCenter(r.config.Car.StartLane), r.config.Car.StartY
}

// CreateNewPopulation creates size network cars with freshly randomised networks.
func (r *Reproduction) CreateNewPopulation(road *Road, size int, topology nn.Topology) ([]*Car, error) {
	x, y := r.startPosition(road)
	cars := make([]*Car, 0, size)
	for i := 0; i < size; i++ {
		brain, err := nn.New(topology, r.rng)
		if err != nil {
			return nil, fmt.Errorf("failed to create network for car %d: %w", i, err)
		}
		cars = append(cars, NewCar(x, y, ControlNetwork, r.config, brain))
	}
	return cars, nil
}

// Reproduce creates the next generation from parent: index 0 carries an exact
// copy of the parent network and the other size-1 cars carry mutated copies.
func (r *Reproduction) Reproduce(road *Road, parent *nn.Network, size int, mutationRate float64) []*Car {
	x, y := r.startPosition(road)
	cars := make([]*Car, 0, size)
	cars = append(cars, NewCar(x, y, ControlNetwork, r.config, parent.Copy()))
	for i := 1; i < size; i++ {
		brain := parent.Copy()
		brain.Mutate(mutationRate, r.rng)
		cars = append(cars, NewCar(x, y, ControlNetwork, r.config, brain))
	}
	return cars
}

// CreateTraffic places count autopilot cars in random lanes, spaced up the road
// ahead of the start line.
func (r *Reproduction) CreateTraffic(road *Road, count int) []*Car {
	traffic := make([]*Car, 0, count)
	for i := 0; i < count; i++ {
		lane := r.rng.Intn(road.LaneCount)
		y := r.config.Road.TrafficStartY - float64(i)*r.config.Road.TrafficSpacing
		traffic = append(traffic, NewCar(road.LaneCenter(lane), y, ControlAutopilot, r.config, nil))
	}
	return traffic
}

// CreatePlayer creates the human-controlled car at the start line.
func (r *Reproduction) CreatePlayer(road *Road) *Car {
	x, y := r.startPosition(road)
	return NewCar(x, y, ControlHuman, r.config, nil)
}
