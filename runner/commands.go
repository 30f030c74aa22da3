package runner

import (
	"fmt"

	"github.com/baldhumanity/neat-drive/drive"
)

// Command is a change applied to the game between two ticks.
type Command func(*drive.Game) error

// Evolve ends the current generation.
func Evolve() Command {
	return func(g *drive.Game) error { return g.Evolve() }
}

// Reset rebuilds the population, traffic and player.
func Reset() Command {
	return func(g *drive.Game) error { return g.Reset() }
}

// Resize changes the road width.
func Resize(width float64) Command {
	return func(g *drive.Game) error { return g.Resize(width) }
}

// SetMutationRate changes the mutation rate used by the next generation.
func SetMutationRate(rate float64) Command {
	return func(g *drive.Game) error { return g.SetMutationRate(rate) }
}

// SetPopulationSize changes the size of the next generation.
func SetPopulationSize(n int) Command {
	return func(g *drive.Game) error { return g.SetPopulationSize(n) }
}

// SetHiddenNodes changes the hidden layer size of newly built networks.
func SetHiddenNodes(n int) Command {
	return func(g *drive.Game) error { return g.SetHiddenNodes(n) }
}

// ParseCommand maps a command name and its numeric argument to a Command.
func ParseCommand(name string, value float64) (Command, error) {
	switch name {
	case "evolve":
		return Evolve(), nil
	case "reset":
		return Reset(), nil
	case "resize":
		return Resize(value), nil
	case "mutation_rate":
		return SetMutationRate(value), nil
	case "population_size":
		return SetPopulationSize(int(value)), nil
	case "hidden_nodes":
		return SetHiddenNodes(int(value)), nil
	default:
		return nil, fmt.Errorf("unknown command %q", name)
	}
}
