// Package drive provides a neuro-evolved driving simulation.
//
// A population of cars, each steered by a small fixed-topology neural network fed by
// ray-cast distance sensors, drives up an endless straight road past slower traffic.
// When every car has crashed, the fittest network is copied into a new generation
// and the copies are mutated. There is no crossover and no speciation.
//
// The simulation is deterministic for a given seed. Rendering, keyboard input and
// sound are external collaborators reached through the Renderer, InputSource and
// AudioSink ports.
//
// Basic usage:
//
//	// Load configuration
//	config, err := drive.LoadConfig("path/to/drivesim.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	// Create a new game
//	game, err := drive.NewGame(config)
//	if err != nil {
//		log.Fatalf("Error creating game: %v", err)
//	}
//
//	// Run until ten generations have been bred
//	for game.Generation() < 10 {
//		if err := game.Tick(); err != nil {
//			log.Fatalf("Error running tick: %v", err)
//		}
//	}
package drive
