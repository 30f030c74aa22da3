package drive

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/baldhumanity/neat-drive/drive/geom"
	"github.com/baldhumanity/neat-drive/drive/nn"
)

// Snapshot is a deep-copied, read-only view of the game after a tick.
// Nothing in a snapshot aliases live game state.
type Snapshot struct {
	Generation      int     `json:"generation"`
	GenerationTicks int     `json:"generation_ticks"`
	TotalTicks      int     `json:"total_ticks"`
	BestFitness     float64 `json:"best_fitness"`
	MutationRate    float64 `json:"mutation_rate"`
	PopulationSize  int     `json:"population_size"`
	HiddenNodes     int     `json:"hidden_nodes"`
	Alive           int     `json:"alive"`
	Leader          int     `json:"leader"`

	Road    RoadView     `json:"road"`
	Player  CarView      `json:"player"`
	Traffic []CarView    `json:"traffic"`
	Cars    []CarView    `json:"cars"`
	Network *NetworkView `json:"network,omitempty"`
}

// RoadView is the road geometry as seen by a renderer.
type RoadView struct {
	X            float64        `json:"x"`
	Width        float64        `json:"width"`
	LaneCount    int            `json:"lane_count"`
	Left         float64        `json:"left"`
	Right        float64        `json:"right"`
	Borders      []geom.Segment `json:"borders"`
	Checkpoints  []geom.Segment `json:"checkpoints"`
	LaneDividers []float64      `json:"lane_dividers"`
}

// CarView is a copy of one car's visible state.
type CarView struct {
	ID          string               `json:"id"`
	ControlType string               `json:"control_type"`
	X           float64              `json:"x"`
	Y           float64              `json:"y"`
	Angle       float64              `json:"angle"`
	Speed       float64              `json:"speed"`
	Damaged     bool                 `json:"damaged"`
	Fitness     float64              `json:"fitness"`
	Distance    float64              `json:"distance"`
	StuckTime   int                  `json:"stuck_time"`
	Controls    Controls             `json:"controls"`
	Polygon     geom.Polygon         `json:"polygon"`
	Rays        []geom.Segment       `json:"rays,omitempty"`
	Readings    []*geom.Intersection `json:"readings,omitempty"`
	Proximities []float64            `json:"proximities,omitempty"`
}

// NetworkView exposes the leading car's network for visualisation.
type NetworkView struct {
	Topology        nn.Topology    `json:"topology"`
	InputHidden     [][]float64    `json:"input_hidden"`
	HiddenOutput    [][]float64    `json:"hidden_output"`
	BiasHidden      []float64      `json:"bias_hidden"`
	BiasOutput      []float64      `json:"bias_output"`
	LastActivation  *nn.Activation `json:"last_activation,omitempty"`
	CurrentControls Controls       `json:"current_controls"`
}

// Snapshot captures the current state of the game.
func (g *Game) Snapshot() *Snapshot {
	s := &Snapshot{
		Generation:      g.population.Generation,
		GenerationTicks: g.generationTicks,
		TotalTicks:      g.totalTicks,
		BestFitness:     g.population.BestFitness,
		MutationRate:    g.mutationRate,
		PopulationSize:  g.populationSize,
		HiddenNodes:     g.hiddenNodes,
		Alive:           g.population.Alive(),
		Leader:          g.population.Leader(),
		Road:            viewRoad(g.road),
		Player:          viewCar(g.player),
		Traffic:         viewCars(g.traffic),
		Cars:            viewCars(g.population.Cars),
	}
	if s.Leader >= 0 {
		s.Network = viewNetwork(g.population.Cars[s.Leader])
	}
	return s
}

func viewRoad(r *Road) RoadView {
	return RoadView{
		X:            r.X,
		Width:        r.Width,
		LaneCount:    r.LaneCount,
		Left:         r.Left,
		Right:        r.Right,
		Borders:      append([]geom.Segment(nil), r.Borders...),
		Checkpoints:  append([]geom.Segment(nil), r.Checkpoints...),
		LaneDividers: r.LaneDividers(),
	}
}

func viewCars(cars []*Car) []CarView {
	out := make([]CarView, len(cars))
	for i, c := range cars {
		out[i] = viewCar(c)
	}
	return out
}

func viewCar(c *Car) CarView {
	v := CarView{
		ID:          c.ID,
		ControlType: c.ControlType.String(),
		X:           c.X,
		Y:           c.Y,
		Angle:       c.Angle,
		Speed:       c.Speed,
		Damaged:     c.Damaged,
		Fitness:     c.Fitness,
		Distance:    c.DistanceTraveled,
		StuckTime:   c.StuckTime,
		Controls:    c.Controls,
		Polygon:     c.Polygon.Copy(),
	}
	if c.Sensor != nil {
		v.Rays = append([]geom.Segment(nil), c.Sensor.Rays...)
		v.Readings = make([]*geom.Intersection, len(c.Sensor.Readings))
		for i, r := range c.Sensor.Readings {
			if r != nil {
				hit := *r
				v.Readings[i] = &hit
			}
		}
		v.Proximities = c.Sensor.Proximities()
	}
	return v
}

func viewNetwork(c *Car) *NetworkView {
	if c.Brain == nil {
		return nil
	}
	v := &NetworkView{
		Topology:        c.Brain.Topology(),
		InputHidden:     c.Brain.WeightsInputHidden.Rows2D(),
		HiddenOutput:    c.Brain.WeightsHiddenOutput.Rows2D(),
		BiasHidden:      append([]float64(nil), c.Brain.BiasHidden...),
		BiasOutput:      append([]float64(nil), c.Brain.BiasOutput...),
		CurrentControls: c.Controls,
	}
	if c.LastActivation != nil {
		act := c.LastActivation.Copy()
		v.LastActivation = &act
	}
	return v
}

// Fingerprint returns a digest of the snapshot's dynamic state.
// Car IDs are excluded, so two runs with the same seed produce the same value.
func (s *Snapshot) Fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte

	putInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		_, _ = d.Write(buf[:])
	}
	putFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}
	putBool := func(v bool) {
		if v {
			putInt(1)
		} else {
			putInt(0)
		}
	}
	putCar := func(c CarView) {
		putFloat(c.X)
		putFloat(c.Y)
		putFloat(c.Angle)
		putFloat(c.Speed)
		putFloat(c.Fitness)
		putBool(c.Damaged)
		putBool(c.Controls.Forward)
		putBool(c.Controls.Left)
		putBool(c.Controls.Right)
		putBool(c.Controls.Reverse)
	}

	putInt(s.Generation)
	putInt(s.GenerationTicks)
	putInt(s.TotalTicks)
	putFloat(s.BestFitness)
	putFloat(s.Road.Width)
	putCar(s.Player)
	for _, c := range s.Traffic {
		putCar(c)
	}
	for _, c := range s.Cars {
		putCar(c)
	}
	if s.Network != nil {
		for _, row := range s.Network.InputHidden {
			for _, w := range row {
				putFloat(w)
			}
		}
		for _, row := range s.Network.HiddenOutput {
			for _, w := range row {
				putFloat(w)
			}
		}
		for _, b := range s.Network.BiasHidden {
			putFloat(b)
		}
		for _, b := range s.Network.BiasOutput {
			putFloat(b)
		}
	}
	return d.Sum64()
}
