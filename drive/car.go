package drive

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/baldhumanity/neat-drive/drive/geom"
	"github.com/baldhumanity/neat-drive/drive/nn"
)

// Car is a rectangular vehicle moving on the road.
//
// Angle 0 points up the road (towards negative y). Polygon always reflects the
// current position and heading; once Damaged is set the car never moves again.
type Car struct {
	ID string

	X      float64
	Y      float64
	Angle  float64
	Speed  float64
	Width  float64
	Height float64

	MaxSpeed     float64
	Acceleration float64
	Friction     float64
	SteerRate    float64

	Damaged     bool
	ControlType ControlType
	Controls    Controls
	Polygon     geom.Polygon

	Sensor         *Sensor
	Brain          *nn.Network
	LastActivation *nn.Activation

	DistanceTraveled  float64
	LastPosition      geom.Point
	StuckTime         int
	CheckpointsPassed int
	Fitness           float64

	fitness FitnessConfig
}

// NewCar creates a car at (x, y) facing up the road.
// Autopilot cars use the traffic speed limit and carry no sensor. Network cars
// must be given a brain whose input count matches the sensor's ray count.
func NewCar(x, y float64, controlType ControlType, config *Config, brain *nn.Network) *Car {
	maxSpeed := config.Car.MaxSpeed
	if controlType == ControlAutopilot {
		maxSpeed = config.Car.TrafficMaxSpeed
	}

	c := &Car{
		ID:           uuid.NewString(),
		X:            x,
		Y:            y,
		Width:        config.Car.Width,
		Height:       config.Car.Height,
		MaxSpeed:     maxSpeed,
		Acceleration: config.Car.Acceleration,
		Friction:     config.Car.Friction,
		SteerRate:    config.Car.SteerRate,
		ControlType:  controlType,
		LastPosition: geom.Point{X: x, Y: y},
		fitness:      config.Fitness,
	}

	switch controlType {
	case ControlAutopilot:
		c.Controls.Forward = true
	case ControlNetwork:
		c.Brain = brain
		c.Sensor = NewSensor(&config.Sensor)
	default:
		c.Sensor = NewSensor(&config.Sensor)
	}

	c.Polygon = c.createPolygon()
	return c
}

// Update advances the car by one tick against the given borders and traffic.
//
// Undamaged cars move, score and check for collisions; the sensor is then recast
// and a network car decides its controls for the next tick.
func (c *Car) Update(borders []geom.Segment, traffic []*Car) error {
	if !c.Damaged {
		c.move()
		c.calculateFitness()
		c.Polygon = c.createPolygon()
		c.Damaged = c.assessDamage(borders, traffic)
	}

	if c.Sensor == nil {
		return nil
	}
	c.Sensor.Update(c.X, c.Y, c.Angle, borders, traffic)

	if c.ControlType != ControlNetwork {
		return nil
	}
	if c.Brain == nil {
		return fmt.Errorf("car %s has no network", c.ID)
	}
	act, err := c.Brain.Forward(c.Sensor.Proximities())
	if err != nil {
		return fmt.Errorf("car %s: %w", c.ID, err)
	}
	c.Controls = controlsFromOutputs(act.Outputs)
	c.LastActivation = &act
	return nil
}

func (c *Car) move() {
	if c.Controls.Forward {
		c.Speed += c.Acceleration
	}
	if c.Controls.Reverse {
		c.Speed -= c.Acceleration
	}

	c.Speed = clamp(c.Speed, -c.MaxSpeed/2, c.MaxSpeed)

	if c.Speed > 0 {
		c.Speed -= c.Friction
	}
	if c.Speed < 0 {
		c.Speed += c.Friction
	}
	if math.Abs(c.Speed) < c.Friction {
		c.Speed = 0
	}

	if c.Speed != 0 {
		flip := 1.0
		if c.Speed < 0 {
			flip = -1
		}
		if c.Controls.Left {
			c.Angle += c.SteerRate * flip
		}
		if c.Controls.Right {
			c.Angle -= c.SteerRate * flip
		}
	}

	c.X -= math.Sin(c.Angle) * c.Speed
	c.Y -= math.Cos(c.Angle) * c.Speed
}

func (c *Car) calculateFitness() {
	dx := c.X - c.LastPosition.X
	dy := c.Y - c.LastPosition.Y
	distance := math.Hypot(dx, dy)

	c.DistanceTraveled += distance
	c.LastPosition = geom.Point{X: c.X, Y: c.Y}

	if distance < c.fitness.StuckDistance {
		c.StuckTime++
	} else {
		c.StuckTime = 0
	}

	c.Fitness = c.DistanceTraveled + float64(c.CheckpointsPassed)*c.fitness.CheckpointBonus
	if c.StuckTime > c.fitness.StuckTicks {
		penalty := float64(c.StuckTime) * c.fitness.StuckPenalty
		if c.fitness.MaxStuckPenalty > 0 {
			penalty = math.Min(penalty, c.fitness.MaxStuckPenalty)
		}
		c.Fitness -= penalty
	}
}

func (c *Car) assessDamage(borders []geom.Segment, traffic []*Car) bool {
	for _, b := range borders {
		if geom.PolygonIntersectsSegment(c.Polygon, b) {
			return true
		}
	}
	for _, t := range traffic {
		if geom.PolygonsIntersect(c.Polygon, t.Polygon) {
			return true
		}
	}
	return false
}

// createPolygon returns the four corners of the car's body rotated by Angle.
func (c *Car) createPolygon() geom.Polygon {
	rad := math.Hypot(c.Width, c.Height) / 2
	alpha := math.Atan2(c.Width, c.Height)

	corner := func(theta float64) geom.Point {
		return geom.Point{
			X: c.X - math.Sin(theta)*rad,
			Y: c.Y - math.Cos(theta)*rad,
		}
	}
	return geom.Polygon{
		corner(c.Angle - alpha),
		corner(c.Angle + alpha),
		corner(math.Pi + c.Angle - alpha),
		corner(math.Pi + c.Angle + alpha),
	}
}
