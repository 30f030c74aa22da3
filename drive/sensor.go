package drive

import (
	"math"

	"github.com/baldhumanity/neat-drive/drive/geom"
)

// Sensor is a fan of rays cast from a car's position.
type Sensor struct {
	RayCount  int
	RayLength float64
	RaySpread float64 // radians

	Rays     []geom.Segment
	Readings []*geom.Intersection // nil entry: nothing within range
}

// NewSensor creates a sensor from config. Rays are cast on the first Update.
func NewSensor(config *SensorConfig) *Sensor {
	return &Sensor{
		RayCount:  config.RayCount,
		RayLength: config.RayLength,
		RaySpread: config.RaySpread(),
	}
}

// Update recasts the rays from (x, y) with the given heading and records the
// nearest obstacle hit by each ray.
func (s *Sensor) Update(x, y, angle float64, borders []geom.Segment, traffic []*Car) {
	s.castRays(x, y, angle)
	s.Readings = make([]*geom.Intersection, len(s.Rays))
	for i, ray := range s.Rays {
		s.Readings[i] = nearestHit(ray, borders, traffic)
	}
}

func (s *Sensor) castRays(x, y, angle float64) {
	s.Rays = make([]geom.Segment, s.RayCount)
	for i := 0; i < s.RayCount; i++ {
		t := 0.5
		if s.RayCount > 1 {
			t = float64(i) / float64(s.RayCount-1)
		}
		rayAngle := geom.Lerp(s.RaySpread/2, -s.RaySpread/2, t) + angle

		start := geom.Point{X: x, Y: y}
		end := geom.Point{
			X: x - math.Sin(rayAngle)*s.RayLength,
			Y: y - math.Cos(rayAngle)*s.RayLength,
		}
		s.Rays[i] = geom.Segment{A: start, B: end}
	}
}

// nearestHit returns the hit with the smallest offset along ray, borders first and
// then traffic edges. The first minimum found wins ties.
func nearestHit(ray geom.Segment, borders []geom.Segment, traffic []*Car) *geom.Intersection {
	var best *geom.Intersection
	consider := func(hit geom.Intersection) {
		if best == nil || hit.Offset < best.Offset {
			h := hit
			best = &h
		}
	}

	for _, b := range borders {
		if hit, ok := geom.SegmentIntersection(ray.A, ray.B, b.A, b.B); ok {
			consider(hit)
		}
	}
	for _, car := range traffic {
		poly := car.Polygon
		for j := range poly {
			edge := poly.Edge(j)
			if hit, ok := geom.SegmentIntersection(ray.A, ray.B, edge.A, edge.B); ok {
				consider(hit)
			}
		}
	}
	return best
}

// Proximities converts readings to network inputs: 0 when a ray sees nothing and
// 1 - offset otherwise, so closer obstacles give larger values.
// Before the first Update every ray reads 0.
func (s *Sensor) Proximities() []float64 {
	out := make([]float64, s.RayCount)
	for i, r := range s.Readings {
		if i >= len(out) {
			break
		}
		if r != nil {
			out[i] = 1 - r.Offset
		}
	}
	return out
}
