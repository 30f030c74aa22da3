// Package geom holds the 2D primitives shared by the sensors and the collision checks.
//
// The coordinate system follows screen space: x grows to the right and y grows
// downward, so "forward" for a vehicle with heading 0 is towards negative y.
package geom

import "math"

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Segment is an ordered pair of points (A -> B).
type Segment struct {
	A Point `json:"a" yaml:"a"`
	B Point `json:"b" yaml:"b"`
}

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 {
	return math.Hypot(s.B.X-s.A.X, s.B.Y-s.A.Y)
}

// Intersection is the result of a segment-segment test.
// Offset is the parametric position of the hit along the first segment, in [0, 1].
type Intersection struct {
	Point
	Offset float64 `json:"offset" yaml:"offset"`
}

// Polygon is a closed sequence of points. Edges run between consecutive points
// and wrap from the last point back to the first.
type Polygon []Point

// Edge returns the i-th edge of the polygon (with wraparound).
func (p Polygon) Edge(i int) Segment {
	return Segment{A: p[i], B: p[(i+1)%len(p)]}
}

// Centroid returns the average of the polygon's vertices.
func (p Polygon) Centroid() Point {
	if len(p) == 0 {
		return Point{}
	}
	var c Point
	for _, pt := range p {
		c.X += pt.X
		c.Y += pt.Y
	}
	n := float64(len(p))
	return Point{X: c.X / n, Y: c.Y / n}
}

// Copy returns an independent copy of the polygon.
func (p Polygon) Copy() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// SegmentIntersection tests segment A->B against segment C->D.
// It reports a hit only when both parametric positions lie in [0, 1] (inclusive).
// Parallel and collinear segments, as well as zero-length ones, report no hit.
func SegmentIntersection(a, b, c, d Point) (Intersection, bool) {
	tTop := (d.X-c.X)*(a.Y-c.Y) - (d.Y-c.Y)*(a.X-c.X)
	uTop := (c.Y-a.Y)*(a.X-b.X) - (c.X-a.X)*(a.Y-b.Y)
	bottom := (d.Y-c.Y)*(b.X-a.X) - (d.X-c.X)*(b.Y-a.Y)

	if bottom == 0 {
		return Intersection{}, false
	}

	t := tTop / bottom
	u := uTop / bottom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Intersection{}, false
	}

	return Intersection{
		Point:  Point{X: Lerp(a.X, b.X, t), Y: Lerp(a.Y, b.Y, t)},
		Offset: t,
	}, true
}

// PolygonsIntersect reports whether any edge of p crosses any edge of q.
func PolygonsIntersect(p, q Polygon) bool {
	for i := range p {
		e1 := p.Edge(i)
		for j := range q {
			e2 := q.Edge(j)
			if _, ok := SegmentIntersection(e1.A, e1.B, e2.A, e2.B); ok {
				return true
			}
		}
	}
	return false
}

// PolygonIntersectsSegment reports whether any edge of p crosses s.
func PolygonIntersectsSegment(p Polygon, s Segment) bool {
	for i := range p {
		e := p.Edge(i)
		if _, ok := SegmentIntersection(e.A, e.B, s.A, s.B); ok {
			return true
		}
	}
	return false
}
