package drive

import (
	"fmt"
	"math"

	"github.com/baldhumanity/neat-drive/drive/geom"
)

// roadExtent stands in for an unbounded road length.
const roadExtent = 1_000_000

// Road is a straight vertical road with a fixed number of lanes.
type Road struct {
	X         float64
	Width     float64
	LaneCount int

	Left   float64
	Right  float64
	Top    float64
	Bottom float64

	Borders     []geom.Segment
	Checkpoints []geom.Segment

	checkpointCount   int
	checkpointSpacing float64
}

// NewRoad builds the road geometry from config.
func NewRoad(config *RoadConfig) *Road {
	r := &Road{
		X:                 config.CenterX,
		LaneCount:         config.LaneCount,
		Top:               -roadExtent,
		Bottom:            roadExtent,
		checkpointCount:   config.CheckpointCount,
		checkpointSpacing: config.CheckpointSpacing,
	}
	r.setWidth(config.Width)
	return r
}

func (r *Road) setWidth(width float64) {
	r.Width = width
	r.Left = r.X - width/2
	r.Right = r.X + width/2

	r.Borders = []geom.Segment{
		{A: geom.Point{X: r.Left, Y: r.Top}, B: geom.Point{X: r.Left, Y: r.Bottom}},
		{A: geom.Point{X: r.Right, Y: r.Top}, B: geom.Point{X: r.Right, Y: r.Bottom}},
	}

	r.Checkpoints = make([]geom.Segment, 0, r.checkpointCount)
	for i := 1; i <= r.checkpointCount; i++ {
		y := -float64(i) * r.checkpointSpacing
		r.Checkpoints = append(r.Checkpoints, geom.Segment{
			A: geom.Point{X: r.Left, Y: y},
			B: geom.Point{X: r.Right, Y: y},
		})
	}
}

// Resize changes the drivable width, keeping the road centred on X.
func (r *Road) Resize(width float64) error {
	if width <= 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return fmt.Errorf("road width must be a positive finite number, got %v", width)
	}
	r.setWidth(width)
	return nil
}

// LaneCenter returns the x coordinate of the centre of lane index.
// Indexes past the last lane clamp to the last lane.
func (r *Road) LaneCenter(index int) float64 {
	laneWidth := r.Width / float64(r.LaneCount)
	return r.Left + laneWidth/2 + float64(min(index, r.LaneCount-1))*laneWidth
}

// LaneDividers returns the x coordinates of the lines between lanes.
func (r *Road) LaneDividers() []float64 {
	out := make([]float64, 0, r.LaneCount-1)
	for i := 1; i < r.LaneCount; i++ {
		out = append(out, geom.Lerp(r.Left, r.Right, float64(i)/float64(r.LaneCount)))
	}
	return out
}
