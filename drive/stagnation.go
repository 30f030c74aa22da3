package drive

// Stagnation tracks how long the best-ever fitness has gone without improving.
type Stagnation struct {
	Limit        int // generations without improvement before a reset; 0 disables
	LastImproved int
}

// NewStagnation creates a stagnation tracker.
func NewStagnation(limit int) *Stagnation {
	return &Stagnation{Limit: limit}
}

// Update records the outcome of a finished generation.
func (s *Stagnation) Update(improved bool, generation int) {
	if improved {
		s.LastImproved = generation
	}
}

// Since returns the number of generations since the last improvement.
func (s *Stagnation) Since(generation int) int {
	return generation - s.LastImproved
}

// IsStagnant reports whether the population should be rebuilt at generation.
func (s *Stagnation) IsStagnant(generation int) bool {
	return s.Limit > 0 && s.Since(generation) >= s.Limit
}

// Reset restarts the count at generation.
func (s *Stagnation) Reset(generation int) {
	s.LastImproved = generation
}
