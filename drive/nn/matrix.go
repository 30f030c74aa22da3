package nn

import "fmt"

// Matrix is a dense row-major matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns the element at (r, c).
func (m *Matrix) At(r, c int) float64 {
	return m.Data[r*m.Cols+c]
}

// Set stores v at (r, c).
func (m *Matrix) Set(r, c int, v float64) {
	m.Data[r*m.Cols+c] = v
}

// Row returns a copy of row r.
func (m *Matrix) Row(r int) []float64 {
	out := make([]float64, m.Cols)
	copy(out, m.Data[r*m.Cols:(r+1)*m.Cols])
	return out
}

// Copy creates a deep copy of the matrix.
func (m *Matrix) Copy() *Matrix {
	data := make([]float64, len(m.Data))
	copy(data, m.Data)
	return &Matrix{Rows: m.Rows, Cols: m.Cols, Data: data}
}

// Map replaces every element with fn(element), visiting elements in row-major order.
func (m *Matrix) Map(fn func(float64) float64) {
	for i, v := range m.Data {
		m.Data[i] = fn(v)
	}
}

// Affine computes m·v + bias. The dot product is accumulated first and the bias
// added afterwards.
func (m *Matrix) Affine(v, bias []float64) ([]float64, error) {
	if len(v) != m.Cols {
		return nil, fmt.Errorf("%w: vector length %d, matrix has %d columns", ErrDimensionMismatch, len(v), m.Cols)
	}
	if len(bias) != m.Rows {
		return nil, fmt.Errorf("%w: bias length %d, matrix has %d rows", ErrDimensionMismatch, len(bias), m.Rows)
	}
	out := make([]float64, m.Rows)
	for i := 0; i < m.Rows; i++ {
		sum := 0.0
		row := m.Data[i*m.Cols : (i+1)*m.Cols]
		for k, w := range row {
			sum += w * v[k]
		}
		out[i] = sum + bias[i]
	}
	return out, nil
}

// Rows2D returns the matrix as a slice of row slices (copied).
func (m *Matrix) Rows2D() [][]float64 {
	out := make([][]float64, m.Rows)
	for r := range out {
		out[r] = m.Row(r)
	}
	return out
}
