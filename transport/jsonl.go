package transport

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/baldhumanity/neat-drive/drive"
)

// JSONLinesRenderer writes every n-th snapshot to w as one JSON document per line.
// After the first write error it stops writing; Err reports the error.
type JSONLinesRenderer struct {
	enc    *jsoniter.Encoder
	every  int
	frames int
	err    error
}

// NewJSONLinesRenderer creates a renderer writing to w. n < 1 is treated as 1.
func NewJSONLinesRenderer(w io.Writer, n int) *JSONLinesRenderer {
	if n < 1 {
		n = 1
	}
	return &JSONLinesRenderer{enc: json.NewEncoder(w), every: n}
}

// Render implements drive.Renderer.
func (r *JSONLinesRenderer) Render(s *drive.Snapshot) {
	r.frames++
	if r.err != nil || (r.frames-1)%r.every != 0 {
		return
	}
	if err := r.enc.Encode(s); err != nil {
		r.err = fmt.Errorf("failed to write snapshot %d: %w", r.frames, err)
	}
}

// Err returns the first write error, if any.
func (r *JSONLinesRenderer) Err() error { return r.err }

// Fanout renders each snapshot to every renderer in order.
type Fanout []drive.Renderer

// Render implements drive.Renderer.
func (f Fanout) Render(s *drive.Snapshot) {
	for _, r := range f {
		r.Render(s)
	}
}
