package drive

// Renderer receives a read-only snapshot after every tick.
type Renderer interface {
	Render(s *Snapshot)
}

// InputSource supplies the human player's controls, sampled once per tick.
type InputSource interface {
	Controls() Controls
}

// AudioSink is notified of discrete game events.
type AudioSink interface {
	Play(e Event)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(*Snapshot)

// Render calls f(s).
func (f RendererFunc) Render(s *Snapshot) { f(s) }

// AudioFunc adapts a function to the AudioSink interface.
type AudioFunc func(Event)

// Play calls f(e).
func (f AudioFunc) Play(e Event) { f(e) }

// StaticInput is an InputSource that always returns the same controls.
type StaticInput Controls

// Controls returns the fixed controls.
func (s StaticInput) Controls() Controls { return Controls(s) }

// EventType names a game event.
type EventType string

const (
	EventPlayerCrashed     EventType = "player_crashed"
	EventCarCrashed        EventType = "car_crashed"
	EventGenerationEvolved EventType = "generation_evolved"
	EventReset             EventType = "reset"
)

// Event describes something that happened during a tick.
type Event struct {
	Type       EventType `json:"type"`
	CarID      string    `json:"car_id,omitempty"`
	CarIndex   int       `json:"car_index"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Generation int       `json:"generation"`
	Tick       int       `json:"tick"`
}

type nopRenderer struct{}

func (nopRenderer) Render(*Snapshot) {}

type nopAudio struct{}

func (nopAudio) Play(Event) {}
