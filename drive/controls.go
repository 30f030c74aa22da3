package drive

// ControlType selects where a car's controls come from.
type ControlType int

const (
	// ControlHuman cars read the input port once per tick.
	ControlHuman ControlType = iota
	// ControlNetwork cars derive controls from their network.
	ControlNetwork
	// ControlAutopilot cars hold forward forever.
	ControlAutopilot
)

// String returns the lowercase name of the control type.
func (c ControlType) String() string {
	switch c {
	case ControlHuman:
		return "human"
	case ControlNetwork:
		return "network"
	case ControlAutopilot:
		return "autopilot"
	default:
		return "unknown"
	}
}

// Controls is the boolean control state of a car.
type Controls struct {
	Forward bool `json:"forward"`
	Left    bool `json:"left"`
	Right   bool `json:"right"`
	Reverse bool `json:"reverse"`
}

// controlThreshold splits network outputs into pressed and released.
const controlThreshold = 0.5

// controlsFromOutputs maps the four network outputs (forward, left, right, reverse)
// to controls.
func controlsFromOutputs(outputs []float64) Controls {
	return Controls{
		Forward: outputs[0] > controlThreshold,
		Left:    outputs[1] > controlThreshold,
		Right:   outputs[2] > controlThreshold,
		Reverse: outputs[3] > controlThreshold,
	}
}
