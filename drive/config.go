package drive

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/baldhumanity/neat-drive/drive/nn"
)

// Config stores the configuration parameters for a simulation.
type Config struct {
	Simulation SimulationConfig
	Network    NetworkConfig
	Car        CarConfig
	Sensor     SensorConfig
	Road       RoadConfig
	Fitness    FitnessConfig
	Evolution  EvolutionConfig
}

// SimulationConfig holds population-level parameters.
type SimulationConfig struct {
	PopulationSize int   `ini:"population_size"`
	TrafficCount   int   `ini:"traffic_count"`
	Seed           int64 `ini:"seed"` // 0 picks a time-based seed
}

// NetworkConfig holds the shape of newly constructed networks.
type NetworkConfig struct {
	HiddenNodes int    `ini:"hidden_nodes"`
	OutputNodes int    `ini:"output_nodes"` // forward, left, right, reverse
	Activation  string `ini:"activation"`
}

// CarConfig holds the vehicle body and kinematic constants.
type CarConfig struct {
	Width           float64 `ini:"width"`
	Height          float64 `ini:"height"`
	MaxSpeed        float64 `ini:"max_speed"`
	TrafficMaxSpeed float64 `ini:"traffic_max_speed"`
	Acceleration    float64 `ini:"acceleration"`
	Friction        float64 `ini:"friction"`
	SteerRate       float64 `ini:"steer_rate"`
	StartY          float64 `ini:"start_y"`
	StartLane       int     `ini:"start_lane"`
}

// SensorConfig holds the ray fan parameters.
type SensorConfig struct {
	RayCount     int     `ini:"ray_count"`
	RayLength    float64 `ini:"ray_length"`
	RaySpreadDeg float64 `ini:"ray_spread_deg"`
}

// RaySpread returns the configured spread in radians.
func (s SensorConfig) RaySpread() float64 {
	return s.RaySpreadDeg * math.Pi / 180
}

// RoadConfig holds the road geometry.
type RoadConfig struct {
	CenterX           float64 `ini:"center_x"`
	Width             float64 `ini:"width"`
	LaneCount         int     `ini:"lane_count"`
	CheckpointCount   int     `ini:"checkpoint_count"`
	CheckpointSpacing float64 `ini:"checkpoint_spacing"`
	TrafficStartY     float64 `ini:"traffic_start_y"`
	TrafficSpacing    float64 `ini:"traffic_spacing"`
}

// FitnessConfig holds the fitness shaping parameters.
type FitnessConfig struct {
	StuckDistance   float64 `ini:"stuck_distance"`
	StuckTicks      int     `ini:"stuck_ticks"`
	StuckPenalty    float64 `ini:"stuck_penalty"`
	MaxStuckPenalty float64 `ini:"max_stuck_penalty"` // 0 leaves the penalty unbounded
	CheckpointBonus float64 `ini:"checkpoint_bonus"`
}

// EvolutionConfig holds the parameters of the generational loop.
type EvolutionConfig struct {
	MutationRate      float64 `ini:"mutation_rate"`
	ResetOnStagnation int     `ini:"reset_on_stagnation"` // 0 disables
}

// DefaultConfig returns the configuration the simulation was tuned with.
func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			PopulationSize: 20,
			TrafficCount:   10,
			Seed:           0,
		},
		Network: NetworkConfig{
			HiddenNodes: 8,
			OutputNodes: 4,
			Activation:  nn.DefaultActivation,
		},
		Car: CarConfig{
			Width:           30,
			Height:          50,
			MaxSpeed:        5,
			TrafficMaxSpeed: 2,
			Acceleration:    0.2,
			Friction:        0.05,
			SteerRate:       0.03,
			StartY:          100,
			StartLane:       1,
		},
		Sensor: SensorConfig{
			RayCount:     5,
			RayLength:    150,
			RaySpreadDeg: 90,
		},
		Road: RoadConfig{
			CenterX:           200,
			Width:             360,
			LaneCount:         3,
			CheckpointCount:   10,
			CheckpointSpacing: 100,
			TrafficStartY:     -100,
			TrafficSpacing:    150,
		},
		Fitness: FitnessConfig{
			StuckDistance:   0.1,
			StuckTicks:      100,
			StuckPenalty:    0.1,
			MaxStuckPenalty: 0,
			CheckpointBonus: 100,
		},
		Evolution: EvolutionConfig{
			MutationRate:      0.1,
			ResetOnStagnation: 0,
		},
	}
}

// Copy returns an independent copy of the configuration.
func (c *Config) Copy() *Config {
	cp := *c
	return &cp
}

// Topology returns the network shape implied by the sensor and network sections.
func (c *Config) Topology() nn.Topology {
	return nn.Topology{
		Inputs:     c.Sensor.RayCount,
		Hidden:     c.Network.HiddenNodes,
		Outputs:    c.Network.OutputNodes,
		Activation: c.Network.Activation,
	}
}

// LoadConfig loads configuration parameters from an INI file.
// Keys absent from the file keep their DefaultConfig values.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}
	return configFromFile(cfg)
}

// ParseConfig is LoadConfig for in-memory INI data.
func ParseConfig(data []byte) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return configFromFile(cfg)
}

func configFromFile(cfg *ini.File) (*Config, error) {
	config := DefaultConfig()

	sections := []struct {
		name   string
		target any
	}{
		{"Simulation", &config.Simulation},
		{"Network", &config.Network},
		{"Car", &config.Car},
		{"Sensor", &config.Sensor},
		{"Road", &config.Road},
		{"Fitness", &config.Fitness},
		{"Evolution", &config.Evolution},
	}
	for _, s := range sections {
		if !cfg.HasSection(s.name) {
			continue
		}
		if err := cfg.Section(s.name).MapTo(s.target); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}

	config.Network.Activation = cleanIniString(config.Network.Activation)
	if config.Network.Activation == "" {
		config.Network.Activation = nn.DefaultActivation
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks every parameter for a usable value.
func (c *Config) Validate() error {
	if c.Simulation.PopulationSize < 1 {
		return fmt.Errorf("config error: population_size must be at least 1")
	}
	if c.Simulation.TrafficCount < 0 {
		return fmt.Errorf("config error: traffic_count cannot be negative")
	}
	if err := c.Topology().Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.Network.OutputNodes != 4 {
		return fmt.Errorf("config error: output_nodes must be 4 (forward, left, right, reverse)")
	}
	if c.Car.Width <= 0 || c.Car.Height <= 0 {
		return fmt.Errorf("config error: car width and height must be positive")
	}
	if c.Car.MaxSpeed <= 0 || c.Car.TrafficMaxSpeed <= 0 {
		return fmt.Errorf("config error: max_speed and traffic_max_speed must be positive")
	}
	if c.Car.Acceleration < 0 || c.Car.Friction < 0 || c.Car.SteerRate < 0 {
		return fmt.Errorf("config error: acceleration, friction and steer_rate cannot be negative")
	}
	if c.Sensor.RayLength <= 0 {
		return fmt.Errorf("config error: ray_length must be positive")
	}
	if c.Sensor.RaySpreadDeg < 0 || c.Sensor.RaySpreadDeg > 360 {
		return fmt.Errorf("config error: ray_spread_deg must be between 0 and 360")
	}
	if c.Road.Width <= 0 {
		return fmt.Errorf("config error: road width must be positive")
	}
	if c.Road.LaneCount < 1 {
		return fmt.Errorf("config error: lane_count must be at least 1")
	}
	if c.Car.StartLane < 0 {
		return fmt.Errorf("config error: start_lane cannot be negative")
	}
	if c.Road.CheckpointCount < 0 || c.Road.CheckpointSpacing < 0 {
		return fmt.Errorf("config error: checkpoint_count and checkpoint_spacing cannot be negative")
	}
	if c.Fitness.StuckTicks < 0 || c.Fitness.StuckDistance < 0 || c.Fitness.StuckPenalty < 0 {
		return fmt.Errorf("config error: stuck_ticks, stuck_distance and stuck_penalty cannot be negative")
	}
	if c.Fitness.MaxStuckPenalty < 0 {
		return fmt.Errorf("config error: max_stuck_penalty cannot be negative")
	}
	if c.Evolution.MutationRate < 0 || c.Evolution.MutationRate > 1 {
		return fmt.Errorf("config error: mutation_rate must be between 0 and 1")
	}
	if c.Evolution.ResetOnStagnation < 0 {
		return fmt.Errorf("config error: reset_on_stagnation cannot be negative")
	}
	return nil
}

// cleanIniString removes inline comments and trims whitespace from a string read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
