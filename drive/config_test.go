package drive

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	topo := cfg.Topology()
	assert.Equal(t, 5, topo.Inputs)
	assert.Equal(t, 8, topo.Hidden)
	assert.Equal(t, 4, topo.Outputs)
	assert.InDelta(t, math.Pi/2, cfg.Sensor.RaySpread(), 1e-15)
}

func TestParseConfigOverridesOnlyPresentKeys(t *testing.T) {
	data := []byte(`
[Simulation]
population_size = 50
seed = 7

[Network]
hidden_nodes = 12
activation = tanh ; inline comment

[Evolution]
mutation_rate = 0.25
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Simulation.PopulationSize)
	assert.Equal(t, int64(7), cfg.Simulation.Seed)
	assert.Equal(t, 10, cfg.Simulation.TrafficCount, "absent keys keep their defaults")
	assert.Equal(t, 12, cfg.Network.HiddenNodes)
	assert.Equal(t, "tanh", cfg.Network.Activation)
	assert.Equal(t, 0.25, cfg.Evolution.MutationRate)
	assert.Equal(t, DefaultConfig().Car, cfg.Car)
	assert.Equal(t, DefaultConfig().Road, cfg.Road)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drivesim.ini")
	require.NoError(t, os.WriteFile(path, []byte("[Road]\nwidth = 300\nlane_count = 4\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 300.0, cfg.Road.Width)
	assert.Equal(t, 4, cfg.Road.LaneCount)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero population", func(c *Config) { c.Simulation.PopulationSize = 0 }, "population_size"},
		{"negative traffic", func(c *Config) { c.Simulation.TrafficCount = -1 }, "traffic_count"},
		{"zero hidden", func(c *Config) { c.Network.HiddenNodes = 0 }, "hidden"},
		{"unknown activation", func(c *Config) { c.Network.Activation = "softmax" }, "softmax"},
		{"wrong outputs", func(c *Config) { c.Network.OutputNodes = 3 }, "output_nodes"},
		{"zero rays", func(c *Config) { c.Sensor.RayCount = 0 }, "inputs"},
		{"mutation rate too high", func(c *Config) { c.Evolution.MutationRate = 1.5 }, "mutation_rate"},
		{"no lanes", func(c *Config) { c.Road.LaneCount = 0 }, "lane_count"},
		{"flat road", func(c *Config) { c.Road.Width = 0 }, "road width"},
		{"negative penalty cap", func(c *Config) { c.Fitness.MaxStuckPenalty = -1 }, "max_stuck_penalty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config error")
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseConfigRejectsInvalidValues(t *testing.T) {
	_, err := ParseConfig([]byte("[Simulation]\npopulation_size = 0\n"))
	assert.ErrorContains(t, err, "population_size")

	_, err = ParseConfig([]byte("[Road]\nwidth = -10\n"))
	assert.ErrorContains(t, err, "road width")
}

func TestConfigCopyIsIndependent(t *testing.T) {
	a := DefaultConfig()
	b := a.Copy()
	b.Car.MaxSpeed = 9
	assert.Equal(t, 5.0, a.Car.MaxSpeed)
}
