package runner

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/baldhumanity/neat-drive/drive"
)

// Summary is the end-of-run report printed by the CLI.
type Summary struct {
	Seed           int64                   `json:"seed" yaml:"seed"`
	Generations    int                     `json:"generations" yaml:"generations"`
	TotalTicks     int                     `json:"total_ticks" yaml:"total_ticks"`
	BestFitness    float64                 `json:"best_fitness" yaml:"best_fitness"`
	MutationRate   float64                 `json:"mutation_rate" yaml:"mutation_rate"`
	PopulationSize int                     `json:"population_size" yaml:"population_size"`
	HiddenNodes    int                     `json:"hidden_nodes" yaml:"hidden_nodes"`
	Alive          int                     `json:"alive" yaml:"alive"`
	Fingerprint    string                  `json:"fingerprint" yaml:"fingerprint"`
	History        []drive.GenerationStats `json:"history,omitempty" yaml:"history,omitempty"`
}

// Summarize captures the state of g.
func Summarize(g *drive.Game) Summary {
	history := append([]drive.GenerationStats(nil), g.History()...)
	return Summary{
		Seed:           g.Seed(),
		Generations:    g.Generation(),
		TotalTicks:     g.TotalTicks(),
		BestFitness:    g.BestFitness(),
		MutationRate:   g.MutationRate(),
		PopulationSize: g.PopulationSize(),
		HiddenNodes:    g.HiddenNodes(),
		Alive:          g.Alive(),
		Fingerprint:    fmt.Sprintf("%016x", g.Snapshot().Fingerprint()),
		History:        history,
	}
}

// Encode writes s to w as "yaml" or "json".
func (s Summary) Encode(w io.Writer, format string) error {
	return Encode(w, format, s)
}

// Encode writes v to w as "yaml" (the default) or "json".
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	case "json":
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
