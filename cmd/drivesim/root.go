package main

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/baldhumanity/neat-drive/drive"
	"github.com/baldhumanity/neat-drive/observability"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// app carries the state shared by every subcommand once PersistentPreRunE has run.
type app struct {
	v       *viper.Viper
	cfgFile string

	config *drive.Config
	logger *zap.Logger
}

// newRootCmd builds a fresh command tree. Tests call it once per case.
func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "drivesim",
		Short:         "Neuro-evolved driving simulation.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				observability.Sync(a.logger)
			}
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "INI config file (defaults built in)")
	pf.Int64("seed", 0, "random seed; 0 picks one from the clock")
	pf.Int("population", 0, "population size override")
	pf.Int("traffic", -1, "traffic car count override")
	pf.Int("hidden-nodes", 0, "hidden layer size override")
	pf.Float64("mutation-rate", -1, "mutation rate override")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (console, json)")

	for _, name := range []string{"seed", "population", "traffic", "hidden-nodes", "mutation-rate", "log-level", "log-format"} {
		_ = a.v.BindPFlag(name, pf.Lookup(name))
	}
	a.v.SetEnvPrefix("DRIVESIM")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newRunCmd(a),
		newServeCmd(a),
		newSweepCmd(a),
		newVerifyCmd(a),
	)
	return root
}

// initialize loads the config file, applies flag and environment overrides and
// builds the logger.
func (a *app) initialize(cmd *cobra.Command) error {
	cfg := drive.DefaultConfig()
	logCfg := observability.DefaultLoggerConfig()

	if a.cfgFile != "" {
		path, err := homedir.Expand(a.cfgFile)
		if err != nil {
			return fmt.Errorf("failed to expand config path: %w", err)
		}
		if cfg, err = drive.LoadConfig(path); err != nil {
			return err
		}
		if logCfg, err = observability.LoadConfig(path); err != nil {
			return err
		}
	}

	if a.v.IsSet("seed") {
		cfg.Simulation.Seed = a.v.GetInt64("seed")
	}
	if a.v.IsSet("population") {
		cfg.Simulation.PopulationSize = a.v.GetInt("population")
	}
	if a.v.IsSet("traffic") {
		cfg.Simulation.TrafficCount = a.v.GetInt("traffic")
	}
	if a.v.IsSet("hidden-nodes") {
		cfg.Network.HiddenNodes = a.v.GetInt("hidden-nodes")
	}
	if a.v.IsSet("mutation-rate") {
		cfg.Evolution.MutationRate = a.v.GetFloat64("mutation-rate")
	}
	if a.v.IsSet("log-level") {
		logCfg.Level = a.v.GetString("log-level")
	}
	if a.v.IsSet("log-format") {
		logCfg.Format = a.v.GetString("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := observability.New(logCfg, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
	if err != nil {
		return err
	}
	a.config = cfg
	a.logger = logger
	a.logger.Debug("Configuration loaded", zap.String("config_file", a.cfgFile), zap.String("version", Version))
	return nil
}
