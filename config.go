package orrery

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/viper"
)

// Config controls simulation defaults. The zero value is not usable; start
// from DefaultConfig or LoadConfig.
type Config struct {
	TimeStep          float64 // base physics step in simulation seconds
	MinTimeStep       float64 // lower clamp for speed-scaled steps
	MaxTimeStep       float64 // upper clamp for speed-scaled steps
	MaxStepsPerUpdate int     // spiral-of-death guard
	Workers           int     // force evaluation fan-out width
	ParallelThreshold int     // body count below which evaluation is sequential
	Method            IntegrationMethod
	VSOP87            bool   // load planet states from VSOP87 series
	VSOP87Dir         string // directory holding the VSOP87 data files
}

// DefaultConfig returns the built-in defaults: one hour RK4 steps, at most
// ten steps per update, machine-wide worker fan-out.
func DefaultConfig() Config {
	return Config{
		TimeStep:          3600,
		MinTimeStep:       1,
		MaxTimeStep:       SecondsPerDay,
		MaxStepsPerUpdate: 10,
		Workers:           runtime.NumCPU(),
		ParallelThreshold: defaultParallelThreshold,
		Method:            RK4,
	}
}

// LoadConfig reads conf.toml from the directory named by the ORRERY_CONFIG
// environment variable. An unset variable is not an error: the defaults are
// returned as-is.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	confPath := os.Getenv("ORRERY_CONFIG")
	if confPath == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigName("conf")
	v.AddConfigPath(confPath)
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("%s/conf.toml: %w", confPath, err)
	}
	if v.IsSet("simulation.step") {
		cfg.TimeStep = v.GetFloat64("simulation.step")
	}
	if v.IsSet("simulation.min_step") {
		cfg.MinTimeStep = v.GetFloat64("simulation.min_step")
	}
	if v.IsSet("simulation.max_step") {
		cfg.MaxTimeStep = v.GetFloat64("simulation.max_step")
	}
	if v.IsSet("simulation.max_steps_per_update") {
		cfg.MaxStepsPerUpdate = v.GetInt("simulation.max_steps_per_update")
	}
	if v.IsSet("simulation.method") {
		method, err := ParseIntegrationMethod(v.GetString("simulation.method"))
		if err != nil {
			return cfg, err
		}
		cfg.Method = method
	}
	if v.IsSet("workers.count") {
		cfg.Workers = v.GetInt("workers.count")
	}
	if v.IsSet("workers.parallel_threshold") {
		cfg.ParallelThreshold = v.GetInt("workers.parallel_threshold")
	}
	cfg.VSOP87 = v.GetBool("VSOP87.enabled")
	cfg.VSOP87Dir = v.GetString("VSOP87.directory")
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the clock cannot run with.
func (c Config) Validate() error {
	if c.TimeStep <= 0 {
		return fmt.Errorf("time step must be positive, got %f", c.TimeStep)
	}
	if c.MinTimeStep <= 0 || c.MaxTimeStep < c.MinTimeStep {
		return fmt.Errorf("invalid step bounds [%f, %f]", c.MinTimeStep, c.MaxTimeStep)
	}
	if c.MaxStepsPerUpdate < 1 {
		return fmt.Errorf("max steps per update must be at least 1, got %d", c.MaxStepsPerUpdate)
	}
	return nil
}

// StepForSpeed scales the base step by the speed multiplier and clamps the
// result to the configured bounds.
func (c Config) StepForSpeed(speed float64) float64 {
	if speed < 0 {
		speed = -speed
	}
	return Clamp(c.TimeStep*speed, c.MinTimeStep, c.MaxTimeStep)
}
