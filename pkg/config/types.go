package config

import (
	"github.com/simwalk/simwalk/pkg/telemetry"
)

// RunConfig is the root configuration for one exploration run.
type RunConfig struct {
	// Program is the path to the YAML program description.
	Program string `yaml:"program" validate:"required"`

	// Goals configures the goal-directed search.
	Goals GoalsConfig `yaml:"goals"`

	// Limits configures stepping bounds.
	Limits LimitsConfig `yaml:"limits"`

	// Spiller configures working-set eviction. Disabled when nil.
	Spiller *SpillerConfig `yaml:"spiller,omitempty"`

	// Threading configures parallel stepping. Disabled when nil.
	Threading *ThreadingConfig `yaml:"threading,omitempty"`

	// Stochastic configures randomized selection. Disabled when nil.
	Stochastic *StochasticConfig `yaml:"stochastic,omitempty"`

	// Unique enables address-deduplicating selection.
	Unique bool `yaml:"unique,omitempty"`

	// Introspection advertises block introspection from the engine.
	// Defaults to true.
	Introspection *bool `yaml:"introspection,omitempty"`

	// Logging configures the root logger.
	Logging telemetry.LoggingConfig `yaml:"logging"`

	// Tracing configures span export.
	Tracing telemetry.TracingConfig `yaml:"tracing"`

	// Metrics configures Prometheus collection.
	Metrics telemetry.MetricsConfig `yaml:"metrics"`
}

// GoalsConfig describes find/avoid conditions. Address lists and predicate
// scripts are mutually exclusive per goal.
type GoalsConfig struct {
	// Find lists goal addresses.
	Find []uint64 `yaml:"find,omitempty"`

	// FindScript is a Starlark predicate deciding the find goal.
	FindScript string `yaml:"find_script,omitempty"`

	// Avoid lists exclusion addresses.
	Avoid []uint64 `yaml:"avoid,omitempty"`

	// AvoidScript is a Starlark predicate deciding the avoid goal.
	AvoidScript string `yaml:"avoid_script,omitempty"`

	// Precedence resolves find/avoid overlap (avoid, find).
	Precedence string `yaml:"precedence,omitempty" validate:"omitempty,oneof=avoid find"`

	// NumFind is the number of found states that completes the run.
	NumFind int `yaml:"num_find,omitempty" validate:"gte=0"`
}

// LimitsConfig bounds the exploration.
type LimitsConfig struct {
	// MaxRounds bounds the whole run; zero means unbounded.
	MaxRounds int `yaml:"max_rounds,omitempty" validate:"gte=0"`

	// StepWidth caps how many states are stepped per round; zero disables.
	StepWidth int `yaml:"step_width,omitempty" validate:"gte=0"`

	// MaxLength cuts states after this many steps; zero disables.
	MaxLength int `yaml:"max_length,omitempty" validate:"gte=0"`
}

// SpillerConfig configures working-set eviction.
type SpillerConfig struct {
	// Max is the resident capacity of the active stash.
	Max int `yaml:"max" validate:"gt=0"`

	// Min is the restore low-water mark. Defaults to Max/2.
	Min int `yaml:"min,omitempty" validate:"gte=0"`

	// Path is the SQLite database file. Empty means in-memory store.
	Path string `yaml:"path,omitempty"`
}

// ThreadingConfig configures parallel stepping.
type ThreadingConfig struct {
	// Workers is the worker pool size.
	Workers int `yaml:"workers" validate:"gt=0"`
}

// StochasticConfig configures randomized selection.
type StochasticConfig struct {
	// Seed makes runs reproducible.
	Seed int64 `yaml:"seed"`
}
