package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/simwalk/simwalk/pkg/telemetry"
)

// Load reads, defaults and validates a run configuration file.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses, defaults and validates a YAML run configuration.
func Parse(data []byte) (*RunConfig, error) {
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks a run configuration for consistency.
func Validate(cfg *RunConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(cfg.Goals.Find) > 0 && cfg.Goals.FindScript != "" {
		return fmt.Errorf("invalid config: find addresses and find_script are mutually exclusive")
	}
	if len(cfg.Goals.Avoid) > 0 && cfg.Goals.AvoidScript != "" {
		return fmt.Errorf("invalid config: avoid addresses and avoid_script are mutually exclusive")
	}
	return nil
}

func applyDefaults(cfg *RunConfig) {
	def := telemetry.DefaultConfig()
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = def.Logging.Output
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = def.Tracing.Exporter
	}
	if cfg.Tracing.SamplingRate == 0 {
		cfg.Tracing.SamplingRate = def.Tracing.SamplingRate
	}
	if cfg.Tracing.MaxExportBatchSize == 0 {
		cfg.Tracing.MaxExportBatchSize = def.Tracing.MaxExportBatchSize
	}
	if cfg.Tracing.ExportTimeout == 0 {
		cfg.Tracing.ExportTimeout = def.Tracing.ExportTimeout
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = def.Metrics.Namespace
	}
	if cfg.Goals.NumFind == 0 {
		cfg.Goals.NumFind = 1
	}
	if cfg.Spiller != nil && cfg.Spiller.Min == 0 {
		cfg.Spiller.Min = cfg.Spiller.Max / 2
	}
}
