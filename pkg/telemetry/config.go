package telemetry

import (
	"fmt"
	"time"
)

// Config contains the telemetry configuration for simwalk.
type Config struct {
	// ServiceName is the name of the service for telemetry identification.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Environment specifies the deployment environment (dev, staging, prod).
	Environment string

	// Logging contains logging configuration.
	Logging LoggingConfig

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level"`

	// Format specifies the log format (console, json).
	Format string `yaml:"format"`

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string `yaml:"output"`

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool `yaml:"enable_caller"`
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	// Enabled turns tracing on.
	Enabled bool `yaml:"enabled"`

	// Exporter selects the span exporter (otlp, stdout, none).
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP collector endpoint.
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// SamplingRate is the trace sampling ratio in [0, 1].
	SamplingRate float64 `yaml:"sampling_rate"`

	// MaxExportBatchSize bounds the span export batch.
	MaxExportBatchSize int `yaml:"max_export_batch_size"`

	// ExportTimeout bounds one export attempt.
	ExportTimeout time.Duration `yaml:"export_timeout"`
}

// MetricsConfig configures Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns metrics collection on.
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`

	// Listen is the address of the scrape endpoint, when served.
	Listen string `yaml:"listen"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "simwalk",
		ServiceVersion: "dev",
		Environment:    "dev",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Enabled:            false,
			Exporter:           "none",
			SamplingRate:       1.0,
			MaxExportBatchSize: 512,
			ExportTimeout:      30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "simwalk",
		},
	}
}

// Validate checks the configuration for basic consistency.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Logging.Format)
	}
	switch c.Tracing.Exporter {
	case "", "otlp", "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Tracing.Exporter)
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("sampling rate must be in [0, 1], got %f", c.Tracing.SamplingRate)
	}
	return nil
}
