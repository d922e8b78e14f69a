// Package config loads gridscreen configuration from defaults, an optional
// YAML file, GRIDSCREEN_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/gridscreen/pkg/screening"
	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

// Sentinel validation errors.
var (
	// ErrInvalidFormat indicates an unknown output format.
	ErrInvalidFormat = errors.New("output.format must be one of table, json, yaml")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("logging.level must be one of debug, info, warn, error")
	// ErrInvalidLogFormat indicates an unknown log format.
	ErrInvalidLogFormat = errors.New("logging.format must be text or json")
	// ErrInvalidDelimiter indicates a delimiter that is not a single character.
	ErrInvalidDelimiter = errors.New("input.delimiter must be a single character")
	// ErrInvalidColumn indicates an empty value column name.
	ErrInvalidColumn = errors.New("input.value_column must not be empty")
	// ErrInvalidSampleRatio indicates a sampling ratio outside [0, 1].
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
	// ErrInvalidBodySize indicates an unparseable or non-positive body size.
	ErrInvalidBodySize = errors.New("server.max_body_size must be a positive size")
	// ErrInvalidRateLimit indicates a negative rate limit or burst.
	ErrInvalidRateLimit = errors.New("server.rate_limit and server.rate_burst must be non-negative")
	// ErrInvalidCacheSize indicates an unparseable result cache size.
	ErrInvalidCacheSize = errors.New("server.result_cache_size must be a size")

	// ErrInvalidWorkers indicates a negative worker count.
	ErrInvalidWorkers = errors.New("batch.workers must be non-negative")
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Config holds all gridscreen configuration.
type Config struct {
	Screening screening.Params `mapstructure:"screening" yaml:"screening"`
	Input     InputConfig      `mapstructure:"input" yaml:"input"`
	Output    OutputConfig     `mapstructure:"output" yaml:"output"`
	Logging   LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig  `mapstructure:"telemetry" yaml:"telemetry"`
	Server    ServerConfig     `mapstructure:"server" yaml:"server"`
	Batch     BatchConfig      `mapstructure:"batch" yaml:"batch"`
}

// InputConfig describes how series are read from CSV.
type InputConfig struct {
	TimestampColumn string `mapstructure:"timestamp_column" yaml:"timestamp_column"`
	ValueColumn     string `mapstructure:"value_column" yaml:"value_column"`
	CategoryColumn  string `mapstructure:"category_column" yaml:"category_column"`
	TimeLayout      string `mapstructure:"time_layout" yaml:"time_layout"`
	Delimiter       string `mapstructure:"delimiter" yaml:"delimiter"`
	// FillGaps regularizes each series to a gap-free hourly grid before screening.
	FillGaps bool `mapstructure:"fill_gaps" yaml:"fill_gaps"`
}

// OutputConfig describes where and how results are written.
type OutputConfig struct {
	// Dir receives the screened CSV files. Empty writes next to the input.
	Dir         string `mapstructure:"dir" yaml:"dir"`
	Format      string `mapstructure:"format" yaml:"format"`
	WithDerived bool   `mapstructure:"with_derived" yaml:"with_derived"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
	NoColor     bool   `mapstructure:"no_color" yaml:"no_color"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers" yaml:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure" yaml:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio" yaml:"sample_ratio"`
	Environment  string  `mapstructure:"environment" yaml:"environment"`
	DebugTrace   bool    `mapstructure:"debug_trace" yaml:"debug_trace"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodySize     string        `mapstructure:"max_body_size" yaml:"max_body_size"`
	// RateLimit is the sustained requests per second; zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
	// ResultCacheSize bounds the cache of screening responses; "0" disables it.
	ResultCacheSize string `mapstructure:"result_cache_size" yaml:"result_cache_size"`
}

// BatchConfig holds batch screening settings.
type BatchConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	err := c.Screening.Validate()
	if err != nil {
		return err
	}

	validators := []func() error{
		c.Input.validate,
		c.Output.validate,
		c.Logging.validate,
		c.Telemetry.validate,
		c.Server.validate,
		c.Batch.validate,
	}

	for _, validate := range validators {
		err = validate()
		if err != nil {
			return err
		}
	}

	return nil
}

func (c InputConfig) validate() error {
	if c.ValueColumn == "" {
		return ErrInvalidColumn
	}

	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, c.Delimiter)
	}

	return nil
}

// CSVOptions converts the input settings into codec options.
func (c InputConfig) CSVOptions() series.CSVOptions {
	opts := series.DefaultCSVOptions()
	opts.TimestampColumn = c.TimestampColumn
	opts.ValueColumn = c.ValueColumn
	opts.CategoryColumn = c.CategoryColumn

	if c.TimeLayout != "" {
		opts.TimeLayout = c.TimeLayout
	}

	if r, _ := utf8.DecodeRuneInString(c.Delimiter); r != utf8.RuneError {
		opts.Delimiter = r
	}

	return opts
}

func (c OutputConfig) validate() error {
	switch c.Format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}
}

func (c LoggingConfig) validate() error {
	_, err := c.SlogLevel()
	if err != nil {
		return err
	}

	switch strings.ToLower(c.Format) {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Format)
	}
}

// SlogLevel parses Level.
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}
}

// JSON reports whether logs are written as JSON.
func (c LoggingConfig) JSON() bool {
	return strings.EqualFold(c.Format, "json")
}

func (c TelemetryConfig) validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.SampleRatio)
	}

	return nil
}

func (c ServerConfig) validate() error {
	_, err := c.MaxBodyBytes()
	if err != nil {
		return err
	}

	if c.RateLimit < 0 || c.RateBurst < 0 {
		return ErrInvalidRateLimit
	}

	_, err = c.ResultCacheBytes()
	if err != nil {
		return err
	}

	return nil
}

// MaxBodyBytes parses MaxBodySize ("8MB", "512KiB", ...) into bytes.
func (c ServerConfig) MaxBodyBytes() (int64, error) {
	size, err := humanize.ParseBytes(c.MaxBodySize)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidBodySize, err)
	}

	if size == 0 || size > uint64(1<<62) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBodySize, c.MaxBodySize)
	}

	return int64(size), nil
}

// ResultCacheBytes parses ResultCacheSize into bytes. Zero disables the cache.
func (c ServerConfig) ResultCacheBytes() (int64, error) {
	size, err := humanize.ParseBytes(c.ResultCacheSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidCacheSize, err)
	}

	if size > uint64(1<<62) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCacheSize, c.ResultCacheSize)
	}

	return int64(size), nil
}

func (c BatchConfig) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}

	return nil
}
