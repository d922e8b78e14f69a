package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".gridscreen"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for gridscreen settings.
const envPrefix = "GRIDSCREEN"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadOption customizes Load.
type LoadOption func(*viper.Viper) error

// WithFlags binds command-line flags to config keys. bindings maps a flag name
// to its dotted key; flags missing from fs are skipped. A flag only overrides
// the file and environment when it was set explicitly.
func WithFlags(fs *pflag.FlagSet, bindings map[string]string) LoadOption {
	return func(viperCfg *viper.Viper) error {
		for name, key := range bindings {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}

			err := viperCfg.BindPFlag(key, flag)
			if err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}

		return nil
	}
}

// Load loads configuration from defaults, file, env vars and flags.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func Load(configPath string, opts ...LoadOption) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	for _, opt := range opts {
		err := opt(viperCfg)
		if err != nil {
			return nil, err
		}
	}

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration built from defaults alone.
func Default() Config {
	viperCfg := viper.New()
	applyDefaults(viperCfg)

	var cfg Config

	// Defaults always decode.
	_ = viperCfg.Unmarshal(&cfg)

	return cfg
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("screening.short_hour_window", DefaultShortHourWindow)
	viperCfg.SetDefault("screening.iqr_hours", DefaultIQRHours)
	viperCfg.SetDefault("screening.n_days", DefaultNDays)
	viperCfg.SetDefault("screening.global_dem_cut", DefaultGlobalDemCut)
	viperCfg.SetDefault("screening.local_dem_cut_up", DefaultLocalDemCutUp)
	viperCfg.SetDefault("screening.local_dem_cut_down", DefaultLocalDemCutDown)
	viperCfg.SetDefault("screening.delta_multiplier", DefaultDeltaMultiplier)
	viperCfg.SetDefault("screening.delta_single_multiplier", DefaultDeltaSingleMultiplier)
	viperCfg.SetDefault("screening.rel_multiplier", DefaultRelMultiplier)
	viperCfg.SetDefault("screening.anomalous_regions_width", DefaultAnomalousRegionsWidth)
	viperCfg.SetDefault("screening.anomalous_pct", DefaultAnomalousPct)

	viperCfg.SetDefault("input.timestamp_column", DefaultTimestampColumn)
	viperCfg.SetDefault("input.value_column", DefaultValueColumn)
	viperCfg.SetDefault("input.category_column", DefaultCategoryColumn)
	viperCfg.SetDefault("input.time_layout", DefaultTimeLayout)
	viperCfg.SetDefault("input.delimiter", DefaultDelimiter)
	viperCfg.SetDefault("input.fill_gaps", DefaultFillGaps)

	viperCfg.SetDefault("output.dir", DefaultOutputDir)
	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.with_derived", DefaultWithDerived)
	viperCfg.SetDefault("output.compress", DefaultCompress)
	viperCfg.SetDefault("output.no_color", DefaultNoColor)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.environment", DefaultEnvironment)
	viperCfg.SetDefault("telemetry.debug_trace", DefaultDebugTrace)

	viperCfg.SetDefault("server.addr", DefaultServerAddr)
	viperCfg.SetDefault("server.read_timeout", DefaultReadTimeout)
	viperCfg.SetDefault("server.write_timeout", DefaultWriteTimeout)
	viperCfg.SetDefault("server.idle_timeout", DefaultIdleTimeout)
	viperCfg.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	viperCfg.SetDefault("server.max_body_size", DefaultMaxBodySize)
	viperCfg.SetDefault("server.rate_limit", DefaultRateLimit)
	viperCfg.SetDefault("server.rate_burst", DefaultRateBurst)
	viperCfg.SetDefault("server.result_cache_size", DefaultResultCacheSize)

	viperCfg.SetDefault("batch.workers", DefaultBatchWorkers)
}
