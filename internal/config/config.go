// Package config provides configuration management for vuedts using Viper for
// loading from files, environment variables, and command-line flags.
//
// The configuration file is .vuedts.yml in the working directory. Every key
// can be overridden with a VUEDTS_ prefixed environment variable, with dots
// replaced by underscores (VUEDTS_WATCH_DEBOUNCE, VUEDTS_ENGINE_COMMAND).
// Compiler options are not configured here; they come from tsconfig.json.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/vuedts/internal/logging"
	"github.com/conneroisu/vuedts/internal/validation"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "VUEDTS"
	// FileName is the base name of the configuration file, without extension.
	FileName = ".vuedts"
)

// Configuration keys.
const (
	KeyTSConfig        = "tsconfig"
	KeyConcurrency     = "concurrency"
	KeyExclude         = "exclude"
	KeyWatchDebounce   = "watch.debounce"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	KeyEngineCommand   = "engine.command"
	KeyEngineCacheSize = "engine.cache_size"
)

type Config struct {
	TSConfig    string       `mapstructure:"tsconfig" yaml:"tsconfig"`
	Concurrency int          `mapstructure:"concurrency" yaml:"concurrency"`
	Exclude     []string     `mapstructure:"exclude" yaml:"exclude"`
	Watch       WatchConfig  `mapstructure:"watch" yaml:"watch"`
	Log         LogConfig    `mapstructure:"log" yaml:"log"`
	Engine      EngineConfig `mapstructure:"engine" yaml:"engine"`
	TargetFiles []string     `mapstructure:"-" yaml:"-"` // CLI arguments, not from config file
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type EngineConfig struct {
	Command   string `mapstructure:"command" yaml:"command"`
	CacheSize int    `mapstructure:"cache_size" yaml:"cache_size"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyTSConfig, "")
	v.SetDefault(KeyConcurrency, 8)
	v.SetDefault(KeyExclude, []string{"**/node_modules/**"})
	v.SetDefault(KeyWatchDebounce, 300*time.Millisecond)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyEngineCommand, "")
	v.SetDefault(KeyEngineCacheSize, 64)
}

// Setup points v at the configuration file and enables environment
// overrides. An explicit file wins over the VUEDTS_CONFIG_FILE variable, which
// wins over .vuedts.yml in dir.
func Setup(v *viper.Viper, file, dir string, lookupEnv func(string) (string, bool)) {
	if file == "" && lookupEnv != nil {
		if envFile, ok := lookupEnv(EnvPrefix + "_CONFIG_FILE"); ok {
			file = envFile
		}
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigType("yaml")
		v.SetConfigName(FileName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// Read loads the configuration file selected by Setup. A missing default file
// is not an error; it reports whether a file was read.
func Read(v *viper.Viper) (bool, error) {
	err := v.ReadInConfig()
	if err == nil {
		return true, nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("reading config file: %w", err)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	// Environment overrides of slices arrive as a single string.
	if v.IsSet(KeyExclude) {
		config.Exclude = v.GetStringSlice(KeyExclude)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoggerConfig returns the logger settings described by c.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	cfg.Format = c.Log.Format
	return cfg
}

// ValidationError describes an invalid configuration value.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// validateConfig validates configuration values for correctness
func validateConfig(config *Config) error {
	var errs []error

	if config.Concurrency < 1 {
		errs = append(errs, &ValidationError{Field: KeyConcurrency, Value: config.Concurrency, Message: "must be at least 1"})
	}
	if config.Watch.Debounce < 0 {
		errs = append(errs, &ValidationError{Field: KeyWatchDebounce, Value: config.Watch.Debounce, Message: "must not be negative"})
	}
	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		errs = append(errs, &ValidationError{Field: KeyLogLevel, Value: config.Log.Level, Message: err.Error()})
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		errs = append(errs, &ValidationError{Field: KeyLogFormat, Value: config.Log.Format, Message: "must be text or json"})
	}
	if config.Engine.Command != "" {
		if err := validation.ValidatePath(config.Engine.Command); err != nil {
			errs = append(errs, &ValidationError{Field: KeyEngineCommand, Value: config.Engine.Command, Message: err.Error()})
		}
	}
	if config.Engine.CacheSize < 1 {
		errs = append(errs, &ValidationError{Field: KeyEngineCacheSize, Value: config.Engine.CacheSize, Message: "must be at least 1"})
	}
	if config.TSConfig != "" {
		if err := validation.ValidatePath(config.TSConfig); err != nil {
			errs = append(errs, &ValidationError{Field: KeyTSConfig, Value: config.TSConfig, Message: err.Error()})
		}
	}

	return errors.Join(errs...)
}
