package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Engine  EngineConfig  `json:"engine"  envPrefix:"KANON_"`
	Logging LoggingConfig `json:"logging" envPrefix:"KANON_"`
	Debug   DebugConfig   `json:"debug"   envPrefix:"KANON_"`
}

// EngineConfig holds the defaults an anonymization run falls back to when a
// flag isn't given explicitly on the command line.
type EngineConfig struct {
	K              int    `json:"k"               env:"K"               envDefault:"2"`
	Population     int    `json:"population"      env:"POPULATION"      envDefault:"100"`
	MutationRate   int    `json:"mutation_rate"   env:"MUTATION_RATE"   envDefault:"10"`
	MaxGenerations uint64 `json:"max_generations" env:"MAX_GENERATIONS" envDefault:"1000"`
	Metric         string `json:"metric"          env:"METRIC"          envDefault:"md"` // md, c
	CacheEnabled   bool   `json:"cache_enabled"   env:"CACHE_ENABLED"   envDefault:"true"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `json:"level"        env:"LOG_LEVEL"        envDefault:"info"`                        // debug, info, warn, error
	Format     string `json:"format"       env:"LOG_FORMAT"       envDefault:"text"`                        // text, json
	Output     string `json:"output"       env:"LOG_OUTPUT"       envDefault:"stdout"`                      // stdout, stderr, file
	File       string `json:"file"         env:"LOG_FILE"         envDefault:"~/.config/kanon/logs/app.log"` // log file path when output is file
	MaxSizeMB  int    `json:"max_size_mb"  env:"LOG_MAX_SIZE_MB"  envDefault:"10"`                           // max log file size
	MaxBackups int    `json:"max_backups"  env:"LOG_MAX_BACKUPS"  envDefault:"5"`                            // max number of backup files
	MaxAgeDays int    `json:"max_age_days" env:"LOG_MAX_AGE_DAYS" envDefault:"30"`                           // max age of log files
	AddSource  bool   `json:"add_source"   env:"LOG_ADD_SOURCE"   envDefault:"false"`                        // add source file and line info to logs
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled bool `json:"enabled" env:"DEBUG"   envDefault:"false"`
	Verbose bool `json:"verbose" env:"VERBOSE" envDefault:"false"`
}

// LoadConfig loads configuration from file, environment variables, and command-line flags
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := &Config{}

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Each nested struct carries its own envPrefix:"KANON_" tag, so no
	// global prefix is added here (that would yield KANON_KANON_*).
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) error {
	for key, value := range overrides {
		switch key {
		case "k":
			if n, ok := value.(int); ok && n > 0 {
				config.Engine.K = n
			}
		case "metric":
			if str, ok := value.(string); ok && str != "" {
				config.Engine.Metric = str
			}
		case "population":
			if n, ok := value.(int); ok && n > 0 {
				config.Engine.Population = n
			}
		case "mutation-rate":
			if n, ok := value.(int); ok && n > 0 {
				config.Engine.MutationRate = n
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "verbose":
			if b, ok := value.(bool); ok {
				config.Debug.Verbose = b
			}
		case "no-cache":
			if b, ok := value.(bool); ok {
				config.Engine.CacheEnabled = !b
			}
		}
	}

	return nil
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if s.Kind() == reflect.Bool {
			t.Set(s)
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	validMetrics := map[string]bool{"md": true, "c": true}
	if !validMetrics[strings.ToLower(config.Engine.Metric)] {
		return fmt.Errorf("invalid metric: %s (must be md or c)", config.Engine.Metric)
	}

	if config.Engine.K <= 0 {
		return fmt.Errorf("k must be positive: %d", config.Engine.K)
	}

	if config.Engine.Population <= 0 {
		return fmt.Errorf("population must be positive: %d", config.Engine.Population)
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("KANON_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "kanon", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Logging.File = expandPath(c.Logging.File)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/kanon"
	}

	return filepath.Join(homeDir, ".config", "kanon")
}

// GetLogDir returns the log directory
func GetLogDir() string {
	return filepath.Join(GetConfigDir(), "logs")
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dir := filepath.Dir(c.Logging.File)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
