package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	Report     ReportConfig     `mapstructure:"report" yaml:"report"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// EngineConfig configures batch processing of artifacts.
type EngineConfig struct {
	WorkerConcurrency int `mapstructure:"worker_concurrency" yaml:"worker_concurrency"`
}

// ExtractionConfig tunes the unpack/parse/extract/normalize pipeline.
type ExtractionConfig struct {
	// DefinitionExtension is the suffix of the process-definition entry inside an archive.
	DefinitionExtension string `mapstructure:"definition_extension" yaml:"definition_extension"`
	// MaxFieldLength bounds every string field of a canonical record.
	MaxFieldLength int         `mapstructure:"max_field_length" yaml:"max_field_length"`
	Debug          DebugConfig `mapstructure:"debug" yaml:"debug"`
}

// DebugConfig controls the diagnostic sink for unpacked artifacts.
type DebugConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

// ReportConfig selects the default report output.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "flowlens")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Engine --
	v.SetDefault("engine.worker_concurrency", 4)

	// -- Extraction --
	v.SetDefault("extraction.definition_extension", ".iflw")
	v.SetDefault("extraction.max_field_length", 255)
	v.SetDefault("extraction.debug.enabled", false)
	v.SetDefault("extraction.debug.dir", "debug")

	// -- Report --
	v.SetDefault("report.format", "json")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("database.url", "FLOWLENS_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Extraction.Debug.Dir != "" {
		dir, err := homedir.Expand(cfg.Extraction.Debug.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to expand extraction.debug.dir: %w", err)
		}
		cfg.Extraction.Debug.Dir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Engine.WorkerConcurrency <= 0 {
		return fmt.Errorf("engine.worker_concurrency must be a positive integer")
	}
	if err := c.Extraction.Validate(); err != nil {
		return fmt.Errorf("extraction configuration invalid: %w", err)
	}
	switch strings.ToLower(c.Report.Format) {
	case "json", "yaml", "sarif":
	default:
		return fmt.Errorf("report.format must be one of json, yaml, sarif (got %q)", c.Report.Format)
	}
	return nil
}

// Validate checks the extraction configuration.
func (e *ExtractionConfig) Validate() error {
	if !strings.HasPrefix(e.DefinitionExtension, ".") {
		return fmt.Errorf("definition_extension must start with a dot (got %q)", e.DefinitionExtension)
	}
	if e.MaxFieldLength <= 0 {
		return fmt.Errorf("max_field_length must be a positive integer")
	}
	if e.Debug.Enabled && e.Debug.Dir == "" {
		return fmt.Errorf("debug.dir is required when debug output is enabled")
	}
	return nil
}
