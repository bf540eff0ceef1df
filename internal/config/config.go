package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"image-compressor-go/internal/compress"
)

// Config represents the main configuration structure
type Config struct {
	FileListPath    string            `mapstructure:"file_list"`
	OutputDirectory string            `mapstructure:"output_directory"`
	Compression     CompressionConfig `mapstructure:"compression"`
	Cache           CacheConfig       `mapstructure:"cache"`
	Performance     PerformanceConfig `mapstructure:"performance"`
	Logging         LoggingConfig     `mapstructure:"logging"`
}

// CompressionConfig contains the skip thresholds and target constraints
// applied uniformly to every file in the run
type CompressionConfig struct {
	Quality            float64 `mapstructure:"quality"`
	MinSizeBytes       int64   `mapstructure:"min_size_bytes"`
	MinWidth           int     `mapstructure:"min_width"`
	MinHeight          int     `mapstructure:"min_height"`
	TargetMaxSizeBytes int64   `mapstructure:"target_max_size_bytes"`
}

// CacheConfig contains learned-parameter cache settings
type CacheConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// PerformanceConfig contains performance tuning settings
type PerformanceConfig struct {
	Workers      int   `mapstructure:"workers"`
	TimeoutHours int64 `mapstructure:"timeout_hours"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		OutputDirectory: "compressed",
		Compression: CompressionConfig{
			Quality:            0.25,
			MinSizeBytes:       1048576, // 1 MiB
			MinWidth:           1920,
			MinHeight:          1920,
			TargetMaxSizeBytes: 1048576,
		},
		Cache: CacheConfig{
			DBPath: "image-compression-cache.db",
		},
		Performance: PerformanceConfig{
			Workers:      0, // 0 means one per CPU
			TimeoutHours: 24,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "image-compressor.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.image-compressor")
		viper.AddConfigPath("/etc/image-compressor")
	}

	// Enable environment variable support
	viper.SetEnvPrefix("IMAGE_COMPRESSOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	// Unmarshal config
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate and normalize config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Compression.Quality <= 0 || c.Compression.Quality > 1.0 {
		return fmt.Errorf("quality must be in (0, 1], got %v", c.Compression.Quality)
	}
	if c.Compression.MinSizeBytes < 0 {
		return fmt.Errorf("min_size_bytes must not be negative, got %d", c.Compression.MinSizeBytes)
	}
	if c.Compression.MinWidth <= 0 || c.Compression.MinHeight <= 0 {
		return fmt.Errorf("min_width/min_height must be positive, got %dx%d",
			c.Compression.MinWidth, c.Compression.MinHeight)
	}
	if c.Compression.TargetMaxSizeBytes <= 0 {
		return fmt.Errorf("target_max_size_bytes must be positive, got %d", c.Compression.TargetMaxSizeBytes)
	}

	if c.Performance.TimeoutHours <= 0 {
		c.Performance.TimeoutHours = 24
	}
	if c.Performance.Workers < 0 {
		c.Performance.Workers = 0
	}

	if c.Cache.DBPath == "" {
		c.Cache.DBPath = "image-compression-cache.db"
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: trace, debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

// CompressionParams returns the per-run parameters handed to the
// compression pipeline.
func (c *Config) CompressionParams() compress.Params {
	return compress.Params{
		Quality:            c.Compression.Quality,
		MinSizeBytes:       c.Compression.MinSizeBytes,
		MinWidth:           c.Compression.MinWidth,
		MinHeight:          c.Compression.MinHeight,
		TargetMaxSizeBytes: c.Compression.TargetMaxSizeBytes,
	}
}
