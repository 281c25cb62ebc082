// Package config provides configuration loading for MarketKit.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for the MarketKit client.
type Config struct {
	// API configures the storefront backend connection.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Storage configures the durable local store.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Log configures logging.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Sync configures the outbound cart write queue.
	Sync SyncConfig `yaml:"sync" mapstructure:"sync"`
}

// APIConfig is the backend connection configuration.
type APIConfig struct {
	// BaseURL is the backend base URL, e.g. "https://api.example.com".
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,http_url"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"omitempty,min=0"`

	// CacheTTL is the GET-response cache lifetime. Zero disables caching.
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// StorageConfig selects and locates the durable local store.
type StorageConfig struct {
	// Driver is the store backend: "file", "sqlite", or "memory".
	Driver string `yaml:"driver" mapstructure:"driver" validate:"required,oneof=file sqlite memory"`

	// Path is the store location on disk. Required for file and sqlite.
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, or error.
	Level string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// SyncConfig tunes the outbound cart write queue.
type SyncConfig struct {
	// QueueSize is the op buffer size.
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size" validate:"omitempty,min=1"`

	// WritesPerSecond paces outbound cart writes. Zero disables pacing.
	WritesPerSecond float64 `yaml:"writes_per_second" mapstructure:"writes_per_second" validate:"omitempty,min=0"`

	// Burst is the pacing burst size.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"omitempty,min=1"`
}

// Defaults applied when the config file or keys are absent.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultStorageDriver   = "file"
	DefaultLogLevel        = "info"
	DefaultQueueSize       = 64
	DefaultWritesPerSecond = 5.0
	DefaultBurst           = 5
)

// setDefaults registers the defaults with viper.
func setDefaults() {
	viper.SetDefault("api.timeout", DefaultTimeout)
	viper.SetDefault("storage.driver", DefaultStorageDriver)
	viper.SetDefault("log.level", DefaultLogLevel)
	viper.SetDefault("sync.queue_size", DefaultQueueSize)
	viper.SetDefault("sync.writes_per_second", DefaultWritesPerSecond)
	viper.SetDefault("sync.burst", DefaultBurst)
}
