package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for marketkit.yaml/.yml in
// standard locations. The search requires an explicit YAML extension to
// avoid matching the binary itself, which Viper's built-in SetConfigName
// would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location.
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by Load).
		viper.SetConfigName("marketkit")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: MARKETKIT_API_BASE_URL
	viper.SetEnvPrefix("MARKETKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
	setDefaults()
}

// findConfigFile searches standard locations for a marketkit config file
// with an explicit YAML extension (.yaml or .yml).
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".marketkit"),
		"/etc/marketkit",
	}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "marketkit"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all config keys for environment variable support.
// Example: MARKETKIT_API_BASE_URL overrides api.base_url
func bindNestedEnvKeys() {
	_ = viper.BindEnv("api.base_url")
	_ = viper.BindEnv("api.timeout")
	_ = viper.BindEnv("api.cache_ttl")

	_ = viper.BindEnv("storage.driver")
	_ = viper.BindEnv("storage.path")

	_ = viper.BindEnv("log.level")

	_ = viper.BindEnv("sync.queue_size")
	_ = viper.BindEnv("sync.writes_per_second")
	_ = viper.BindEnv("sync.burst")
}

// Load reads, defaults, and validates the configuration. A missing config
// file is fine (defaults plus environment variables apply); a malformed
// one is an error.
func Load() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyPathDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPathDefaults fills the storage path when the selected driver needs
// one, defaulting under ~/.marketkit.
func applyPathDefaults(cfg *Config) {
	if cfg.Storage.Path != "" || cfg.Storage.Driver == "memory" {
		cfg.Storage.Path = expandHome(cfg.Storage.Path)
		return
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	switch cfg.Storage.Driver {
	case "sqlite":
		cfg.Storage.Path = filepath.Join(home, ".marketkit", "store.db")
	default:
		cfg.Storage.Path = filepath.Join(home, ".marketkit", "store.json")
	}
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// ConfigFileUsed reports the config file viper loaded, if any.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
