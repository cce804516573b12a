package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Storage backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Keys lists the configuration keys accepted by Set.
var Keys = []string{"data_dir", "storage_backend", "log_level"}

var ErrUnknownKey = errors.New("unknown config key")

// Config holds the process configuration. User preferences live in the
// settings bucket, not here.
type Config struct {
	DataDir        string `mapstructure:"data_dir"`
	StorageBackend string `mapstructure:"storage_backend"` // file, sqlite, memory
	LogLevel       string `mapstructure:"log_level"`
}

var AppConfig *Config

// Initialize loads or creates ~/.jobbies/config.yaml. JOBBIES_CONFIG_DIR
// points it at another directory.
func Initialize() error {
	dir := os.Getenv("JOBBIES_CONFIG_DIR")
	if dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".jobbies")
	}
	return InitializeAt(dir)
}

// InitializeAt loads or creates config.yaml inside configDir. A .env file in
// the working directory may supply JOBBIES_* overrides.
func InitializeAt(configDir string) error {
	configDir, err := homedir.Expand(configDir)
	if err != nil {
		return fmt.Errorf("failed to expand config directory: %w", err)
	}
	configFile := filepath.Join(configDir, "config.yaml")

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create default config if it doesn't exist
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := createDefaultConfig(configFile); err != nil {
			return err
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	viper.Reset()
	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("JOBBIES")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("data_dir", filepath.Join(configDir, "data"))
	viper.SetDefault("storage_backend", BackendFile)
	viper.SetDefault("log_level", "info")

	// Read config
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	return load()
}

func load() error {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

func (c *Config) normalize() error {
	dir, err := homedir.Expand(c.DataDir)
	if err != nil {
		return fmt.Errorf("failed to expand data_dir: %w", err)
	}
	c.DataDir = dir
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	return validate("storage_backend", c.StorageBackend)
}

// Level returns the configured zerolog level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func validate(key, value string) error {
	switch key {
	case "storage_backend":
		if !slices.Contains([]string{BackendFile, BackendSQLite, BackendMemory}, value) {
			return fmt.Errorf("invalid storage_backend %q: expected file, sqlite or memory", value)
		}
	case "log_level":
		if _, err := zerolog.ParseLevel(strings.ToLower(value)); err != nil {
			return fmt.Errorf("invalid log_level %q: %w", value, err)
		}
	case "data_dir":
		if strings.TrimSpace(value) == "" {
			return errors.New("data_dir cannot be empty")
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// createDefaultConfig creates a default config file
func createDefaultConfig(path string) error {
	defaultConfig := `# Jobbies Configuration
# Where applications, CVs and settings are stored (defaults to ~/.jobbies/data)
# data_dir: ~/.jobbies/data

# Storage backend: file, sqlite, memory
storage_backend: file

# Log level: debug, info, warn, error
log_level: info
`
	return os.WriteFile(path, []byte(defaultConfig), 0600)
}

// Set updates a configuration value
func Set(key, value string) error {
	if err := validate(key, value); err != nil {
		return err
	}
	viper.Set(key, value)
	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return load()
}

// Get retrieves a configuration value
func Get(key string) string {
	return viper.GetString(key)
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	return viper.ConfigFileUsed()
}
