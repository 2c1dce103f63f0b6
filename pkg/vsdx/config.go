package vsdx

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/benjaminschreck/go-vsdx/pkg/vsdx/template"
)

// Config contains all configuration options for document handling
type Config struct {
	// CacheMaxSize is the maximum number of compiled templates to cache. 0 disables caching.
	CacheMaxSize int `yaml:"cache_max_size"`
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string `yaml:"log_level"`
	// StrictMode makes undefined variables in directives an expansion error
	StrictMode bool `yaml:"strict_mode"`
	// StrictReferences makes Save fail on formulas that reference missing shapes
	StrictReferences bool `yaml:"strict_references"`
	// WorkDir is the parent of the staging directory. Empty means os.TempDir().
	WorkDir string `yaml:"work_dir"`
	// KeepWorkDir leaves the staging directory on disk after Close
	KeepWorkDir bool `yaml:"keep_work_dir"`
	// MaxInheritanceDepth bounds master lookups through chained masters
	MaxInheritanceDepth int `yaml:"max_inheritance_depth"`
}

var (
	globalConfigMutex sync.RWMutex
	globalConfig      = ConfigFromEnvironment()
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize:        100,
		CacheTTL:            0,
		LogLevel:            "info",
		StrictMode:          false,
		StrictReferences:    false,
		MaxInheritanceDepth: 8,
	}
}

// ConfigFromEnvironment creates a configuration from VSDX_* environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	// VSDX_CACHE_MAX_SIZE
	if val := os.Getenv("VSDX_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	// VSDX_CACHE_TTL
	if val := os.Getenv("VSDX_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	// VSDX_LOG_LEVEL
	if val := os.Getenv("VSDX_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	// VSDX_STRICT_MODE
	if val := os.Getenv("VSDX_STRICT_MODE"); val != "" {
		config.StrictMode = parseBool(val)
	}

	// VSDX_STRICT_REFERENCES
	if val := os.Getenv("VSDX_STRICT_REFERENCES"); val != "" {
		config.StrictReferences = parseBool(val)
	}

	// VSDX_WORK_DIR
	if val := os.Getenv("VSDX_WORK_DIR"); val != "" {
		config.WorkDir = val
	}

	// VSDX_KEEP_WORK_DIR
	if val := os.Getenv("VSDX_KEEP_WORK_DIR"); val != "" {
		config.KeepWorkDir = parseBool(val)
	}

	// VSDX_MAX_INHERITANCE_DEPTH
	if val := os.Getenv("VSDX_MAX_INHERITANCE_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			config.MaxInheritanceDepth = depth
		}
	}

	return config
}

// LoadConfigFile reads a YAML configuration file. Keys missing from the file
// keep their default values.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	config := *overrides

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}

	if config.MaxInheritanceDepth == 0 {
		config.MaxInheritanceDepth = defaults.MaxInheritanceDepth
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CacheMaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.MaxInheritanceDepth <= 0 {
		return errors.New("max inheritance depth must be positive")
	}

	if c.WorkDir != "" {
		info, err := os.Stat(c.WorkDir)
		if err != nil {
			return fmt.Errorf("work dir: %w", err)
		}
		if !info.IsDir() {
			return errors.New("work dir is not a directory: " + c.WorkDir)
		}
	}

	return nil
}

// GetGlobalConfig returns a copy of the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration and applies it to the
// logger and the template cache
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	UpdateLoggerFromConfig()
	template.ConfigureDefaultCache(template.CacheConfig{
		MaxSize: config.CacheMaxSize,
		TTL:     config.CacheTTL,
	})
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func init() {
	config := GetGlobalConfig()
	template.ConfigureDefaultCache(template.CacheConfig{
		MaxSize: config.CacheMaxSize,
		TTL:     config.CacheTTL,
	})
}
