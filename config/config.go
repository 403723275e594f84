package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c360/datalink/connectors"
	"github.com/c360/datalink/pkg/cache"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "DATALINK"

// Config is the complete application configuration.
type Config struct {
	Cache      cache.Config      `json:"cache"`
	Dispatch   DispatchConfig    `json:"dispatch"`
	Bus        BusConfig         `json:"bus"`
	Connectors connectors.Config `json:"connectors"`
	Logging    LoggingConfig     `json:"logging"`
}

// DispatchConfig tunes the dispatcher.
type DispatchConfig struct {
	// DefaultTTL applies to cached results when neither the caller nor the
	// agent provides one.
	DefaultTTL time.Duration `json:"default_ttl" schema:"editable,type:string,description:TTL for cached results without an explicit hint"`

	// Timeout bounds each dispatch. Zero disables the bound.
	Timeout time.Duration `json:"timeout,omitempty" schema:"editable,type:string,description:Per-dispatch deadline"`

	// RateLimits throttles individual agents, keyed by agent name.
	RateLimits map[string]RateLimitConfig `json:"rate_limits,omitempty"`
}

// RateLimitConfig throttles one agent.
type RateLimitConfig struct {
	PerSecond float64 `json:"per_second"`
	Burst     int     `json:"burst"`
}

// BusConfig connects the cache invalidation bus.
type BusConfig struct {
	Enabled       bool   `json:"enabled"`
	URL           string `json:"url,omitempty"`
	SubjectPrefix string `json:"subject_prefix,omitempty"`
}

// LoggingConfig selects log verbosity and output encoding.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // text, json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cache: cache.DefaultConfig(),
		Dispatch: DispatchConfig{
			DefaultTTL: 5 * time.Minute,
		},
		Bus: BusConfig{
			URL: "nats://localhost:4222",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration. Connector settings validate when the
// connectors are built, so a passing config can still fail registration.
func (c *Config) Validate() error {
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if c.Dispatch.DefaultTTL < 0 {
		return fmt.Errorf("dispatch.default_ttl cannot be negative, got %v", c.Dispatch.DefaultTTL)
	}
	if c.Dispatch.Timeout < 0 {
		return fmt.Errorf("dispatch.timeout cannot be negative, got %v", c.Dispatch.Timeout)
	}
	for agent, rl := range c.Dispatch.RateLimits {
		if agent == "" {
			return errors.New("dispatch.rate_limits: agent name cannot be empty")
		}
		if rl.PerSecond <= 0 {
			return fmt.Errorf("dispatch.rate_limits[%s].per_second must be positive, got %v", agent, rl.PerSecond)
		}
		if rl.Burst < 1 {
			return fmt.Errorf("dispatch.rate_limits[%s].burst must be at least 1, got %d", agent, rl.Burst)
		}
	}

	if c.Bus.Enabled && c.Bus.URL == "" {
		return errors.New("bus.url is required when the bus is enabled")
	}

	if err := validateChoice("logging.level", c.Logging.Level, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	return validateChoice("logging.format", c.Logging.Format, "text", "json")
}

func validateChoice(field, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value)
}

// String returns an indented JSON rendering of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// UnmarshalJSON accepts duration fields as either strings ("5m") or integer
// nanoseconds.
func (d *DispatchConfig) UnmarshalJSON(data []byte) error {
	type Alias DispatchConfig
	aux := &struct {
		DefaultTTL json.RawMessage `json:"default_ttl,omitempty"`
		Timeout    json.RawMessage `json:"timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(d),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.DefaultTTL) > 0 {
		ttl, err := parseDurationJSON(aux.DefaultTTL, "dispatch.default_ttl")
		if err != nil {
			return err
		}
		d.DefaultTTL = ttl
	}
	if len(aux.Timeout) > 0 {
		timeout, err := parseDurationJSON(aux.Timeout, "dispatch.timeout")
		if err != nil {
			return err
		}
		d.Timeout = timeout
	}
	return nil
}

func parseDurationJSON(data json.RawMessage, field string) (time.Duration, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", field, err)
		}
		return d, nil
	}

	var nsec int64
	if err := json.Unmarshal(data, &nsec); err != nil {
		return 0, fmt.Errorf("%s must be a duration string or integer nanoseconds", field)
	}
	return time.Duration(nsec), nil
}

// Loader loads configuration from layered JSON files with environment
// overrides. Later layers override earlier ones; the environment wins last.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a loader with the DATALINK environment prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: EnvPrefix}
}

// AddLayer appends a configuration file layer.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation makes Load validate the merged configuration.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads one file over the defaults.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, file layers, and environment overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRawJSON(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		merged, err := merge(cfg, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", path, err)
		}
		cfg = merged
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// merge overlays file values onto base. Only keys present in the file
// override; everything else keeps its base value.
func merge(base *Config, override map[string]any) (*Config, error) {
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMerge(baseMap, override))
	if err != nil {
		return nil, err
	}
	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// deepMerge recursively merges maps, override winning on scalar conflicts.
func deepMerge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMerge(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides applies DATALINK_* environment variables. Unparseable
// values are ignored so a stray variable cannot take the loader down.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(l.envPrefix + "_CACHE_MAX_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Cache.MaxSize = n
		}
	}
	if val := os.Getenv(l.envPrefix + "_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if val := os.Getenv(l.envPrefix + "_DISPATCH_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Dispatch.Timeout = d
		}
	}
	if val := os.Getenv(l.envPrefix + "_BUS_URL"); val != "" {
		cfg.Bus.URL = val
	}
	if val := os.Getenv(l.envPrefix + "_BUS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Bus.Enabled = b
		}
	}
	if val := os.Getenv(l.envPrefix + "_BUS_SUBJECT_PREFIX"); val != "" {
		cfg.Bus.SubjectPrefix = val
	}
	if val := os.Getenv(l.envPrefix + "_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv(l.envPrefix + "_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
