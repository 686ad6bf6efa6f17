package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c360/seisgate/budget"
	"github.com/c360/seisgate/cache"
	"github.com/c360/seisgate/engine"
	"github.com/c360/seisgate/gateway"
	"github.com/c360/seisgate/pkg/tlsutil"
	"github.com/c360/seisgate/routing"
)

// Config is the complete service configuration. Each section reuses the
// owning package's config type so defaults and validation live beside the
// code they govern.
type Config struct {
	// Version is the config schema version, semver formatted.
	Version string `json:"version"`

	Gateway gateway.Config `json:"gateway"`
	Routing routing.Config `json:"routing"`
	Engine  engine.Config  `json:"engine"`
	Budget  budget.Config  `json:"budget"`
	Cache   cache.Config   `json:"cache"`
	Metrics MetricsConfig  `json:"metrics"`
}

// MetricsConfig configures the standalone Prometheus endpoint.
type MetricsConfig struct {
	// Enabled toggles the metrics listener.
	Enabled bool `json:"enabled"`

	// Port is the metrics listen port. Defaults to 9090.
	Port int `json:"port"`

	// Path is the scrape path. Defaults to /metrics.
	Path string `json:"path"`

	// TLS secures the metrics listener when enabled.
	TLS tlsutil.ServerConfig `json:"tls,omitempty"`
}

// Validate applies defaults and checks the metrics section.
func (m *MetricsConfig) Validate() error {
	if m.Port == 0 {
		m.Port = 9090
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
	if m.Port < 0 || m.Port > 65535 {
		return fmt.Errorf("metrics port %d out of range", m.Port)
	}
	if !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("metrics path %q must start with /", m.Path)
	}
	return nil
}

// Validate checks every section, applying each section's defaults in
// place. Section errors keep their classification through wrapping.
func (c *Config) Validate() error {
	if c.Version != "" {
		if err := validateSemVer(c.Version); err != nil {
			return fmt.Errorf("version: %w", err)
		}
	}
	if err := c.Gateway.Validate(); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	if err := c.Routing.Validate(); err != nil {
		return fmt.Errorf("routing: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Budget.Validate(); err != nil {
		return fmt.Errorf("budget: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// validateSemVer checks a major.minor.patch version string.
func validateSemVer(version string) error {
	v := strings.TrimPrefix(version, "v")
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%q is not a major.minor.patch version", version)
	}
	for _, part := range parts {
		if _, err := strconv.Atoi(part); err != nil {
			return fmt.Errorf("%q is not a major.minor.patch version", version)
		}
	}
	return nil
}

// Loader loads configuration from layered JSON files with environment
// overrides: defaults, then each layer in order, then the environment.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a loader with no layers and validation disabled.
func NewLoader() *Loader {
	return &Loader{
		envPrefix: "SEISGATE",
	}
}

// AddLayer appends a configuration file layer. Later layers override
// earlier ones field by field.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation toggles validation of the merged result.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file, replacing any layers
// added earlier.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, the configured layers, and environment overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := l.getDefaults()

	for _, path := range l.layers {
		raw, err := l.loadRawJSON(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg = l.mergeFromMap(cfg, raw)
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// getDefaults seeds the sections whose packages publish defaults. The
// rest default inside their Validate.
func (l *Loader) getDefaults() *Config {
	return &Config{
		Version: "1.0.0",
		Routing: routing.DefaultConfig(),
		Engine:  engine.DefaultConfig(),
		Budget:  budget.DefaultConfig(),
		Cache:   cache.DefaultConfig(),
		Metrics: MetricsConfig{Enabled: true},
	}
}

// loadRawJSON reads one layer as a map so merging only touches the keys
// the file actually sets.
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

	normalizeDurations(raw)
	return raw, nil
}

// mergeFromMap deep-merges a raw layer over the base configuration.
func (l *Loader) mergeFromMap(base *Config, override map[string]any) *Config {
	if override == nil {
		return base
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return base
	}

	mergedMap := deepMergeMaps(baseMap, override)

	mergedJSON, err := json.Marshal(mergedMap)
	if err != nil {
		return base
	}
	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return base
	}
	return &merged
}

// deepMergeMaps merges override into base recursively, override winning
// on conflicts. Nil override values are ignored.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// Duration-valued keys may be written as Go duration strings ("30s") or
// with a day suffix ("14d") instead of nanosecond integers.
func durationKey(key string) bool {
	switch key {
	case "ttl", "timeout", "min_duration":
		return true
	}
	for _, suffix := range []string{"_timeout", "_interval", "_wait", "_delay", "_duration"} {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}

// normalizeDurations rewrites duration strings to nanosecond integers so
// the merged map unmarshals into time.Duration fields.
func normalizeDurations(m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case map[string]any:
			normalizeDurations(val)
		case string:
			if durationKey(k) {
				if d, err := parseDurationWithDays(val); err == nil {
					m[k] = d.Nanoseconds()
				}
			}
		}
	}
}

// parseDurationWithDays parses durations that may carry a day suffix,
// e.g. "14d", which time.ParseDuration rejects.
func parseDurationWithDays(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// applyEnvOverrides applies environment variables over the merged
// configuration. Only connection-level settings are overridable; tuning
// knobs stay in the files.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if v := l.envValue("GATEWAY_BIND_ADDRESS"); v != "" {
		cfg.Gateway.BindAddress = v
	}
	if v := l.envValue("ROUTING_URL"); v != "" {
		cfg.Routing.URL = v
	}
	if v := l.envValue("CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := l.envValue("CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := l.envValue("CACHE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.Enabled = enabled
		}
	}
	if v := l.envValue("METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := l.envValue("ENGINE_TEMP_DIR"); v != "" {
		cfg.Engine.TempDir = v
	}
}

// envValue reads a prefixed environment variable, dropping values that
// fail basic sanity checks.
func (l *Loader) envValue(suffix string) string {
	key := l.envPrefix + "_" + suffix
	value := os.Getenv(key)
	if err := validateEnvVar(key, value); err != nil {
		return ""
	}
	return value
}
