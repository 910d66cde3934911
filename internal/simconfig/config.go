// Package simconfig loads and validates the nested tagged-union YAML
// configuration and builds concrete simcore components from it, following
// battery-backtest's internal/config Load/LoadUnchecked/Validate split.
package simconfig

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ComponentConfig is the shared tagged-union shape every component family
// uses: a type tag plus a free-form settings bag. Unknown keys are silently
// ignored by the component builders; missing optional keys take variant
// defaults.
type ComponentConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Settings map[string]any `yaml:"settings" json:"settings"`
}

// EngineSettings carries the engine-level knobs the sweep driver recognises.
type EngineSettings struct {
	TimestepSeconds float64 `yaml:"timestep" json:"timestep"`
	StoreLogData    bool    `yaml:"store_log_data" json:"store_log_data"`
	LogPath         string  `yaml:"log_path" json:"log_path"`
	NormalizeStats  bool    `yaml:"normalize_stats" json:"normalize_stats"`
	Verbose         bool    `yaml:"verbose" json:"verbose"`
}

// Config is the on-disk configuration shape (YAML), one of each component.
// It doubles as the JSON request body for the simulate/sweep HTTP endpoints.
type Config struct {
	DTBaseSeconds float64         `yaml:"dt_base" json:"dt_base"`
	UntilSeconds  float64         `yaml:"until" json:"until"`
	Capacitor     ComponentConfig `yaml:"capacitor" json:"capacitor"`
	Harvester     ComponentConfig `yaml:"harvester" json:"harvester"`
	Converter     ComponentConfig `yaml:"converter" json:"converter"`
	Load          ComponentConfig `yaml:"load" json:"load"`
	Engine        EngineSettings  `yaml:"engine" json:"engine"`

	// dir is the directory the config file was loaded from, used to resolve
	// harvester trace and converter LUT paths relative to it before falling
	// back to the working directory. Empty for configs built in memory
	// (e.g. HTTP request bodies), in which case relative paths resolve
	// against the working directory only.
	dir string
}

// Dir returns the directory the config was loaded from, or "" if it was not
// loaded from a file.
func (c *Config) Dir() string { return c.dir }

// resolvePath resolves a possibly-relative path against dir first, falling
// back to path unresolved (interpreted against the working directory by the
// eventual os.Open) if the dir-relative candidate does not exist. Mirrors
// battery-backtest's BatteryFile resolution.
func resolvePath(dir, path string) string {
	if path == "" || dir == "" || filepath.IsAbs(path) {
		return path
	}
	cand := filepath.Join(dir, path)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return path
}

// Load reads, merges and validates a configuration file.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked reads a configuration file without validating it, useful
// for debugging or applying sweep overrides before the first Validate call.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c.DTBaseSeconds == 0 {
		c.DTBaseSeconds = 1e-6
	}
	c.dir = filepath.Dir(path)
	return &c, nil
}

// ConfigError reports an unreachable-state configuration.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return "config: " + e.Msg }

// Validate checks that every component has a recognised type tag. Deep
// per-variant validation happens inside the Build* functions, since it
// requires constructing the component.
func (c *Config) Validate() error {
	if c == nil {
		return &ConfigError{Msg: "config is nil"}
	}
	if c.Capacitor.Type == "" {
		return &ConfigError{Msg: "capacitor.type is required"}
	}
	if c.Harvester.Type == "" {
		return &ConfigError{Msg: "harvester.type is required"}
	}
	if c.Converter.Type == "" {
		return &ConfigError{Msg: "converter.type is required"}
	}
	if c.Load.Type == "" {
		return &ConfigError{Msg: "load.type is required"}
	}
	return nil
}

// Clone returns a deep-enough copy of c for sweep overrides to mutate
// independently of the base configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Capacitor = cloneComponent(c.Capacitor)
	clone.Harvester = cloneComponent(c.Harvester)
	clone.Converter = cloneComponent(c.Converter)
	clone.Load = cloneComponent(c.Load)
	return &clone
}

func cloneComponent(cc ComponentConfig) ComponentConfig {
	settings := make(map[string]any, len(cc.Settings))
	for k, v := range cc.Settings {
		settings[k] = v
	}
	return ComponentConfig{Type: cc.Type, Settings: settings}
}

// ApplyOverride sets a dotted field path (e.g. "harvester.settings.i_high"
// or "capacitor.settings.v_initial") to value, used by the sweep driver to
// apply one sweep-specification entry to a cloned configuration skeleton.
// "dt_base" and "until" address top-level scalars directly.
func (c *Config) ApplyOverride(fieldPath string, value any) error {
	parts := strings.Split(fieldPath, ".")
	if len(parts) == 0 {
		return &ConfigError{Msg: "empty override field path"}
	}

	switch parts[0] {
	case "dt_base":
		c.DTBaseSeconds = toFloat(value)
		return nil
	case "until":
		c.UntilSeconds = toFloat(value)
		return nil
	case "engine":
		return applyEngineOverride(&c.Engine, parts[1:], value)
	}

	var cc *ComponentConfig
	switch parts[0] {
	case "capacitor":
		cc = &c.Capacitor
	case "harvester":
		cc = &c.Harvester
	case "converter":
		cc = &c.Converter
	case "load":
		cc = &c.Load
	default:
		return &ConfigError{Msg: "unknown override root: " + parts[0]}
	}

	if len(parts) < 2 {
		return &ConfigError{Msg: "override path " + fieldPath + " missing field"}
	}
	if parts[1] == "type" {
		cc.Type, _ = value.(string)
		return nil
	}
	if parts[1] != "settings" || len(parts) < 3 {
		return &ConfigError{Msg: "override path " + fieldPath + " must address settings.<key>"}
	}
	if cc.Settings == nil {
		cc.Settings = map[string]any{}
	}
	key := strings.Join(parts[2:], ".")
	cc.Settings[key] = value
	return nil
}

func applyEngineOverride(e *EngineSettings, parts []string, value any) error {
	if len(parts) != 1 {
		return &ConfigError{Msg: "unknown engine override field"}
	}
	switch parts[0] {
	case "timestep":
		e.TimestepSeconds = toFloat(value)
	case "store_log_data":
		e.StoreLogData, _ = value.(bool)
	case "log_path":
		e.LogPath, _ = value.(string)
	case "normalize_stats":
		e.NormalizeStats, _ = value.(bool)
	case "verbose":
		e.Verbose, _ = value.(bool)
	default:
		return &ConfigError{Msg: "unknown engine override field: " + parts[0]}
	}
	return nil
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	default:
		return 0
	}
}

func getFloat(m map[string]any, key string, def float64) float64 {
	v, ok := m[key]
	if !ok {
		return def
	}
	return toFloat(v)
}

func getString(m map[string]any, key, def string) string {
	v, ok := m[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func getBool(m map[string]any, key string, def bool) bool {
	v, ok := m[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func getInt(m map[string]any, key string, def int) int {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case int:
		return x
	default:
		return int(toFloat(v))
	}
}
