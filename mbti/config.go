package mbti

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "config.json"

// ServerConfig controls the JSON API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" validate:"required,hostname_port"`
}

// LogConfig controls the zap logger built by the executables.
type LogConfig struct {
	Level       string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `json:"development" yaml:"development"`
}

// Config aggregates runtime settings persisted to config.json (or a YAML file).
type Config struct {
	DataPath         string           `json:"dataPath" yaml:"dataPath" validate:"required"`
	ReferenceCountry string           `json:"referenceCountry" yaml:"referenceCountry" validate:"required"`
	DefaultTarget    string           `json:"defaultTarget" yaml:"defaultTarget"`
	LastTarget       string           `json:"lastTarget,omitempty" yaml:"lastTarget,omitempty"`
	TopN             int              `json:"topN" yaml:"topN" validate:"gte=1,lte=1000"`
	MostCommon       int              `json:"mostCommon" yaml:"mostCommon" validate:"gte=1,lte=16"`
	Locale           string           `json:"locale" yaml:"locale"`
	Watch            bool             `json:"watch" yaml:"watch"`
	Server           ServerConfig     `json:"server" yaml:"server"`
	Log              LogConfig        `json:"log" yaml:"log"`
	Columns          ColumnCandidates `json:"columns" yaml:"columns"`
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := json.Marshal(c)
	var out Config
	_ = json.Unmarshal(buf, &out)
	return out
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.DataPath) == "" {
		c.DataPath = "countries.csv"
	}
	if strings.TrimSpace(c.ReferenceCountry) == "" {
		c.ReferenceCountry = "South Korea"
	}
	if strings.TrimSpace(c.DefaultTarget) == "" {
		c.DefaultTarget = "United States"
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if c.MostCommon <= 0 {
		c.MostCommon = DefaultMostCommon
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Columns = c.Columns.WithDefaults()
}

var configValidator = validator.New()

// Validate checks field constraints after defaults have been applied.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("invalid config: locale %q: %w", c.Locale, err)
	}
	return nil
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() Config {
	cfg := Config{Watch: true}
	cfg.ApplyDefaults()
	return cfg
}

// LoadConfig loads configuration from the given path or the default
// config.json. A missing file yields the defaults. Files ending in .yaml or
// .yml are decoded as YAML, everything else as JSON.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var hasWatch bool
	if isYAML(path) {
		hasWatch = bytes.Contains(data, []byte("watch:"))
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	} else {
		hasWatch = bytes.Contains(data, []byte("\"watch\""))
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}
	if !hasWatch {
		cfg.Watch = true
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig persists configuration to disk.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigFile
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
