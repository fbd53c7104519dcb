// Package config loads the project file: timing, voice-over, logging,
// storage, transport and the static config scope templates read from.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/algoscene/internal/timing"
)

// Config is the decoded project.yaml.
type Config struct {
	Version int `yaml:"version"`
	Project struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"project"`

	// Script and Scene are paths to the script and scene documents,
	// relative to the project file.
	Script string `yaml:"script"`
	Scene  string `yaml:"scene"`

	Timing    Timing    `yaml:"timing"`
	VoiceOver VoiceOver `yaml:"voiceover"`
	Logging   Logging   `yaml:"logging"`
	Storage   Storage   `yaml:"storage"`
	MQTT      MQTT      `yaml:"mqtt"`
	API       API       `yaml:"api"`

	StaticConfig     map[string]any `yaml:"static_config"`
	StaticConfigFile string         `yaml:"static_config_file"`

	baseDir string
}

type Timing struct {
	Mode        string             `yaml:"mode"`
	Base        map[string]float64 `yaml:"base"`
	Multipliers map[string]float64 `yaml:"multipliers"`
}

type VoiceOver struct {
	Enabled        bool    `yaml:"enabled"`
	WordsPerSecond float64 `yaml:"words_per_second"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Storage selects where timing records and journal events go.
type Storage struct {
	Driver string `yaml:"driver"`
	// Path is the SQLite database file.
	Path string `yaml:"path"`
	// DSNEnv names the environment variable (or *_FILE secret) holding the
	// Postgres connection string. Empty means the PG* variables.
	DSNEnv string `yaml:"dsn_env"`
}

type MQTT struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	EventsTopic string `yaml:"events_topic"`
}

type API struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Load reads, normalizes and validates a project file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse project file: %w", err)
	}
	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported project.yaml version: %d", cfg.Version)
	}

	cfg.normalize(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize(baseDir string) {
	c.baseDir = baseDir
	c.Timing.Mode = strings.ToLower(strings.TrimSpace(c.Timing.Mode))
	if c.Timing.Mode == "" {
		c.Timing.Mode = string(timing.ModeNormal)
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Project.ID == "" {
		c.Project.ID = "default"
	}
	c.Script = c.resolvePath(c.Script)
	c.Scene = c.resolvePath(c.Scene)
	c.Storage.Path = c.resolvePath(c.Storage.Path)
	c.StaticConfigFile = c.resolvePath(c.StaticConfigFile)
	c.API.TLSCert = c.resolvePath(c.API.TLSCert)
	c.API.TLSKey = c.resolvePath(c.API.TLSKey)
}

func (c *Config) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// APIPort returns the configured API port, defaulting to 8080 if not set.
func (c *Config) APIPort() int {
	if c.API.Port == 0 {
		return 8080
	}
	return c.API.Port
}

// TimingModel builds the validated timing model.
func (c *Config) TimingModel() (timing.Model, error) {
	base := make(map[timing.Bucket]float64, len(c.Timing.Base))
	for k, v := range c.Timing.Base {
		base[timing.Bucket(strings.ToLower(k))] = v
	}
	mult := make(map[timing.Mode]float64, len(c.Timing.Multipliers))
	for k, v := range c.Timing.Multipliers {
		mult[timing.Mode(strings.ToLower(k))] = v
	}
	return timing.NewModel(timing.Mode(c.Timing.Mode), base, mult)
}

// Static returns the static config scope: the static_config_file contents
// overlaid with the inline static_config map.
func (c *Config) Static() (map[string]any, error) {
	out := map[string]any{}
	if c.StaticConfigFile != "" {
		fromFile, err := LoadStatic(c.StaticConfigFile)
		if err != nil {
			return nil, err
		}
		for k, v := range fromFile {
			out[k] = v
		}
	}
	for k, v := range c.StaticConfig {
		out[k] = v
	}
	return out, nil
}

// LoadStatic reads a nested map from a YAML, JSON or TOML file, chosen by
// extension.
func LoadStatic(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read static config: %w", err)
	}
	out := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(b, &out)
	case ".toml":
		err = toml.Unmarshal(b, &out)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &out)
	default:
		return nil, fmt.Errorf("static config %s: unsupported extension", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse static config %s: %w", path, err)
	}
	return out, nil
}
