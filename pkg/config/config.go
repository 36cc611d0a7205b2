package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHost      = "127.0.0.1"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// iniSection is the section of the INI file holding the store settings.
	iniSection = "keyvaluestore"
)

type Config struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	ReadToken     string `yaml:"read_token"`
	WriteToken    string `yaml:"write_token"`
	TrackModified bool   `yaml:"track_modified"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// iniFile maps the [keyvaluestore] section onto go-flags options.
type iniFile struct {
	Store iniOptions `group:"keyvaluestore"`
}

type iniOptions struct {
	Host          string `long:"host" ini-name:"host"`
	Port          string `long:"port" ini-name:"port"`
	ReadToken     string `long:"read_token" ini-name:"read_token"`
	WriteToken    string `long:"write_token" ini-name:"write_token"`
	TrackModified string `long:"track_modified" ini-name:"track_modified"`
	LogLevel      string `long:"log_level" ini-name:"log_level"`
	LogFormat     string `long:"log_format" ini-name:"log_format"`
}

// LoadConfig loads configuration from a YAML or INI file if path is provided,
// otherwise it falls back to environment variables only. Environment
// variables always override file values.
func LoadConfig(path string) (*Config, error) {
	cfg := Config{
		Host:          DefaultHost,
		TrackModified: true,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
	}

	if path != "" {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = loadYAML(path, &cfg)
		default:
			err = loadINI(path, &cfg)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func loadINI(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file iniFile
	parser := flags.NewParser(&file, flags.IgnoreUnknown)
	if err := flags.NewIniParser(parser).ParseFile(path); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	opts := file.Store
	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Port != "" {
		port, err := strconv.Atoi(strings.TrimSpace(opts.Port))
		if err != nil {
			return fmt.Errorf("invalid %s.port value: %w", iniSection, err)
		}
		cfg.Port = port
	}
	if opts.ReadToken != "" {
		cfg.ReadToken = opts.ReadToken
	}
	if opts.WriteToken != "" {
		cfg.WriteToken = opts.WriteToken
	}
	if opts.TrackModified != "" {
		track, err := strconv.ParseBool(strings.TrimSpace(opts.TrackModified))
		if err != nil {
			return fmt.Errorf("invalid %s.track_modified value: %w", iniSection, err)
		}
		cfg.TrackModified = track
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	return nil
}

// applyEnvOverrides allows environment variables to override file values.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("KVS_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("KVS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid KVS_PORT value: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("KVS_READ_TOKEN"); v != "" {
		cfg.ReadToken = v
	}
	if v := os.Getenv("KVS_WRITE_TOKEN"); v != "" {
		cfg.WriteToken = v
	}
	if v := os.Getenv("KVS_TRACK_MODIFIED"); v != "" {
		track, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid KVS_TRACK_MODIFIED value: %w", err)
		}
		cfg.TrackModified = track
	}
	if v := os.Getenv("KVS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("KVS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	return nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.ReadToken == "" {
		return fmt.Errorf("read_token is required (set via config file or KVS_READ_TOKEN)")
	}
	if c.WriteToken == "" {
		return fmt.Errorf("write_token is required (set via config file or KVS_WRITE_TOKEN)")
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}
