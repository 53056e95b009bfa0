package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// PasswordEnv overrides panel.password when set.
const PasswordEnv = "OTPFEED_PANEL_PASSWORD"

type Config struct {
	Panel    PanelConfig  `yaml:"panel"`
	Poll     PollConfig   `yaml:"poll"`
	Server   ServerConfig `yaml:"server"`
	LogLevel string       `yaml:"log_level"`
}

type PanelConfig struct {
	URL      string   `yaml:"url"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Timeout  Duration `yaml:"timeout"`
	Limit    int      `yaml:"limit"`
}

type PollConfig struct {
	Interval    Duration `yaml:"interval"`
	Backoff     Duration `yaml:"backoff"`
	MaxMessages int      `yaml:"max_messages"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// Duration reads YAML strings such as "10s" or "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func Dir() string {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		cfgDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(cfgDir, "otpfeed")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if pw := os.Getenv(PasswordEnv); pw != "" {
		cfg.Panel.Password = pw
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Panel.Timeout <= 0 {
		c.Panel.Timeout = Duration(15 * time.Second)
	}
	if c.Panel.Limit <= 0 {
		c.Panel.Limit = 100
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = Duration(10 * time.Second)
	}
	if c.Poll.Backoff <= 0 {
		c.Poll.Backoff = Duration(30 * time.Second)
	}
	if c.Poll.MaxMessages <= 0 {
		c.Poll.MaxMessages = 100
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":5000"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the fields that have no usable default.
func (c *Config) Validate() error {
	if c.Panel.URL == "" {
		return errors.New("panel.url is required")
	}
	u, err := url.Parse(c.Panel.URL)
	if err != nil {
		return fmt.Errorf("panel.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("panel.url: unsupported scheme %q", u.Scheme)
	}
	if c.Panel.Username == "" {
		return errors.New("panel.username is required")
	}
	return nil
}
