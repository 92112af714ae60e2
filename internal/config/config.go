// Package config loads and validates the kopiahook YAML configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// History limit bounds, matching what the webhook consumers can usefully
// display.
const (
	MinHistoryLimit = 5
	MaxHistoryLimit = 40
)

var webhookIDRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// Config holds all kopiahook configuration.
type Config struct {
	WebhookID    string        `yaml:"webhook_id"`
	HistoryLimit int           `yaml:"history_limit"`
	Listen       string        `yaml:"listen"`
	State        StateConfig   `yaml:"state"`
	MQTT         MQTTConfig    `yaml:"mqtt"`
	Logging      LoggingConfig `yaml:"logging"`
}

// StateConfig controls slot persistence across restarts. An empty path
// disables persistence.
type StateConfig struct {
	Path string `yaml:"path"`
}

// MQTTConfig controls the optional Home Assistant MQTT publisher.
type MQTTConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Broker          string `yaml:"broker"`
	Port            int    `yaml:"port"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	ObjectID        string `yaml:"object_id"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config populated with all default values. The
// webhook id has no sensible default and must come from the file or a
// flag.
func DefaultConfig() *Config {
	return &Config{
		HistoryLimit: 10,
		Listen:       ":8099",
		State: StateConfig{
			Path: "kopiahook.db",
		},
		MQTT: MQTTConfig{
			Enabled:         false,
			Port:            1883,
			DiscoveryPrefix: "homeassistant",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file at path and merges it with defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate normalizes and checks the configuration. The webhook id is
// lowercased before validation, mirroring how the ids are generated.
func (c *Config) Validate() error {
	c.WebhookID = strings.ToLower(strings.TrimSpace(c.WebhookID))
	if c.WebhookID == "" {
		return fmt.Errorf("webhook_id is required")
	}
	if !webhookIDRe.MatchString(c.WebhookID) {
		return fmt.Errorf("webhook_id %q: only a-z, 0-9 and _ are allowed", c.WebhookID)
	}

	if c.HistoryLimit < MinHistoryLimit || c.HistoryLimit > MaxHistoryLimit {
		return fmt.Errorf("history_limit %d out of range [%d,%d]",
			c.HistoryLimit, MinHistoryLimit, MaxHistoryLimit)
	}

	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
			return fmt.Errorf("mqtt.port %d out of range", c.MQTT.Port)
		}
		if c.MQTT.DiscoveryPrefix == "" {
			c.MQTT.DiscoveryPrefix = "homeassistant"
		}
	}
	if c.MQTT.ObjectID == "" {
		c.MQTT.ObjectID = c.WebhookID
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error", "off":
	default:
		return fmt.Errorf("logging.level %q: expected debug, info, warn, error or off", c.Logging.Level)
	}

	return nil
}
