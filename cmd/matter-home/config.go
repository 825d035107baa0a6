package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"matter-go-home/internal/filter"
)

type Config struct {
	Link struct {
		Port           string `yaml:"port"`
		Baud           int    `yaml:"baud"`
		RequestTimeout string `yaml:"request_timeout"`
		MaxInFlight    int    `yaml:"max_in_flight"`
		MaxFrameSize   uint32 `yaml:"max_frame_size"`
	} `yaml:"link"`
	Web struct {
		Listen         string   `yaml:"listen"`
		APIKey         string   `yaml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"web"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Journal struct {
		// Limit caps the number of journaled events; zero keeps all.
		Limit     int  `yaml:"limit"`
		DropStale bool `yaml:"drop_stale"`
	} `yaml:"journal"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		ClientID    string `yaml:"client_id"`
		TopicPrefix string `yaml:"topic_prefix"`
		Filter      string `yaml:"filter"`
		Discovery   bool   `yaml:"discovery"`
	} `yaml:"mqtt"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	SchemaDir  string `yaml:"schema_dir"`
	ScriptsDir string `yaml:"scripts_dir"`
}

// requestTimeout returns link.request_timeout; validate has checked it.
func (c *Config) requestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Link.RequestTimeout)
	return d
}

func (c *Config) validate() error {
	if c.Link.Port == "" {
		return fmt.Errorf("link.port is required")
	}
	if c.Link.Baud <= 0 {
		return fmt.Errorf("link.baud must be positive, got %d", c.Link.Baud)
	}
	if c.Link.RequestTimeout != "" {
		d, err := time.ParseDuration(c.Link.RequestTimeout)
		if err != nil {
			return fmt.Errorf("link.request_timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("link.request_timeout must be positive, got %s", d)
		}
	}
	if c.Link.MaxInFlight < 0 {
		return fmt.Errorf("link.max_in_flight must not be negative")
	}
	if c.Journal.Limit < 0 {
		return fmt.Errorf("journal.limit must not be negative")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if _, err := filter.Compile(c.MQTT.Filter); err != nil {
			return fmt.Errorf("mqtt.filter: %w", err)
		}
	}
	return nil
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "matter-home.db"
	}
	if cfg.Link.Baud == 0 {
		cfg.Link.Baud = 115200
	}
	if cfg.SchemaDir == "" {
		cfg.SchemaDir = "schema"
	}
	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = "scripts"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "matter"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}
