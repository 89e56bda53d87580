package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL    string `yaml:"database_url" toml:"database_url"`
	ServerPort     string `yaml:"server_port" toml:"server_port"`
	RedisURL       string `yaml:"redis_url" toml:"redis_url"`
	BulkMode       string `yaml:"bulk_mode" toml:"bulk_mode"`
	MigrateOnStart *bool  `yaml:"migrate_on_start" toml:"migrate_on_start"`
	LogLevel       string `yaml:"log_level" toml:"log_level"`
	LogFormat      string `yaml:"log_format" toml:"log_format"`
	UserAgent      string `yaml:"user_agent" toml:"user_agent"`
	Timeout        string `yaml:"timeout" toml:"timeout"`
	ChangeHistory  *int64 `yaml:"change_history" toml:"change_history"`
}

// LoadFromFile loads config from a YAML file, or TOML when the path ends in .toml.
// database_url is required.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	c := defaults()
	c.DatabaseURL = f.DatabaseURL
	c.RedisURL = f.RedisURL
	if f.ServerPort != "" {
		c.ServerPort = f.ServerPort
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	if f.LogFormat != "" {
		c.LogFormat = f.LogFormat
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	if f.MigrateOnStart != nil {
		c.MigrateOnStart = *f.MigrateOnStart
	}
	if f.ChangeHistory != nil {
		c.ChangeHistory = *f.ChangeHistory
	}
	mode, err := ParseBulkMode(f.BulkMode)
	if err != nil {
		return nil, err
	}
	c.BulkMode = mode
	return c, nil
}
