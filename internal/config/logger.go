package config

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger from log_level and log_format ("text" or "json").
func (c *Config) NewLogger() (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(os.Stderr)

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)

	switch c.LogFormat {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("log format %q: use text or json", c.LogFormat)
	}
	return logger, nil
}
