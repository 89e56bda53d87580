package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voyagen/channelvault/internal/config"
)

var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "channelvault",
	Short:         "Channel catalog service",
	Long:          `ChannelVault stores a catalog of named streaming channels in Postgres and serves it over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional config file (YAML, or TOML with .toml); else use env DATABASE_URL")
	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "channelvault: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads --config when given, else the environment, and builds the logger.
func loadConfig() (*config.Config, *log.Logger, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}
