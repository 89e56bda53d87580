package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voyagen/channelvault/internal/config"
	"github.com/voyagen/channelvault/internal/notify"
	"github.com/voyagen/channelvault/internal/server"
	"github.com/voyagen/channelvault/internal/service"
	"github.com/voyagen/channelvault/internal/store"
)

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  `Apply migrations (unless migrate_on_start is false), connect to Postgres and Redis, and serve /api/channels.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.MigrateOnStart {
			version, err := store.RunMigrations(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.WithField("version", version).Info("migrations applied")
		}

		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer pg.Close()

		rds, pub, err := connectRedis(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if rds != nil {
			defer rds.Close()
		}

		catalog := service.NewCatalog(pg, cfg.BulkMode, pub, logger)
		srv := server.New(catalog, cfg, rds, logger)
		if err := srv.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	},
}

// migrateCmd applies pending migrations and exits
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		version, err := store.RunMigrations(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.WithField("version", version).Info("migrations applied")
		return nil
	},
}

const importLockTTL = 30 * time.Minute

var (
	importReorder bool
	importTvgID   bool
)

// importCmd loads an M3U playlist into the catalog
var importCmd = &cobra.Command{
	Use:   "import [PATH|URL]",
	Short: "Import channels from an M3U playlist",
	Long: `Read an extended M3U playlist from a local file or http(s) URL and upsert
its entries. tvg-name (or the entry title) becomes the name, group-title the
category and tvg-logo the logo. --reorder also applies the playlist order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer pg.Close()

		rds, pub, err := connectRedis(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if rds != nil {
			defer rds.Close()
			unlock, err := notify.TryLock(ctx, rds, notify.ImportLock, importLockTTL)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			defer unlock()
		}

		catalog := service.NewCatalog(pg, cfg.BulkMode, pub, logger)
		res, err := catalog.Import(ctx, args[0], service.ImportOptions{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
			UseTvgID:  importTvgID,
			Reorder:   importReorder,
		})
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d channels (%d skipped)\n", res.Imported, res.Skipped)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importReorder, "reorder", false, "Set channel positions to the playlist order")
	importCmd.Flags().BoolVar(&importTvgID, "tvg-id", false, "Prefer tvg-id over the entry title when tvg-name is empty")
}

// connectRedis returns a nil client and a no-op publisher when REDIS_URL is not set.
func connectRedis(ctx context.Context, cfg *config.Config, logger *log.Logger) (*notify.Redis, notify.Publisher, error) {
	if cfg.RedisURL == "" {
		logger.Info("redis disabled (REDIS_URL not set)")
		return nil, notify.Nop{}, nil
	}
	rds, err := notify.New(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	if err := rds.Ping(ctx); err != nil {
		_ = rds.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("redis connected (change events enabled)")
	return rds, notify.NewRedisPublisher(rds, cfg.ChangeHistory), nil
}
