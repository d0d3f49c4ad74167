// jobmate-swipe-service
//
// Swipe feed and matching engine for seekers and hirers.
// Exposes a REST API and a gRPC service used by the Gateway to implement:
//   - refresh / current / swipe / reset on a ranked card feed
//   - favorites (saved cards)
//
// On match: persists the match and publishes EVENT_MATCH_CREATED to Redis.
// The relay re-publishes matches whose notification did not go out.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobmate/swipe-service/internal/config"
	"jobmate/swipe-service/internal/db"
	"jobmate/swipe-service/internal/logger"
)

const app = "swipe-service"

// Actual version can be specified in build command.
var version = "dev"

var (
	envFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "Swipe feed and matching engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the environment")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output (overrides LOG_DEBUG)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("%s version: %s\n", app, version)
		},
	})
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] %v\n", app, err)
		os.Exit(1)
	}
}

// services holds the connections shared by every subcommand.
type services struct {
	cfg  *config.Config
	log  *zap.Logger
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// bootstrap loads config, builds the logger and opens PostgreSQL and, when
// withRedis is set, Redis.
func bootstrap(ctx context.Context, withRedis bool) (*services, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.LogJSON, cfg.LogDebug || debug)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	rt := &services{cfg: cfg, log: log}

	log.Info("connecting to PostgreSQL")
	rt.pool, err = db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if withRedis {
		log.Info("connecting to Redis")
		rt.rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			rt.pool.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
	}
	return rt, nil
}

func (rt *services) close() {
	if rt.rdb != nil {
		_ = rt.rdb.Close()
	}
	rt.pool.Close()
	_ = rt.log.Sync()
}
