package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/2beens/trainingload/internal"
	"github.com/2beens/trainingload/internal/config"
	"github.com/2beens/trainingload/internal/db"
	"github.com/2beens/trainingload/internal/logging"
	"github.com/2beens/trainingload/internal/telemetry/metrics"
	"github.com/2beens/trainingload/internal/trainingload"
)

// app holds what the subcommands share. It is filled in by the root
// command's pre-run hook.
type app struct {
	env        string
	configPath string

	cfg            *config.Config
	dbPool         *pgxpool.Pool
	redisClient    *redis.Client
	metricsManager *metrics.Manager
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "trainingload",
		Short:         "Training load maintenance tool",
		Long:          "Rebuilds daily training-load metrics, imports FIT activities and exports daily metrics.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.env, "env", "development", "environment [prod | production | dev | development]")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "./config.toml", "path for the TOML config file")

	rootCmd.AddCommand(
		newRebuildCmd(a),
		newImportFITCmd(a),
		newExportCmd(a),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.env, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// stdout carries the command output
	logging.Setup(logging.LoggerSetupParams{
		ServiceName: "trainingload-cli",
		LogLevel:    cfg.LogLevel,
		Environment: cfg.Environment,
		Console:     os.Stderr,
	})

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	a.dbPool, err = db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:          cfg.PostgresHost,
		DBPort:          cfg.PostgresPort,
		DBUser:          cfg.PostgresUser,
		DBPassword:      os.Getenv("TRAININGLOAD_DB_PASS"),
		DBName:          cfg.PostgresDBName,
		ApplicationName: "trainingload-cli",
	})
	if err != nil {
		return fmt.Errorf("new db pool: %w", err)
	}
	if err := db.EnsureSchema(timeoutCtx, a.dbPool); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	a.redisClient = redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: os.Getenv("TRAININGLOAD_REDIS_PASS"),
	})
	a.metricsManager = metrics.NewManager("trainingload", "cli", metrics.SetupPrometheus())

	return nil
}

func (a *app) close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}

// loadService uses the same lock as the HTTP service, so a CLI rebuild and
// an API rebuild of one athlete never overlap. The CLI has no read cache.
func (a *app) loadService() *trainingload.Service {
	return trainingload.NewService(
		trainingload.NewPsqlRepo(a.dbPool),
		trainingload.NewEngine(internal.EngineConstants(a.cfg.Load)),
		trainingload.NewRedisLocker(a.redisClient, a.cfg.RebuildLockTTL.Duration),
		nil,
		a.metricsManager,
	)
}
