package main

import (
	"context"
	"encoding/json"
	"io"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"settlement-core.backend/internal/app"
	"settlement-core.backend/internal/config"
	"settlement-core.backend/internal/infrastructure/datasources/postgres"
	"settlement-core.backend/pkg/logger"
	"settlement-core.backend/pkg/redis"
)

// runtime is what every subcommand needs. close releases the connections.
type runtime struct {
	cfg      *config.Config
	services *app.Services
	migrate  func(context.Context) error
	close    func()
}

type bootstrapFunc func(ctx context.Context, envFile string) (*runtime, error)

func defaultBootstrap(ctx context.Context, envFile string) (*runtime, error) {
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("No %s file found, using environment variables", envFile)
	}
	cfg := config.Load()
	logger.Init(cfg.Server.Env, logger.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	if cfg.Redis.URL != "" {
		if err := redis.Init(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
			return nil, err
		}
	}

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		_ = redis.Close()
		return nil, err
	}
	locker, err := app.NewLocker(cfg.Ledger, redis.GetClient())
	if err != nil {
		_ = redis.Close()
		return nil, err
	}

	logger.Debug(ctx, "settlementctl connected", zap.String("db", cfg.Database.DBName))
	return &runtime{
		cfg:      cfg,
		services: app.NewServices(db, cfg, locker),
		migrate: func(context.Context) error {
			return postgres.Migrate(db)
		},
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
			_ = redis.Close()
		},
	}, nil
}

func newRootCommand(bootstrap bootstrapFunc) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "settlementctl",
		Short:         "Settlement core maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	withRuntime := func(run func(cmd *cobra.Command, rt *runtime, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context(), envFile)
			if err != nil {
				return err
			}
			defer rt.close()
			return run(cmd, rt, args)
		}
	}

	root.AddCommand(
		newMigrateCommand(withRuntime),
		newSweepHoldsCommand(withRuntime),
		newGenerateSettlementsCommand(withRuntime),
		newSeedRulesCommand(withRuntime),
		newVerifyLedgerCommand(withRuntime),
	)
	return root
}

type runtimeWrapper func(run func(cmd *cobra.Command, rt *runtime, args []string) error) func(*cobra.Command, []string) error

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
