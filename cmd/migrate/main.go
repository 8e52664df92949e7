package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/config"
	infraBQ "github.com/dvloznov/statement-insights/internal/infra/bigquery"
	"github.com/dvloznov/statement-insights/internal/infra/postgres"
	"github.com/dvloznov/statement-insights/internal/logger"
)

const usage = `Usage: migrate [flags] <command>

Commands:
  up         apply pending Postgres migrations
  down       roll back the latest Postgres migration
  status     print Postgres migration status
  bigquery   apply pending BigQuery archive migrations

Flags:
`

func main() {
	appliedBy := flag.String("applied-by", "migrate-cli", "Name recorded with applied BigQuery migrations")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "migrate"})

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(context.Background(), cfg, log, flag.Arg(0), *appliedBy); err != nil {
		log.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("Migration failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, command, appliedBy string) error {
	switch command {
	case "up", "down", "status":
		pool, err := postgres.Connect(ctx, cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer pool.Close()

		switch command {
		case "up":
			return postgres.Migrate(ctx, pool, log)
		case "down":
			return postgres.MigrateDown(ctx, pool, log)
		default:
			return postgres.MigrationStatus(ctx, pool, log)
		}

	case "bigquery":
		if cfg.GCP.ProjectID == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required")
		}
		archive, err := infraBQ.NewBigQueryArchive(ctx, cfg.GCP.ProjectID, cfg.GCP.BigQueryDataset)
		if err != nil {
			return err
		}
		defer archive.Close()

		applied, err := archive.Migrate(ctx, appliedBy)
		if err != nil {
			return err
		}
		log.Info().Int("applied", applied).Str("dataset", cfg.GCP.BigQueryDataset).Msg("BigQuery migrations complete")
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
