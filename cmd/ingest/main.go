package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/statement-insights/internal/app"
	"github.com/dvloznov/statement-insights/internal/config"
	"github.com/dvloznov/statement-insights/internal/gcs"
	"github.com/dvloznov/statement-insights/internal/jobs"
	"github.com/dvloznov/statement-insights/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "ingest"})

	gcsURI := flag.String("gcs-uri", "", "GCS URI of the statement PDF (e.g. gs://bucket/statements/user/file.pdf)")
	render := flag.Bool("dashboard", true, "Render the dashboard after processing")
	flag.Parse()

	if *gcsURI == "" {
		log.Fatal().Msg("Error: --gcs-uri is required")
	}
	bucket, key, err := gcs.ParseURI(*gcsURI)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid GCS URI")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	processor, err := a.Processor(ctx, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build statement processor")
	}

	log.Info().Str("gcs_uri", *gcsURI).Msg("Starting ingestion")

	state, err := processor.Process(ctx, bucket, key)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	fmt.Printf("Statement %s processed: %d transactions stored, %d skipped (strategy %s).\n",
		state.StatementID, len(state.Inserted), state.Skipped, state.Extraction.Strategy)

	if !*render {
		return
	}

	payload := fmt.Sprintf(`{"trigger_source":%q,"statement_id":%q}`, jobs.TriggerSourceBankExtract, state.StatementID)
	resp := a.Dashboards.Handle(ctx, []byte(payload))
	fmt.Printf("Dashboard (%d): %s\n", resp.StatusCode, resp.Body)
}
