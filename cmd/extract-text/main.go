package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/statement-insights/internal/config"
	"github.com/dvloznov/statement-insights/internal/extract"
	"github.com/dvloznov/statement-insights/internal/gcs"
	"github.com/dvloznov/statement-insights/internal/gcsuploader"
	"github.com/dvloznov/statement-insights/internal/logger"
	"github.com/dvloznov/statement-insights/internal/ocr"
)

// extract-text prints what the extraction cascade gets out of one PDF, either
// a local file (layout and lenient strategies) or a gs:// object (all
// strategies, OCR included).
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "extract-text"})

	file := flag.String("file", "", "Path to a local PDF")
	gcsURI := flag.String("gcs-uri", "", "GCS URI of a stored PDF")
	flag.Parse()

	if (*file == "") == (*gcsURI == "") {
		log.Fatal().Msg("Usage: extract-text -file statement.pdf | -gcs-uri gs://bucket/key.pdf")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var res extract.Result
	if *file != "" {
		res, err = extract.NewDefault(nil, ocr.Disabled{}).ExtractFile(ctx, *file)
	} else {
		res, err = extractRemote(ctx, cfg, *gcsURI)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	if res.Text == "" {
		fmt.Fprintln(os.Stderr, "No strategy produced enough text.")
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "strategy=%s chars=%d\n", res.Strategy, len(res.Text))
	fmt.Println(res.Text)
}

func extractRemote(ctx context.Context, cfg *config.Config, uri string) (extract.Result, error) {
	bucket, key, err := gcs.ParseURI(uri)
	if err != nil {
		return extract.Result{}, err
	}

	store, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		return extract.Result{}, err
	}
	defer store.Close()

	recognizer, err := ocr.New(ctx, cfg)
	if err != nil {
		return extract.Result{}, err
	}
	defer recognizer.Close()

	return extract.NewDefault(store, recognizer).Extract(ctx, bucket, key)
}
