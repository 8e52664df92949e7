package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/statement-insights/internal/config"
	"github.com/dvloznov/statement-insights/internal/gcs"
	"github.com/dvloznov/statement-insights/internal/gcsuploader"
	"github.com/dvloznov/statement-insights/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "upload-statement"})

	var (
		bucketName string
		userID     string
		filePath   string
	)

	flag.StringVar(&bucketName, "bucket", cfg.GCP.Bucket, "GCS bucket name (defaults to GCS_BUCKET)")
	flag.StringVar(&userID, "user", "", "Owner user id (required)")
	flag.StringVar(&filePath, "file", "", "Path to local PDF file (required)")
	flag.Parse()

	if bucketName == "" || userID == "" || filePath == "" {
		log.Fatal().Msg("Usage: upload-statement -user USER_ID -file /path/to/file.pdf [-bucket BUCKET_NAME]")
	}
	if !gcs.IsPDF(filePath) {
		log.Fatal().Str("file", filePath).Msg("Only PDF files are allowed")
	}

	ctx := logger.WithContext(context.Background(), log)

	store, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer store.Close()

	key := gcs.StatementKey(userID, filePath, time.Now())

	log.Info().
		Str("bucket", bucketName).
		Str("key", key).
		Str("file", filePath).
		Msg("Uploading statement to GCS")

	if err := store.UploadFile(ctx, bucketName, key, filePath, map[string]string{gcs.OwnerMetadataKey: userID}); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", filePath, gcs.URI(bucketName, key))
}
