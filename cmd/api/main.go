package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-insights/internal/api"
	"github.com/dvloznov/statement-insights/internal/api/handlers"
	"github.com/dvloznov/statement-insights/internal/api/middleware"
	"github.com/dvloznov/statement-insights/internal/app"
	"github.com/dvloznov/statement-insights/internal/config"
	"github.com/dvloznov/statement-insights/internal/jobs"
	"github.com/dvloznov/statement-insights/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var (
		port        = flag.String("port", cfg.Server.Port, "HTTP server port")
		runWorkers  = flag.Bool("workers", cfg.Queue.Backend == "memory", "Consume jobs in this process")
		enqueueUpld = flag.Bool("enqueue-uploads", true, "Enqueue processing after POST /api/statements (disable when storage notifications call /api/events/upload)")
	)
	flag.Parse()

	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "api"})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	queue, err := a.Queue(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open job queue")
	}

	processor, err := a.Processor(ctx, queue)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build statement processor")
	}
	assistant, err := a.Chat(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build chat service")
	}

	if *runWorkers {
		router := jobs.NewRouter()
		if err := a.RegisterJobHandlers(ctx, router, queue); err != nil {
			log.Fatal().Err(err).Msg("Failed to register job handlers")
		}
		log.Info().Int("workers", cfg.Queue.Workers).Msg("Starting job workers")
		if err := queue.Start(ctx, router.Dispatch); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job workers")
		}
	}

	var publisher jobs.Publisher
	if *enqueueUpld {
		publisher = queue
	}

	h := api.Handlers{
		Events:     handlers.NewEventsHandler(processor, a.Dashboards, 1<<20, log),
		Dashboards: handlers.NewDashboardsHandler(a.Dashboards, log),
		Chat:       handlers.NewChatHandler(assistant, log),
		Statements: handlers.NewStatementsHandler(a.Storage, a.Users, publisher, cfg.GCP.Bucket, cfg.Server.MaxUploadBytes, log),
		Users:      handlers.NewUsersHandler(a.Users, log),
		Jobs:       handlers.NewJobsHandler(a.JobStore, log),
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst)
	go limiter.Run(ctx)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      api.NewRouter(h, limiter, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if *runWorkers {
		if err := queue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}
	cancel()

	log.Info().Msg("Server exited")
}
