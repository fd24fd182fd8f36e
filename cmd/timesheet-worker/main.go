package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"crm.service/internal/config"
	"crm.service/internal/ports/repository"
	"crm.service/internal/worker"
	"crm.service/internal/worker/hrapi"
	"crm.service/internal/worker/timesheet"
	"crm.service/pkg/aws"
	"crm.service/pkg/database"
	"crm.service/pkg/logger"
	"crm.service/pkg/telemetry"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	logger.Setup(cfg.IsLocalDev, cfg.LogLevel)

	shutdownTracer, err := telemetry.InitTracer(ctx, "crm-timesheet-worker", cfg.TraceExporter, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// DB connection
	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening database")
	}
	defer pool.Close()
	log.Info().Msg("Successfully connected to the database.")

	// AWS SDK Config
	awsCfg, err := aws.NewAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	// Initialize Dependencies
	records := repository.NewAttendanceRepository(pool)
	processor := timesheet.NewProcessor(records, hrapi.NewHTTPClient(cfg.HRAPIURL))

	app := worker.NewWorker(sqs.NewFromConfig(awsCfg), cfg.TimesheetSQSQueueURL, "timesheet", processor)
	app.Concurrency = cfg.WorkerConcurrency

	done := make(chan struct{})
	go func() {
		app.Start(ctx)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info().Msg("Shutting down worker...")

	cancel()
	<-done

	log.Info().Msg("Worker exited gracefully")
}
