// Entry point for REST API
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm.service/internal/api"
	"crm.service/internal/config"
	"crm.service/internal/core"
	"crm.service/internal/ports/messaging"
	"crm.service/internal/ports/repository"
	"crm.service/pkg/aws"
	"crm.service/pkg/database"
	"crm.service/pkg/logger"
	"crm.service/pkg/telemetry"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	ctx := context.Background()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	// Configure structured logging
	logger.Setup(cfg.IsLocalDev, cfg.LogLevel)

	// Configure OpenTelemetry Tracing
	shutdownTracer, err := telemetry.InitTracer(ctx, "crm-api", cfg.TraceExporter, cfg.OTLPEndpoint)
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

	// Initialize dependencies
	producer := messaging.NewSQSProducer(sqs.NewFromConfig(awsCfg), cfg.NotificationSQSQueueURL, cfg.TimesheetSQSQueueURL)
	tx := database.NewTransactionManager(pool)
	employees := repository.NewEmployeeRepository(pool)
	leads := repository.NewLeadRepository(pool)
	attendance := repository.NewAttendanceRepository(pool)
	clock := core.RealClock()

	router := api.NewRouter(api.Services{
		Leads:      core.NewLeadService(tx, employees, leads, producer, clock),
		Employees:  core.NewEmployeeService(tx, employees, leads, producer, clock),
		Attendance: core.NewAttendanceService(tx, employees, attendance, producer, clock),
		Dashboard:  core.NewDashboardService(repository.NewDashboardRepository(pool), clock),
	})

	// Wrap the router with OpenTelemetry middleware to create spans for each request
	handler := otelhttp.NewHandler(logger.Middleware(router), "api")

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("API Service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// In-flight requests get 5 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
