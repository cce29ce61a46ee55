package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/petclinic-api/internal/config"
	"github.com/jwalitptl/petclinic-api/internal/email"
	"github.com/jwalitptl/petclinic-api/internal/repository/postgres"
	appointmentService "github.com/jwalitptl/petclinic-api/internal/service/appointment"
	availabilityService "github.com/jwalitptl/petclinic-api/internal/service/availability"
	calendarService "github.com/jwalitptl/petclinic-api/internal/service/calendar"
	notificationService "github.com/jwalitptl/petclinic-api/internal/service/notification"
	internalworker "github.com/jwalitptl/petclinic-api/internal/worker"
	"github.com/jwalitptl/petclinic-api/pkg/clock"
	"github.com/jwalitptl/petclinic-api/pkg/logger"
	redisbroker "github.com/jwalitptl/petclinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/petclinic-api/pkg/metrics"
	"github.com/jwalitptl/petclinic-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	appointmentRepo := postgres.NewAppointmentRepository(db)
	workingHoursRepo := postgres.NewWorkingHoursRepository(db)
	overrideRepo := postgres.NewScheduleOverrideRepository(db)
	rescheduleRepo := postgres.NewRescheduleRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	directoryRepo := postgres.NewDirectoryRepository(db)

	clk := clock.New()

	calendarSvc := calendarService.NewService(overrideRepo, workingHoursRepo)
	availabilitySvc := availabilityService.NewService(appointmentRepo, calendarSvc)
	notificationSvc := notificationService.NewService(outboxRepo)
	appointmentSvc := appointmentService.NewService(
		appointmentRepo,
		rescheduleRepo,
		directoryRepo,
		availabilitySvc,
		notificationSvc,
		appointmentService.Policy{
			CancellationPolicyHours: cfg.Scheduling.CancellationPolicyHours,
			LateCancellationFee:     cfg.Scheduling.LateCancellationFee,
			DefaultDurationMinutes:  cfg.Scheduling.DefaultDurationMinutes,
		},
		clk,
	)

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	emailSvc := email.NewService(cfg.SMTP)

	registry := prometheus.NewRegistry()
	m := metrics.New("petclinic_worker")
	m.Register(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		directoryRepo,
		broker,
		emailSvc,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Worker.OutboxBatchSize,
			PollInterval:  cfg.Worker.OutboxPollInterval,
			RetryAttempts: cfg.Worker.OutboxRetries,
			RetryDelay:    cfg.Worker.OutboxRetryDelay,
		},
		appLogger,
		m,
	)
	go processor.Start(ctx)

	sweep := internalworker.NewAutoCancelSweep(appointmentSvc, appLogger, m)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Worker.SweepSchedule, func() { sweep.Run(ctx) }); err != nil {
		log.Fatal().Err(err).Msg("invalid sweep schedule")
	}
	scheduler.Start()

	metricsSrv := &http.Server{
		Addr:    ":2112",
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	log.Info().Msg("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker...")

	cancel()
	cronCtx := scheduler.Stop()
	<-cronCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server forced to shutdown")
	}

	log.Info().Msg("worker exited properly")
}
