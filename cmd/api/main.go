package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/petclinic-api/internal/config"
	"github.com/jwalitptl/petclinic-api/internal/handler"
	appointmentHandler "github.com/jwalitptl/petclinic-api/internal/handler/appointment"
	scheduleHandler "github.com/jwalitptl/petclinic-api/internal/handler/schedule"
	"github.com/jwalitptl/petclinic-api/internal/middleware"
	"github.com/jwalitptl/petclinic-api/internal/repository/postgres"
	"github.com/jwalitptl/petclinic-api/internal/router"
	appointmentService "github.com/jwalitptl/petclinic-api/internal/service/appointment"
	availabilityService "github.com/jwalitptl/petclinic-api/internal/service/availability"
	calendarService "github.com/jwalitptl/petclinic-api/internal/service/calendar"
	notificationService "github.com/jwalitptl/petclinic-api/internal/service/notification"
	scheduleService "github.com/jwalitptl/petclinic-api/internal/service/schedule"
	"github.com/jwalitptl/petclinic-api/pkg/clock"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

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
	scheduleSvc := scheduleService.NewService(overrideRepo, workingHoursRepo, clk)
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

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	registry := prometheus.NewRegistry()

	h := handler.NewHandler(db, registry)
	apptHandler := appointmentHandler.NewHandler(
		appointmentSvc,
		availabilitySvc,
		cfg.Scheduling.DefaultDurationMinutes,
		cfg.Scheduling.SlotGranularityMinutes,
	)
	schedHandler := scheduleHandler.NewHandler(scheduleSvc, calendarSvc)

	r := router.NewRouter(
		authMiddleware,
		apptHandler,
		schedHandler,
		h,
		router.Config{
			RateLimit:     100,
			RateBurst:     200,
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "petclinic_api",
			Registry:      registry,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
