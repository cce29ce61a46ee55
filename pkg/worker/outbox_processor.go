package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/petclinic-api/internal/email"
	"github.com/jwalitptl/petclinic-api/internal/model"
	"github.com/jwalitptl/petclinic-api/internal/repository"
	"github.com/jwalitptl/petclinic-api/pkg/logger"
	"github.com/jwalitptl/petclinic-api/pkg/messaging"
	"github.com/jwalitptl/petclinic-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// OutboxProcessor drains pending outbox events: each event is published on
// the broker and, for client-facing event types, mailed to the client.
type OutboxProcessor struct {
	repo      repository.OutboxRepository
	directory repository.DirectoryRepository
	broker    messaging.Broker
	emailSvc  email.Service
	config    OutboxProcessorConfig
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	directory repository.DirectoryRepository,
	broker messaging.Broker,
	emailSvc email.Service,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}

	return &OutboxProcessor{
		repo:      repo,
		directory: directory,
		broker:    broker,
		emailSvc:  emailSvc,
		config:    config,
		logger:    logger,
		metrics:   metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.GetPendingEvents(ctx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
			continue
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := retry(p.config.RetryAttempts, p.config.RetryDelay, func() error {
		return p.deliver(ctx, event)
	})

	if err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		errStr := err.Error()
		if updateErr := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr); updateErr != nil {
			p.logger.Error(updateErr, "Failed to update event status")
		}
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
		return err
	}

	return nil
}

func (p *OutboxProcessor) deliver(ctx context.Context, event *model.OutboxEvent) error {
	if err := p.broker.Publish(ctx, event.EventType, event.Payload); err != nil {
		return err
	}

	subject, body, notifyClient := clientMessage(event)
	if !notifyClient {
		return nil
	}

	var payload model.AppointmentEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode event payload: %w", err)
	}

	to, err := p.directory.ClientEmail(ctx, payload.ClientID)
	if err != nil {
		return err
	}
	return p.emailSvc.Send(to, subject, fmt.Sprintf(body, payload.ScheduledAt.Format("2006-01-02 15:04")))
}

func clientMessage(event *model.OutboxEvent) (subject, body string, ok bool) {
	switch event.EventType {
	case model.EventAppointmentForceMoved:
		return "Your appointment was rescheduled",
			"<p>The clinic moved your appointment to %s. Contact us if the new time does not work.</p>", true
	case model.EventRescheduleApproved:
		return "Your reschedule request was approved",
			"<p>Your appointment now takes place at %s.</p>", true
	case model.EventRescheduleRejected:
		return "Your reschedule request was declined",
			"<p>Your appointment remains at %s. See the clinic's note for the reason.</p>", true
	default:
		return "", "", false
	}
}

func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
