package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/petclinic-api/internal/model"
	"github.com/jwalitptl/petclinic-api/internal/repository"
)

// Service records lifecycle events in the outbox. Delivery (broker publish,
// client email) happens asynchronously in the worker, so a slow mail server
// never slows a booking.
type Service struct {
	outbox repository.OutboxRepository
}

func NewService(outbox repository.OutboxRepository) *Service {
	return &Service{outbox: outbox}
}

func (s *Service) Enqueue(ctx context.Context, eventType string, event model.AppointmentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	})
}
