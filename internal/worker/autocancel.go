package worker

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/petclinic-api/internal/service/appointment"
	"github.com/jwalitptl/petclinic-api/pkg/logger"
	"github.com/jwalitptl/petclinic-api/pkg/metrics"
)

// AutoCancelSweep cancels proposed/confirmed appointments whose time has
// passed. Wired to a cron schedule in cmd/worker.
type AutoCancelSweep struct {
	appointments *appointment.Service
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewAutoCancelSweep(appointments *appointment.Service, logger *logger.Logger, metrics *metrics.Metrics) *AutoCancelSweep {
	return &AutoCancelSweep{
		appointments: appointments,
		logger:       logger,
		metrics:      metrics,
	}
}

func (s *AutoCancelSweep) Run(ctx context.Context) {
	timer := prometheus.NewTimer(s.metrics.AutoCancelSweepDuration)
	defer timer.ObserveDuration()

	cancelled, err := s.appointments.AutoCancelExpired(ctx)
	if err != nil {
		s.logger.Error(err, "Auto-cancel sweep failed")
		return
	}
	if cancelled > 0 {
		s.logger.Info("Auto-cancelled expired appointments", "count", cancelled)
	}
}
