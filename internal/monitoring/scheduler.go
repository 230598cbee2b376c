package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/ender-accounts/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs periodic maintenance on a cron schedule. Today that is
// pruning account events older than the retention window.
type Scheduler struct {
	eventSvc  services.EventServiceProvider
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
	cron      *cron.Cron
}

// NewScheduler creates a scheduler that prunes events on spec, a standard
// five-field cron expression or descriptor such as "@daily".
func NewScheduler(eventSvc services.EventServiceProvider, spec string, retention time.Duration) (*Scheduler, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("event retention must be positive, got %s", retention)
	}
	s := &Scheduler{
		eventSvc:  eventSvc,
		retention: retention,
		timeout:   time.Minute,
		now:       time.Now,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if _, err := s.cron.AddFunc(spec, s.pruneEvents); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() {
	log.Info().Dur("retention", s.retention).Msg("Starting background scheduler")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		log.Info().Msg("Stopped background scheduler")
	case <-ctx.Done():
		log.Warn().Msg("Background scheduler did not stop in time")
	}
}

// pruneEvents deletes events older than the retention window.
func (s *Scheduler) pruneEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	cutoff := s.now().Add(-s.retention)
	removed, err := s.eventSvc.PruneEvents(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to prune events")
		return
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Time("before", cutoff).Msg("Scheduler: pruned events")
	}
}
