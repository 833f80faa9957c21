package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

const defaultInterval = 15 * time.Minute

// Pruner drops records that expired at or before now.
type Pruner interface {
	PruneExpired(now time.Time) (sessions, codes int)
}

// Scheduler periodically prunes expired sessions and verification codes.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pruner    Pruner
	interval  time.Duration
	logger    *zerolog.Logger
	now       func() time.Time
}

// New creates a new Scheduler. The first prune runs as soon as it starts.
func New(logger *zerolog.Logger, pruner Pruner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		pruner:    pruner,
		interval:  interval,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the prune job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.prune)
	if err != nil {
		return err
	}

	s.logger.Info().Dur("interval", s.interval).Msg("Session pruning scheduled")
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) prune() {
	sessions, codes := s.pruner.PruneExpired(s.now())

	ev := s.logger.Debug()
	if sessions > 0 || codes > 0 {
		ev = s.logger.Info()
	}
	ev.Int("sessions", sessions).
		Int("codes", codes).
		Msg("Pruned expired auth records")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
