package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/andrejche/coinfly-v2/internal/logging"
)

// Scheduler runs the pipeline once immediately and then on a fixed
// interval. Each run has its own failure boundary: errors are logged and
// swallowed so one bad run never stops future runs. Overlap is tolerated
// because the store's writes are idempotent.
type Scheduler struct {
	scheduler gocron.Scheduler
	interval  time.Duration
	logger    *slog.Logger
}

func NewScheduler(p *Pipeline, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	logger = logging.Default(logger).With("component", "scheduler")

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			// Bound each run so a stalled upstream cannot outlive the
			// interval indefinitely.
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if err := p.Run(ctx); err != nil {
				logger.Error("refresh run failed", "error", err)
			}
		}),
		gocron.WithName("refresh"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating refresh job: %w", err)
	}

	return &Scheduler{scheduler: s, interval: interval, logger: logger}, nil
}

// Start begins scheduling; the first run fires immediately.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", "interval", s.interval)
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for a running job to return.
func (s *Scheduler) Stop() error {
	s.logger.Info("scheduler stopping")
	return s.scheduler.Shutdown()
}
