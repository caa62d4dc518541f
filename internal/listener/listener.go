package listener

import (
	"context"
	"log/slog"
	"time"

	"pricecase/internal/pipeline"
)

// RunDriver is the part of pipeline.Runner the listener needs.
type RunDriver interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (pipeline.RunSummary, error)
}

// Service repeats an automatic yesterday-to-today run every Interval until
// the context is cancelled.
type Service struct {
	Runner   RunDriver
	Interval time.Duration
	Location *time.Location
	DryRun   bool
	Logger   *slog.Logger
	Now      func() time.Time
}

func NewService(runner RunDriver, interval time.Duration, loc *time.Location, logger *slog.Logger) *Service {
	return &Service{Runner: runner, Interval: interval, Location: loc, Logger: logger}
}

func (s *Service) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	for {
		if err := s.runCycle(ctx); err != nil {
			s.logger().Error("listener cycle failed", "err", err)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	from, to, err := pipeline.ResolveRange("", "", "", true, s.now(), loc)
	if err != nil {
		return err
	}

	summary, err := s.Runner.Run(ctx, pipeline.RunOptions{From: from, To: to, DryRun: s.DryRun})
	if err != nil {
		return err
	}
	s.logger().Info("listener cycle done",
		"run_id", summary.ID,
		"emails", summary.Total,
		"processed", summary.Processed,
		"case_rows", summary.CaseRows,
	)
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
