package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultSweepTimeout = 4 * time.Minute

// Sweeper completes sessions whose deadline passed before now
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// ExpirySweeper runs a Sweeper on a cron schedule. Overlapping runs are skipped.
type ExpirySweeper struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewExpirySweeper(sweeper Sweeper, schedule string, logger *slog.Logger) (*ExpirySweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cronLogger := slogCronLogger{logger: logger.With("component", "expiry_sweeper")}
	s := &ExpirySweeper{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  defaultSweepTimeout,
		logger:   logger,
		now:      time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *ExpirySweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Expiry sweep failed", "error", err)
	}
}

// RunOnce performs a single sweep at the current time
func (s *ExpirySweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	swept, err := s.sweeper.SweepExpired(ctx, now)
	if err != nil {
		return swept, err
	}
	if swept > 0 {
		s.logger.Info("Expired sessions completed",
			"count", swept,
			"at", now.Format(time.RFC3339))
	}
	return swept, nil
}

func (s *ExpirySweeper) Start() {
	s.logger.Info("Expiry sweeper started", "schedule", s.schedule)
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to return or ctx to end
func (s *ExpirySweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Expiry sweeper did not stop in time")
	}
}

// slogCronLogger adapts slog to cron.Logger
type slogCronLogger struct {
	logger *slog.Logger
}

func (l slogCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
