package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/andeen171/onfly-api/internal/logging"
	"github.com/robfig/cron/v3"
)

// ExpiredTokenPruner deletes access tokens that can no longer authenticate.
type ExpiredTokenPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Scheduler runs housekeeping jobs on cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

func New(logger *slog.Logger) *Scheduler {
	logger = logging.Component(logger, "scheduler")
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		timeout: time.Minute,
	}
}

// AddTokenPrune schedules pruner at spec. The "off" spec adds nothing.
func (s *Scheduler) AddTokenPrune(spec string, pruner ExpiredTokenPruner) error {
	if spec == "" || spec == "off" {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.PruneTokens(pruner) }); err != nil {
		return fmt.Errorf("token prune schedule %q: %w", spec, err)
	}
	s.logger.Info("token prune scheduled", "cron", spec)
	return nil
}

// PruneTokens runs one prune pass.
func (s *Scheduler) PruneTokens(pruner ExpiredTokenPruner) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := pruner.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("prune expired tokens failed", "error", err)
		return
	}
	s.logger.Info("pruned expired tokens", "deleted", n)
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries is the number of scheduled jobs.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

// cronLogger sends cron's own messages to slog. Info is debug level; cron logs every run.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
