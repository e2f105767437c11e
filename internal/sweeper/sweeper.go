// Package sweeper periodically deletes one-time tokens that expired long ago.
// Token validity never depends on it: an expired row is rejected whether or not it was swept.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/metrics"
	"github.com/robfig/cron/v3"
)

// Expirer is the slice of repository.TokenRepository the sweeper uses.
type Expirer interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type Sweeper struct {
	tokens   Expirer
	logger   *slog.Logger
	schedule cron.Schedule
	spec     string
	grace    time.Duration
	now      func() time.Time
}

// New parses spec (standard cron or a descriptor such as "@every 1h"). Tokens are removed
// once they have been expired for longer than grace.
func New(tokens Expirer, logger *slog.Logger, spec string, grace time.Duration) (*Sweeper, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	return &Sweeper{
		tokens:   tokens,
		logger:   logger.With("component", "sweeper"),
		schedule: schedule,
		spec:     spec,
		grace:    grace,
		now:      time.Now,
	}, nil
}

// Start runs sweeps on the schedule until ctx is cancelled, then waits for a running sweep.
func (s *Sweeper) Start(ctx context.Context) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.ErrorContext(ctx, "sweep expired tokens", "error", err)
		}
	}))
	c.Start()

	s.logger.Info("sweeper started", "schedule", s.spec, "grace", s.grace)

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("sweeper shut down")
}

// Sweep performs one pass and returns how many tokens were deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	cutoff := s.now().Add(-s.grace)
	n, err := s.tokens.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	metrics.TokensSweptTotal.Add(float64(n))
	if n > 0 {
		s.logger.InfoContext(ctx, "swept expired tokens", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
