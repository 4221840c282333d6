package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"checkind/internal/domain"
	"checkind/internal/runner"
)

// Runner is the subset of the run engine the scheduler drives.
type Runner interface {
	Run(ctx context.Context, trig domain.Trigger) (domain.RunResult, error)
}

// Service fires a scheduled trigger whenever the cron expression comes due.
// Next-run bookkeeping is in memory only; on restart the schedule is simply
// recomputed from now.
type Service struct {
	run      Runner
	expr     string
	sched    cron.Schedule
	interval time.Duration
	stop     chan struct{}

	mu   sync.Mutex
	next time.Time
}

func New(expr string, run Runner, checkInterval time.Duration) (*Service, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, err
	}
	return &Service{
		run:      run,
		expr:     expr,
		sched:    sched,
		interval: checkInterval,
		stop:     make(chan struct{}),
		next:     sched.Next(time.Now()),
	}, nil
}

func (s *Service) Expr() string { return s.expr }

func (s *Service) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Str("cron", s.expr).Time("next_run", s.Next()).Msg("schedule service started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.fireDue(ctx, now)
		}
	}
}

func (s *Service) Stop() {
	close(s.stop)
}

func (s *Service) fireDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	due := !now.Before(s.next)
	if due {
		s.next = s.sched.Next(now)
	}
	next := s.next
	s.mu.Unlock()
	if !due {
		return
	}

	trig := domain.Trigger{Origin: domain.OriginScheduled, At: now}
	res, err := s.run.Run(ctx, trig)
	switch {
	case errors.Is(err, runner.ErrBusy):
		log.Warn().Time("fired_at", now).Msg("scheduled trigger skipped, run already active")
	case err != nil:
		log.Error().Err(err).Time("fired_at", now).Msg("scheduled run failed")
	default:
		log.Info().
			Str("run_id", res.RunID).
			Str("status", string(res.Status)).
			Time("next_run", next).
			Msg("scheduled run completed")
	}
}

// ValidateCronExpression validates a cron expression.
func ValidateCronExpression(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}

// NextRunTime calculates the next run time for a cron expression.
func NextRunTime(expr string, from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}
