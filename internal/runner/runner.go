package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"checkind/internal/config"
	"checkind/internal/domain"
	"checkind/internal/notify"
	"checkind/internal/routine"
)

// ErrBusy means a trigger fired while a run was still active. Overlapping
// runs are rejected, not queued.
var ErrBusy = errors.New("a run is already in progress")

const maxNotifyBody = 1800 // runes; keeps payloads inside channel text limits

// Runner executes one full run per trigger: credential check, routine
// execution, notification dispatch. The routine's own failure is captured in
// the RunResult and never returned as the run's error; only configuration
// problems (or an overlapping trigger) are.
type Runner struct {
	routine    routine.Routine
	dispatcher *notify.Dispatcher
	creds      domain.Credentials
	timeout    time.Duration

	gate chan struct{}

	mu   sync.Mutex
	last *domain.RunResult
}

func New(rt routine.Routine, d *notify.Dispatcher, creds domain.Credentials, timeout time.Duration) *Runner {
	return &Runner{
		routine:    rt,
		dispatcher: d,
		creds:      creds,
		timeout:    timeout,
		gate:       make(chan struct{}, 1),
	}
}

// Run executes one run synchronously and returns its RunResult.
func (r *Runner) Run(ctx context.Context, trig domain.Trigger) (domain.RunResult, error) {
	select {
	case r.gate <- struct{}{}:
	default:
		return domain.RunResult{}, ErrBusy
	}
	defer func() { <-r.gate }()
	return r.run(ctx, trig)
}

// Begin starts a run in the background and returns its ID immediately.
// Overlap and configuration checks still happen up front so the caller gets
// a synchronous rejection.
func (r *Runner) Begin(trig domain.Trigger) (string, error) {
	select {
	case r.gate <- struct{}{}:
	default:
		return "", ErrBusy
	}
	if err := r.checkCreds(); err != nil {
		<-r.gate
		return "", err
	}
	trig = withRunID(trig)
	go func() {
		defer func() { <-r.gate }()
		if _, err := r.run(context.Background(), trig); err != nil {
			log.Error().Err(err).Str("run_id", trig.RunID).Msg("background run failed")
		}
	}()
	return trig.RunID, nil
}

// Last returns the most recent RunResult, if any run has completed yet.
// The snapshot does not survive a restart.
func (r *Runner) Last() (domain.RunResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return domain.RunResult{}, false
	}
	return *r.last, true
}

// run assumes the gate is held by the caller.
func (r *Runner) run(ctx context.Context, trig domain.Trigger) (domain.RunResult, error) {
	if err := r.checkCreds(); err != nil {
		return domain.RunResult{}, err
	}
	trig = withRunID(trig)

	log.Info().
		Str("run_id", trig.RunID).
		Str("origin", string(trig.Origin)).
		Str("routine", r.routine.Name()).
		Msg("run started")

	res := domain.RunResult{
		RunID:     trig.RunID,
		Trigger:   trig,
		StartedAt: time.Now(),
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	outcome := r.routine.Execute(cctx, r.creds)
	cancel()

	res.ExitCode = outcome.ExitCode
	res.Output = outcome.Output
	if outcome.Success() {
		res.Status = domain.StatusSuccess
	} else {
		res.Status = domain.StatusFailure
		log.Warn().
			Str("run_id", trig.RunID).
			Int("exit_code", outcome.ExitCode).
			Msg("check-in routine failed")
	}

	title := fmt.Sprintf("Daily check-in %s", verb(res.Status))
	body := notify.Truncate(res.Output, maxNotifyBody)
	res.Dispatches = r.dispatcher.Dispatch(ctx, title, body)
	res.FinishedAt = time.Now()

	r.mu.Lock()
	snapshot := res
	r.last = &snapshot
	r.mu.Unlock()

	log.Info().
		Str("run_id", trig.RunID).
		Str("status", string(res.Status)).
		Dur("took", res.FinishedAt.Sub(res.StartedAt)).
		Msg("run finished")
	return res, nil
}

func (r *Runner) checkCreds() error {
	if r.creds.Token == "" {
		return fmt.Errorf("%w: TOKEN", config.ErrMissingKey)
	}
	return nil
}

func withRunID(trig domain.Trigger) domain.Trigger {
	if trig.RunID == "" {
		trig.RunID = "run_" + uuid.NewString()
	}
	if trig.At.IsZero() {
		trig.At = time.Now()
	}
	return trig
}

func verb(s domain.Status) string {
	if s == domain.StatusSuccess {
		return "succeeded"
	}
	return "failed"
}
