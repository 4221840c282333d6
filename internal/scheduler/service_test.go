package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkind/internal/domain"
	"checkind/internal/runner"
)

type fakeRunner struct {
	triggers []domain.Trigger
	err      error
}

func (f *fakeRunner) Run(ctx context.Context, trig domain.Trigger) (domain.RunResult, error) {
	f.triggers = append(f.triggers, trig)
	if f.err != nil {
		return domain.RunResult{}, f.err
	}
	return domain.RunResult{RunID: "run_test", Trigger: trig, Status: domain.StatusSuccess}, nil
}

func TestNewRejectsBadExpr(t *testing.T) {
	_, err := New("definitely not cron", &fakeRunner{}, time.Second)
	assert.Error(t, err)
}

func TestNextIsInTheFuture(t *testing.T) {
	s, err := New("30 22 * * *", &fakeRunner{}, time.Second)
	require.NoError(t, err)
	assert.True(t, s.Next().After(time.Now()))
	assert.Equal(t, "30 22 * * *", s.Expr())
}

func TestFireDueFiresOnceAndAdvances(t *testing.T) {
	r := &fakeRunner{}
	s, err := New("30 22 * * *", r, time.Second)
	require.NoError(t, err)

	now := time.Now()
	s.mu.Lock()
	s.next = now.Add(-time.Minute) // force due
	s.mu.Unlock()

	s.fireDue(context.Background(), now)
	require.Len(t, r.triggers, 1)
	assert.Equal(t, domain.OriginScheduled, r.triggers[0].Origin)
	assert.True(t, s.Next().After(now), "next run recomputed past now")

	// Not due again until the new next-run time.
	s.fireDue(context.Background(), now)
	assert.Len(t, r.triggers, 1)
}

func TestFireDueNotDue(t *testing.T) {
	r := &fakeRunner{}
	s, err := New("30 22 * * *", r, time.Second)
	require.NoError(t, err)

	s.fireDue(context.Background(), time.Now())
	assert.Empty(t, r.triggers)
}

func TestFireDueToleratesBusyRunner(t *testing.T) {
	r := &fakeRunner{err: runner.ErrBusy}
	s, err := New("30 22 * * *", r, time.Second)
	require.NoError(t, err)

	now := time.Now()
	s.mu.Lock()
	s.next = now.Add(-time.Minute)
	s.mu.Unlock()

	s.fireDue(context.Background(), now)
	assert.Len(t, r.triggers, 1)
	assert.True(t, s.Next().After(now), "a skipped firing still advances the schedule")
}

func TestFireDueLogsRunError(t *testing.T) {
	r := &fakeRunner{err: errors.New("boom")}
	s, err := New("30 22 * * *", r, time.Second)
	require.NoError(t, err)

	now := time.Now()
	s.mu.Lock()
	s.next = now.Add(-time.Minute)
	s.mu.Unlock()

	s.fireDue(context.Background(), now) // must not panic or re-fire
	assert.Len(t, r.triggers, 1)
}

func TestValidateCronExpression(t *testing.T) {
	assert.NoError(t, ValidateCronExpression("30 22 * * *"))
	assert.Error(t, ValidateCronExpression("99 99 * * *"))
}

func TestNextRunTime(t *testing.T) {
	from := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	next, err := NextRunTime("30 22 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.August, 30, 22, 30, 0, 0, time.UTC), next)

	// Already past today's firing: rolls to tomorrow.
	next, err = NextRunTime("30 22 * * *", next)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.August, 31, 22, 30, 0, 0, time.UTC), next)
}
