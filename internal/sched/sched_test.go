package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sweeney/microwave-oven/internal/clock"
	"github.com/sweeney/microwave-oven/internal/periph"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T) (*Scheduler, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(t0)
	return New(clk, zaptest.NewLogger(t).Sugar()), clk
}

func stepUntil(t *testing.T, s *Scheduler, clk *clock.Fake, end time.Time) {
	t.Helper()
	ctx := context.Background()
	for clk.Now().Before(end) {
		require.NoError(t, s.Step(ctx))
	}
}

func TestTasksRunAtTheirPeriods(t *testing.T) {
	s, clk := newTestScheduler(t)

	var fast, slow int
	require.NoError(t, s.Add(Task{Name: "fast", Period: 10 * time.Millisecond, Run: func() error { fast++; return nil }}))
	require.NoError(t, s.Add(Task{Name: "slow", Period: 100 * time.Millisecond, Run: func() error { slow++; return nil }}))

	stepUntil(t, s, clk, t0.Add(time.Second))

	assert.Equal(t, 101, fast) // 0, 10, ..., 1000ms
	assert.Equal(t, 10, slow)  // 0, 100, ..., 900ms
}

func TestPeriodCountsFromEndOfRun(t *testing.T) {
	s, clk := newTestScheduler(t)

	var starts []time.Time
	require.NoError(t, s.Add(Task{Name: "slow body", Period: 100 * time.Millisecond, Run: func() error {
		starts = append(starts, clk.Now())
		clk.Sleep(50 * time.Millisecond)
		return nil
	}}))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Step(context.Background()))
	}

	require.Len(t, starts, 3)
	assert.Equal(t, 150*time.Millisecond, starts[1].Sub(starts[0]))
	assert.Equal(t, 150*time.Millisecond, starts[2].Sub(starts[1]))
}

func TestDelayedFirstRun(t *testing.T) {
	s, clk := newTestScheduler(t)

	var runs []time.Duration
	require.NoError(t, s.Add(Task{Name: "tick", Period: 100 * time.Millisecond, Run: func() error { return nil }}))
	require.NoError(t, s.Add(Task{Name: "heartbeat", Period: time.Second, Delay: time.Second, Run: func() error {
		runs = append(runs, clk.Now().Sub(t0))
		return nil
	}}))

	stepUntil(t, s, clk, t0.Add(2500*time.Millisecond))

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, runs)
}

func TestBlockingTaskStallsOthers(t *testing.T) {
	s, clk := newTestScheduler(t)

	var buttonRuns []time.Time
	require.NoError(t, s.Add(Task{Name: "button", Period: 10 * time.Millisecond, Run: func() error {
		buttonRuns = append(buttonRuns, clk.Now())
		return nil
	}}))
	beeped := false
	require.NoError(t, s.Add(Task{Name: "beeper", Period: 500 * time.Millisecond, Run: func() error {
		if clk.Now().Sub(t0) >= 500*time.Millisecond && !beeped {
			beeped = true
			clk.Sleep(1700 * time.Millisecond)
		}
		return nil
	}}))

	stepUntil(t, s, clk, t0.Add(3*time.Second))

	var longest time.Duration
	for i := 1; i < len(buttonRuns); i++ {
		if gap := buttonRuns[i].Sub(buttonRuns[i-1]); gap > longest {
			longest = gap
		}
	}
	assert.GreaterOrEqual(t, longest, 1700*time.Millisecond, "button must not run during the beep")
}

func TestFailingTaskDoesNotStopOthers(t *testing.T) {
	s, clk := newTestScheduler(t)

	fault := &periph.Fault{Device: "adc", Op: "read", Err: errors.New("stale")}
	var good int
	require.NoError(t, s.Add(Task{Name: "broken", Period: 100 * time.Millisecond, Run: func() error { return fault }}))
	require.NoError(t, s.Add(Task{Name: "good", Period: 100 * time.Millisecond, Run: func() error { good++; return nil }}))

	stepUntil(t, s, clk, t0.Add(time.Second))

	assert.Equal(t, 10, good)
	stats := s.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "broken", stats[0].Name)
	assert.Equal(t, stats[0].Runs, stats[0].Failures)
	assert.ErrorIs(t, stats[0].LastErr, fault)
	assert.Zero(t, stats[1].Failures)
}

func TestPanickingTaskIsRecovered(t *testing.T) {
	s, clk := newTestScheduler(t)

	var good int
	require.NoError(t, s.Add(Task{Name: "panics", Period: 100 * time.Millisecond, Run: func() error { panic("boom") }}))
	require.NoError(t, s.Add(Task{Name: "good", Period: 100 * time.Millisecond, Run: func() error { good++; return nil }}))

	stepUntil(t, s, clk, t0.Add(500*time.Millisecond))

	assert.Equal(t, 5, good)
	assert.ErrorContains(t, s.Stats()[0].LastErr, "boom")
}

func TestAddValidates(t *testing.T) {
	s, _ := newTestScheduler(t)

	assert.Error(t, s.Add(Task{Name: "no period", Run: func() error { return nil }}))
	assert.Error(t, s.Add(Task{Name: "no body", Period: time.Second}))
	assert.Error(t, s.Add(Task{Name: "negative delay", Period: time.Second, Delay: -time.Second, Run: func() error { return nil }}))
	assert.Empty(t, s.Stats())
}

func TestStepWithoutTasks(t *testing.T) {
	s, _ := newTestScheduler(t)
	assert.Error(t, s.Step(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestScheduler(t)

	ctx, cancel := context.WithCancel(context.Background())
	runs := 0
	require.NoError(t, s.Add(Task{Name: "counter", Period: 10 * time.Millisecond, Run: func() error {
		runs++
		if runs == 5 {
			cancel()
		}
		return nil
	}}))

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, runs)
}

func TestRunWithWallClock(t *testing.T) {
	s := New(clock.Wall{}, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	runs := 0
	require.NoError(t, s.Add(Task{Name: "tick", Period: 10 * time.Millisecond, Run: func() error { runs++; return nil }}))

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, runs, 1)
}
