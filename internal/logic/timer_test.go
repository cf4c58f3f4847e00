package logic

import (
	"testing"
	"time"
)

func newTimer() *CookTimer {
	return NewCookTimer(5*time.Second, 25*time.Second)
}

func TestNewCookTimerIdle(t *testing.T) {
	c := newTimer()
	if !c.Idle() {
		t.Error("new timer should be idle")
	}
	if c.Running {
		t.Error("new timer should not be running")
	}
}

func TestAddTimeSetsTicksOnce(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newTimer()

	if started := c.AddTime(now); !started {
		t.Error("first press should start a cook")
	}
	if c.Remaining != 5*time.Second {
		t.Errorf("Remaining: got %v, want 5s", c.Remaining)
	}
	if !c.StartTick.Equal(now) || !c.LastUpdate.Equal(now) {
		t.Errorf("ticks not initialised: start=%v last=%v", c.StartTick, c.LastUpdate)
	}

	later := now.Add(time.Second)
	if started := c.AddTime(later); started {
		t.Error("second press should not start a new cook")
	}
	if c.Remaining != 10*time.Second {
		t.Errorf("Remaining: got %v, want 10s", c.Remaining)
	}
	if !c.StartTick.Equal(now) || !c.LastUpdate.Equal(now) {
		t.Error("later presses must not move the ticks")
	}
}

func TestAddTimeClamps(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newTimer()

	for i := 0; i < 20; i++ {
		c.AddTime(now)
		if c.Remaining > 25*time.Second {
			t.Fatalf("press %d: Remaining %v exceeds max", i, c.Remaining)
		}
		if c.Remaining < 0 {
			t.Fatalf("press %d: Remaining %v negative", i, c.Remaining)
		}
	}
	if c.Remaining != 25*time.Second {
		t.Errorf("Remaining: got %v, want 25s", c.Remaining)
	}
}

func TestAddTimeClampsUnevenIncrement(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewCookTimer(7*time.Second, 20*time.Second)

	for i := 0; i < 3; i++ {
		c.AddTime(now)
	}
	if c.Remaining != 20*time.Second {
		t.Errorf("Remaining: got %v, want 20s", c.Remaining)
	}
}

func TestAdvanceIdleIsNoop(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newTimer()

	r := c.Advance(now.Add(time.Second))
	if r != (TickResult{}) {
		t.Errorf("idle advance: got %+v, want zero result", r)
	}
	if !c.Idle() {
		t.Error("timer should still be idle")
	}
}

func TestAdvanceDecrementsByElapsed(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newTimer()
	c.AddTime(now)
	c.Start()

	prev := c.Remaining
	steps := []time.Duration{100, 130, 90, 250, 100} // jittered tick spacing in ms
	at := now
	for i, step := range steps {
		at = at.Add(step * time.Millisecond)
		r := c.Advance(at)
		if !r.Decremented {
			t.Fatalf("tick %d: expected decrement", i)
		}
		if got := prev - c.Remaining; got != step*time.Millisecond {
			t.Errorf("tick %d: decremented %v, want %v", i, got, step*time.Millisecond)
		}
		prev = c.Remaining
	}

	if c.Remaining != 5*time.Second-670*time.Millisecond {
		t.Errorf("Remaining: got %v, want 4.33s", c.Remaining)
	}
}

func TestAdvanceRendersWholeSeconds(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newTimer()
	c.AddTime(now)

	r := c.Advance(now.Add(1100 * time.Millisecond)) // 3.9s left
	if !r.Show {
		t.Fatal("expected Show")
	}
	if r.Seconds != 3 {
		t.Errorf("Seconds: got %d, want 3 (truncated)", r.Seconds)
	}
}

func TestAdvanceExhaustion(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newTimer()
	c.AddTime(now)
	c.Start()

	r := c.Advance(now.Add(6 * time.Second))
	if !r.Exhausted || !r.WasRunning {
		t.Errorf("expected exhausted while running, got %+v", r)
	}
	if r.Show {
		t.Error("nothing should be shown once exhausted")
	}
	if c.Remaining != 0 {
		t.Errorf("Remaining: got %v, want 0 (clamped)", c.Remaining)
	}
	if !c.StartTick.IsZero() || !c.LastUpdate.IsZero() {
		t.Error("ticks should be cleared on exhaustion")
	}
	if !c.Idle() {
		t.Error("timer should be idle after exhaustion")
	}

	// The next tick does nothing.
	if r := c.Advance(now.Add(7 * time.Second)); r != (TickResult{}) {
		t.Errorf("post-exhaustion tick: got %+v", r)
	}
}

func TestAdvanceExhaustionNotRunning(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newTimer()
	c.AddTime(now)

	r := c.Advance(now.Add(5 * time.Second))
	if !r.Exhausted {
		t.Fatal("expected exhaustion")
	}
	if r.WasRunning {
		t.Error("WasRunning should be false when the timer never started")
	}
}

func TestAdvanceNeverIncreases(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newTimer()
	c.AddTime(now)

	c.Advance(now.Add(-time.Second)) // clock stepped backwards
	if c.Remaining != 5*time.Second {
		t.Errorf("Remaining: got %v, want 5s", c.Remaining)
	}
}

func TestStartStop(t *testing.T) {
	c := newTimer()
	c.Start()
	if !c.Running {
		t.Error("expected running")
	}
	c.Stop()
	if c.Running {
		t.Error("expected stopped")
	}
}
