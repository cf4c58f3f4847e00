// Package sched runs a fixed set of periodic tasks cooperatively on one
// goroutine. A task body always runs to completion before any other task
// starts; tasks only yield while waiting for their next period.
package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/microwave-oven/internal/clock"
	"github.com/sweeney/microwave-oven/internal/periph"
)

// Task is a periodic job. Period is measured from the end of one run to the
// start of the next, so a slow body delays its own next run rather than
// piling up.
type Task struct {
	Name   string
	Period time.Duration
	Delay  time.Duration // before the first run
	Run    func() error
}

// TaskStats counts how a task has fared.
type TaskStats struct {
	Name     string
	Runs     int
	Failures int
	LastErr  error
}

type entry struct {
	Task
	next  time.Time
	stats TaskStats
}

// Scheduler runs tasks in order of their next due time. Ties go to the task
// added first.
type Scheduler struct {
	clock clock.Clock
	log   *zap.SugaredLogger
	tasks []*entry
}

// New creates an empty scheduler.
func New(clk clock.Clock, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{clock: clk, log: log}
}

// Add registers a task. Its first run is due after Delay.
func (s *Scheduler) Add(t Task) error {
	if t.Period <= 0 {
		return fmt.Errorf("task %q: period must be positive, got %v", t.Name, t.Period)
	}
	if t.Run == nil {
		return fmt.Errorf("task %q: no body", t.Name)
	}
	if t.Delay < 0 {
		return fmt.Errorf("task %q: negative delay %v", t.Name, t.Delay)
	}
	s.tasks = append(s.tasks, &entry{
		Task:  t,
		next:  s.clock.Now().Add(t.Delay),
		stats: TaskStats{Name: t.Name},
	})
	return nil
}

// Run steps the scheduler until ctx is cancelled, then returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
}

// Step waits for the next due task and runs it once. A failing task is
// logged and rescheduled; it never stops the other tasks.
func (s *Scheduler) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.tasks) == 0 {
		return errors.New("sched: no tasks")
	}

	e := s.tasks[0]
	for _, t := range s.tasks[1:] {
		if t.next.Before(e.next) {
			e = t
		}
	}

	if wait := e.next.Sub(s.clock.Now()); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(wait):
		}
	}

	err := s.runTask(e)
	e.stats.Runs++
	if err != nil {
		e.stats.Failures++
		e.stats.LastErr = err
		s.log.Errorw("task failed", "task", e.Name, "fault", periph.IsFault(err), "error", err)
	}
	e.next = s.clock.Now().Add(e.Period)
	return nil
}

// Stats returns per-task counters in registration order.
func (s *Scheduler) Stats() []TaskStats {
	out := make([]TaskStats, len(s.tasks))
	for i, e := range s.tasks {
		out[i] = e.stats
	}
	return out
}

func (s *Scheduler) runTask(e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.Run()
}
