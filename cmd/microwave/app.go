package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sweeney/microwave-oven/internal/clock"
	"github.com/sweeney/microwave-oven/internal/config"
	"github.com/sweeney/microwave-oven/internal/logic"
	"github.com/sweeney/microwave-oven/internal/microwave"
	"github.com/sweeney/microwave-oven/internal/mqtt"
	"github.com/sweeney/microwave-oven/internal/oven"
	"github.com/sweeney/microwave-oven/internal/periph"
	"github.com/sweeney/microwave-oven/internal/sched"
	"github.com/sweeney/microwave-oven/internal/status"
)

// devices is the full set of peripherals the controller drives.
type devices struct {
	Button  periph.Input
	Light   periph.Output
	LED     periph.Output
	Display periph.Display
	Speaker periph.PWM
	Heater  periph.PWM
	Pot     periph.Analog
}

// app wires the microwave and oven to the scheduler and telemetry.
type app struct {
	clock      clock.Clock
	log        *zap.SugaredLogger
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker

	microwave *microwave.Microwave
	oven      *oven.Regulator
	led       periph.Output
	ledOn     bool
	sched     *sched.Scheduler
}

func newApp(cfg *config.Config, dev devices, clk clock.Clock, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, log *zap.SugaredLogger) (*app, error) {
	a := &app{
		clock:      clk,
		log:        log,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		led:        dev.LED,
		sched:      sched.New(clk, log.Named("sched")),
	}

	a.microwave = microwave.New(
		microwave.Peripherals{Button: dev.Button, Light: dev.Light, Speaker: dev.Speaker, Display: dev.Display},
		cfg.Timer, cfg.Speaker, clk, log.Named("microwave"),
		microwave.WithNotifier(a.publishCookEvent),
	)
	a.oven = oven.New(dev.Pot, dev.Heater, cfg.Oven, log.Named("oven"))

	tasks := []sched.Task{
		{Name: "button", Period: cfg.Schedule.Button, Run: a.microwave.CheckButton},
		{Name: "display", Period: cfg.Schedule.Display, Run: a.microwave.UpdateDisplay},
		{Name: "oven", Period: cfg.Schedule.Oven, Run: a.oven.Update},
		{Name: "blink", Period: cfg.Schedule.Blink, Run: a.blink},
		{Name: "status", Period: cfg.Schedule.Status, Run: a.updateStatus},
	}
	if cfg.Schedule.Heartbeat > 0 {
		tasks = append(tasks, sched.Task{Name: "heartbeat", Period: cfg.Schedule.Heartbeat, Delay: cfg.Schedule.Heartbeat, Run: a.heartbeat})
	}
	for _, t := range tasks {
		if err := a.sched.Add(t); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// runLoop initialises the outputs, announces startup, and runs the scheduler
// until a signal arrives or ctx is cancelled. Outputs are always switched
// off before it returns.
func (a *app) runLoop(ctx context.Context, sig <-chan os.Signal) error {
	if err := a.microwave.Init(); err != nil {
		// A broken display or speaker should not keep the oven from working.
		a.log.Errorw("init failed", "fault", periph.IsFault(err), "error", err)
	}

	a.updateStatus()
	a.publishSystem("STARTUP", "", true)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reason := make(chan string, 1)
	go func() {
		select {
		case s := <-sig:
			a.log.Infow("shutting down", "signal", s)
			reason <- signalName(s)
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := a.sched.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	shutdownReason := "CONTEXT"
	select {
	case r := <-reason:
		shutdownReason = r
	default:
	}

	var err error
	err = multierr.Append(err, a.microwave.Shutdown())
	err = multierr.Append(err, a.oven.Off())
	err = multierr.Append(err, a.led.Set(false))
	if err != nil {
		a.log.Errorw("shutdown outputs", "error", err)
	}

	a.updateStatus()
	a.publishSystem("SHUTDOWN", shutdownReason, true)
	return runErr
}

func (a *app) publishCookEvent(e logic.Event) {
	a.log.Infow("cook event", "event", e.Type, "remaining", e.Remaining, "session", e.Session)
	if err := a.publisher.Publish(e); err != nil {
		a.log.Warnw("publish error", "event", e.Type, "error", err)
	}
}

// publishSystem publishes a system event carrying a full status snapshot.
func (a *app) publishSystem(event, reason string, retained bool) error {
	snap := a.tracker.Snapshot()
	err := a.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		a.log.Warnw("failed to publish system event", "event", event, "error", err)
		return fmt.Errorf("publish %s: %w", event, err)
	}
	a.log.Infow("published system event", "event", event)
	return nil
}

// blink toggles the heartbeat LED.
func (a *app) blink() error {
	a.ledOn = !a.ledOn
	return a.led.Set(a.ledOn)
}

func (a *app) updateStatus() error {
	a.tracker.Update(a.microwave.State(), a.oven.Duty())
	if a.mqttStatus != nil {
		a.tracker.SetMQTTConnected(a.mqttStatus.IsConnected())
	}

	stats := a.sched.Stats()
	tasks := make([]status.TaskHealth, len(stats))
	for i, s := range stats {
		tasks[i] = status.TaskHealth{Name: s.Name, Runs: s.Runs, Failures: s.Failures}
		if s.LastErr != nil {
			tasks[i].LastErr = s.LastErr.Error()
		}
	}
	a.tracker.SetTasks(tasks)
	return nil
}

func (a *app) heartbeat() error {
	if net := readNetworkInfo(); net != nil {
		a.tracker.SetNetwork(net)
	}
	a.updateStatus()

	snap := a.tracker.Snapshot()
	a.log.Infow("heartbeat",
		"uptime", snap.Uptime(),
		"presses", snap.Cook.Counts.Presses,
		"ignored", snap.Cook.Counts.Ignored,
		"completed", snap.Cook.Counts.Completed,
	)
	return a.publishSystem("HEARTBEAT", "", false)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
