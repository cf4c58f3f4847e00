// Package microwave drives the cook timer's peripherals: it samples the
// button, sounds the speaker, switches the light and renders the countdown.
//
// Every exported task method holds the controller's lock for its whole body,
// including the blocking beep pulses. A beep therefore stalls any other task
// that wants the controller, which is the appliance's intended behaviour.
package microwave

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sweeney/microwave-oven/internal/clock"
	"github.com/sweeney/microwave-oven/internal/config"
	"github.com/sweeney/microwave-oven/internal/logic"
	"github.com/sweeney/microwave-oven/internal/periph"
)

// Peripherals are the devices the microwave owns.
type Peripherals struct {
	Button  periph.Input
	Light   periph.Output
	Speaker periph.PWM
	Display periph.Display
}

// Microwave is the cook timer state machine bound to its peripherals.
type Microwave struct {
	mu sync.Mutex

	dev     Peripherals
	speaker config.SpeakerConfig
	clock   clock.Clock
	log     *zap.SugaredLogger
	notify  func(logic.Event)
	newID   func() string

	debounce *logic.Debouncer
	cook     *logic.CookTimer
	light    bool
	session  string
	counts   logic.EventCounts
}

// Option configures a Microwave.
type Option func(*Microwave)

// WithNotifier sets the function called with every cook event. It runs
// while the controller lock is held.
func WithNotifier(fn func(logic.Event)) Option {
	return func(m *Microwave) {
		m.notify = fn
	}
}

// WithSessionIDs replaces the session ID generator.
func WithSessionIDs(fn func() string) Option {
	return func(m *Microwave) {
		m.newID = fn
	}
}

// New creates an idle microwave.
func New(dev Peripherals, timer config.TimerConfig, speaker config.SpeakerConfig, clk clock.Clock, log *zap.SugaredLogger, opts ...Option) *Microwave {
	m := &Microwave{
		dev:      dev,
		speaker:  speaker,
		clock:    clk,
		log:      log,
		notify:   func(logic.Event) {},
		newID:    uuid.NewString,
		debounce: logic.NewDebouncer(timer.Debounce),
		cook:     logic.NewCookTimer(timer.Increment, timer.MaxTime),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init silences the speaker and blanks the display.
func (m *Microwave) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	err = multierr.Append(err, m.dev.Speaker.SetFrequency(m.speaker.RunningFreq))
	err = multierr.Append(err, m.dev.Speaker.SetDuty(0))
	err = multierr.Append(err, m.dev.Display.Blank())
	if err != nil {
		return fmt.Errorf("init microwave: %w", err)
	}
	return nil
}

// CheckButton samples the button once and applies an accepted press.
func (m *Microwave) CheckButton() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pressed, err := m.dev.Button.Get()
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}

	now := m.clock.Now()
	switch m.debounce.Sample(pressed, now) {
	case logic.Ignored:
		m.counts.Ignored++
		m.log.Debugw("press ignored", "at", now, "last_press", m.debounce.LastPress())
	case logic.Press:
		return m.press()
	}
	return nil
}

// UpdateDisplay applies the time elapsed since the last update and renders
// what is left. When time runs out the display is blanked once and, if the
// microwave was running, the completion sequence plays.
func (m *Microwave) UpdateDisplay() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.cook.Advance(m.clock.Now())

	var err error
	if r.Exhausted {
		err = multierr.Append(err, m.dev.Display.Blank())
		if r.WasRunning {
			err = multierr.Append(err, m.runStop())
		}
	}
	if r.Show {
		err = multierr.Append(err, m.dev.Display.ShowNumbers(0, r.Seconds))
	}
	if err != nil {
		return fmt.Errorf("update display: %w", err)
	}
	return nil
}

// State returns a snapshot of the timer and outputs.
func (m *Microwave) State() logic.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return logic.State{
		Remaining: m.cook.Remaining,
		Running:   m.cook.Running,
		Light:     m.light,
		Session:   m.session,
		Counts:    m.counts,
	}
}

// Shutdown turns the light and speaker off and blanks the display. The
// timer state is left as is.
func (m *Microwave) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	err = multierr.Append(err, m.setLight(false))
	err = multierr.Append(err, m.dev.Speaker.SetDuty(0))
	err = multierr.Append(err, m.dev.Display.Blank())
	return err
}

// press beeps, starts running, then adds time. The timer is updated even if
// a peripheral fails so that the press is never lost.
func (m *Microwave) press() error {
	var err error
	err = multierr.Append(err, m.beep(m.speaker.Beep))
	err = multierr.Append(err, m.runStart())

	now := m.clock.Now()
	typ := logic.EventTimeAdded
	if m.cook.AddTime(now) {
		typ = logic.EventCookStart
		m.session = m.newID()
	}
	m.counts.Presses++

	m.log.Infow("pressed", "remaining", m.cook.Remaining, "session", m.session)
	m.notify(logic.Event{
		Timestamp: now,
		Type:      typ,
		Remaining: m.cook.Remaining,
		Session:   m.session,
	})
	return err
}

func (m *Microwave) runStart() error {
	m.cook.Start()

	var err error
	err = multierr.Append(err, m.setLight(true))
	err = multierr.Append(err, m.dev.Speaker.SetFrequency(m.speaker.RunningFreq))
	err = multierr.Append(err, m.dev.Speaker.SetDuty(m.speaker.RunningDuty))
	return err
}

// runStop stops running and plays the completion pulses. There is no gap
// after the last pulse.
func (m *Microwave) runStop() error {
	m.cook.Stop()

	var err error
	err = multierr.Append(err, m.setLight(false))
	err = multierr.Append(err, m.dev.Speaker.SetDuty(0))
	for i := 0; i < m.speaker.DoneBeeps; i++ {
		if i > 0 {
			m.clock.Sleep(m.speaker.DoneGap)
		}
		err = multierr.Append(err, m.beep(m.speaker.DoneBeep))
	}

	m.counts.Completed++
	m.log.Infow("cook done", "session", m.session)
	m.notify(logic.Event{
		Timestamp: m.clock.Now(),
		Type:      logic.EventCookDone,
		Session:   m.session,
	})
	m.session = ""
	return err
}

// beep plays the beep tone for d, then restores the running frequency and
// whatever duty was set before.
func (m *Microwave) beep(d time.Duration) error {
	before, err := m.dev.Speaker.Duty()
	if err != nil {
		before = 0
	}

	err = multierr.Append(err, m.dev.Speaker.SetDuty(0))
	err = multierr.Append(err, m.dev.Speaker.SetFrequency(m.speaker.BeepFreq))
	err = multierr.Append(err, m.dev.Speaker.SetDuty(m.speaker.BeepDuty))
	m.clock.Sleep(d)
	err = multierr.Append(err, m.dev.Speaker.SetDuty(0))
	err = multierr.Append(err, m.dev.Speaker.SetFrequency(m.speaker.RunningFreq))
	err = multierr.Append(err, m.dev.Speaker.SetDuty(before))
	return err
}

func (m *Microwave) setLight(on bool) error {
	m.light = on
	return m.dev.Light.Set(on)
}
