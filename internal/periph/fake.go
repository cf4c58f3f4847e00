package periph

import (
	"errors"
	"time"

	"github.com/sweeney/microwave-oven/internal/clock"
)

// FakeInput is a test double that returns scripted levels.
type FakeInput struct {
	// Samples contains scripted levels. Each call to Get consumes the next
	// sample; once exhausted the last sample repeats.
	Samples []bool

	// Level, if set, is consulted instead of Samples.
	Level func() bool

	// ReadError, if set, is returned (wrapped in a Fault) by Get.
	ReadError error

	index int
}

// NewFakeInput creates a FakeInput with the given samples.
func NewFakeInput(samples ...bool) *FakeInput {
	return &FakeInput{Samples: samples}
}

// Get returns the next scripted level.
func (f *FakeInput) Get() (bool, error) {
	if f.ReadError != nil {
		return false, fault("fake input", "get", f.ReadError)
	}
	if f.Level != nil {
		return f.Level(), nil
	}
	if len(f.Samples) == 0 {
		return false, fault("fake input", "get", errors.New("no samples configured"))
	}

	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// FakeOutput records every level written to it.
type FakeOutput struct {
	On       bool
	History  []bool
	SetError error
}

// Set records the level.
func (f *FakeOutput) Set(on bool) error {
	if f.SetError != nil {
		return fault("fake output", "set", f.SetError)
	}
	f.On = on
	f.History = append(f.History, on)
	return nil
}

// FakeAnalog returns scripted readings.
type FakeAnalog struct {
	// Values contains scripted readings; the last one repeats.
	Values    []int
	ReadError error

	index int
}

// NewFakeAnalog creates a FakeAnalog with the given readings.
func NewFakeAnalog(values ...int) *FakeAnalog {
	return &FakeAnalog{Values: values}
}

// Read returns the next scripted reading.
func (f *FakeAnalog) Read() (int, error) {
	if f.ReadError != nil {
		return 0, fault("fake adc", "read", f.ReadError)
	}
	if len(f.Values) == 0 {
		return 0, fault("fake adc", "read", errors.New("no values configured"))
	}

	v := f.Values[f.index]
	if f.index < len(f.Values)-1 {
		f.index++
	}
	return v, nil
}

// PWMOp is the state of a FakePWM after one write.
type PWMOp struct {
	At   time.Time
	Freq int
	Duty int
}

// FakePWM records every frequency and duty write. If Clock is set each op
// is stamped with its time.
type FakePWM struct {
	Clock clock.Clock

	Freq     int
	DutyVal  int
	Ops      []PWMOp
	SetError error
}

// SetFrequency records the frequency.
func (f *FakePWM) SetFrequency(hz int) error {
	if f.SetError != nil {
		return fault("fake pwm", "set frequency", f.SetError)
	}
	f.Freq = hz
	f.record()
	return nil
}

// SetDuty records the duty.
func (f *FakePWM) SetDuty(duty int) error {
	if f.SetError != nil {
		return fault("fake pwm", "set duty", f.SetError)
	}
	f.DutyVal = duty
	f.record()
	return nil
}

// Duty returns the duty last set.
func (f *FakePWM) Duty() (int, error) {
	return f.DutyVal, nil
}

func (f *FakePWM) record() {
	op := PWMOp{Freq: f.Freq, Duty: f.DutyVal}
	if f.Clock != nil {
		op.At = f.Clock.Now()
	}
	f.Ops = append(f.Ops, op)
}

// Pulses returns the ops that switched the output to duty from something else.
func (f *FakePWM) Pulses(duty int) []PWMOp {
	var out []PWMOp
	prev := 0
	for _, op := range f.Ops {
		if op.Duty == duty && prev != duty {
			out = append(out, op)
		}
		prev = op.Duty
	}
	return out
}

// DisplayWrite is one write to a FakeDisplay.
type DisplayWrite struct {
	Blank bool
	Left  int
	Right int
}

// FakeDisplay records writes.
type FakeDisplay struct {
	Writes     []DisplayWrite
	WriteError error
}

// Blank records a blank write.
func (f *FakeDisplay) Blank() error {
	if f.WriteError != nil {
		return fault("fake display", "blank", f.WriteError)
	}
	f.Writes = append(f.Writes, DisplayWrite{Blank: true})
	return nil
}

// ShowNumbers records a number write.
func (f *FakeDisplay) ShowNumbers(left, right int) error {
	if f.WriteError != nil {
		return fault("fake display", "show", f.WriteError)
	}
	f.Writes = append(f.Writes, DisplayWrite{Left: left, Right: right})
	return nil
}

// Last returns the most recent write and whether there was one.
func (f *FakeDisplay) Last() (DisplayWrite, bool) {
	if len(f.Writes) == 0 {
		return DisplayWrite{}, false
	}
	return f.Writes[len(f.Writes)-1], true
}
