// Package periph provides the appliance's peripherals behind small interfaces.
// The real implementations use the Linux GPIO character device, sysfs PWM,
// a serial ADC bridge and a bit-banged TM1637 display.
// The fake implementations allow testing without hardware.
package periph

import (
	"errors"
	"fmt"
)

// Input is a digital input pin.
type Input interface {
	// Get returns true when the line reads high.
	Get() (bool, error)
}

// Output is a digital output pin.
type Output interface {
	Set(on bool) error
}

// Analog is an analog-to-digital input.
type Analog interface {
	// Read returns the latest raw reading. The resolution is set by the
	// converter; thresholds and duty limits are calibrated against it.
	Read() (int, error)
}

// PWM is a PWM-capable output.
type PWM interface {
	SetFrequency(hz int) error
	// SetDuty sets the duty on the 0..DutyMax scale of the channel.
	SetDuty(duty int) error
	// Duty returns the duty last set.
	Duty() (int, error)
}

// Display is a 4-digit numeric display with a centre colon.
type Display interface {
	// Blank turns every segment off.
	Blank() error
	// ShowNumbers shows two zero-padded 2-digit numbers, left and right
	// of the colon.
	ShowNumbers(left, right int) error
}

// Fault is a peripheral I/O failure. A task that hits one skips its cycle.
type Fault struct {
	Device string
	Op     string
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Device, f.Op, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFault reports whether err is, or wraps, a *Fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}

func fault(device, op string, err error) error {
	return &Fault{Device: device, Op: op, Err: err}
}
