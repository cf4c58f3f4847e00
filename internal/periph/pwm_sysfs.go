package periph

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// SysfsRoot is where the kernel exposes PWM chips.
const SysfsRoot = "/sys/class/pwm"

// SysfsPWM drives one channel of a Linux sysfs PWM chip. Duty is kept on a
// 0..dutyMax scale and converted to nanoseconds of the current period, so
// changing the frequency preserves the duty ratio.
type SysfsPWM struct {
	dir     string // .../pwmchipN/pwmM
	name    string
	dutyMax int

	periodNs int64
	duty     int
}

// OpenSysfsPWM exports channel on pwmchip<chip> under root (normally
// SysfsRoot), sets the frequency, drives duty 0 and enables the output.
func OpenSysfsPWM(root string, chip, channel, freq, dutyMax int) (*SysfsPWM, error) {
	if dutyMax <= 0 {
		return nil, fmt.Errorf("pwm duty max must be positive, got %d", dutyMax)
	}
	chipDir := filepath.Join(root, fmt.Sprintf("pwmchip%d", chip))
	p := &SysfsPWM{
		dir:     filepath.Join(chipDir, fmt.Sprintf("pwm%d", channel)),
		name:    fmt.Sprintf("pwmchip%d/pwm%d", chip, channel),
		dutyMax: dutyMax,
	}

	if _, err := os.Stat(p.dir); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(filepath.Join(chipDir, "export"), []byte(strconv.Itoa(channel)), 0644); err != nil {
			return nil, fault(p.name, "export", err)
		}
		// udev fixes up permissions on the new directory asynchronously.
		time.Sleep(100 * time.Millisecond)
	}

	if err := p.SetFrequency(freq); err != nil {
		return nil, err
	}
	if err := p.SetDuty(0); err != nil {
		return nil, err
	}
	if err := p.write("enable", "1"); err != nil {
		return nil, fault(p.name, "enable", err)
	}
	return p, nil
}

// SetFrequency changes the period, rescaling the duty cycle to match.
func (p *SysfsPWM) SetFrequency(hz int) error {
	if hz <= 0 {
		return fault(p.name, "set frequency", fmt.Errorf("invalid frequency %d", hz))
	}
	period := int64(time.Second) / int64(hz)
	dutyNs := p.dutyNs(period)

	// The kernel rejects a duty cycle longer than the period, so shrink
	// whichever must shrink first.
	if period < p.periodNs {
		if err := p.write("duty_cycle", strconv.FormatInt(dutyNs, 10)); err != nil {
			return fault(p.name, "set frequency", err)
		}
		if err := p.write("period", strconv.FormatInt(period, 10)); err != nil {
			return fault(p.name, "set frequency", err)
		}
	} else {
		if err := p.write("period", strconv.FormatInt(period, 10)); err != nil {
			return fault(p.name, "set frequency", err)
		}
		if err := p.write("duty_cycle", strconv.FormatInt(dutyNs, 10)); err != nil {
			return fault(p.name, "set frequency", err)
		}
	}
	p.periodNs = period
	return nil
}

// SetDuty sets the duty on the 0..dutyMax scale. Out-of-range values are
// clamped.
func (p *SysfsPWM) SetDuty(duty int) error {
	if duty < 0 {
		duty = 0
	}
	if duty > p.dutyMax {
		duty = p.dutyMax
	}
	p.duty = duty
	if err := p.write("duty_cycle", strconv.FormatInt(p.dutyNs(p.periodNs), 10)); err != nil {
		return fault(p.name, "set duty", err)
	}
	return nil
}

// Duty returns the duty last set.
func (p *SysfsPWM) Duty() (int, error) {
	return p.duty, nil
}

// Close drives duty 0 and disables the channel.
func (p *SysfsPWM) Close() error {
	if err := p.SetDuty(0); err != nil {
		return err
	}
	if err := p.write("enable", "0"); err != nil {
		return fault(p.name, "disable", err)
	}
	return nil
}

func (p *SysfsPWM) dutyNs(period int64) int64 {
	return period * int64(p.duty) / int64(p.dutyMax)
}

func (p *SysfsPWM) write(attr, value string) error {
	return os.WriteFile(filepath.Join(p.dir, attr), []byte(value), 0644)
}
