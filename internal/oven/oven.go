// Package oven regulates the heating element from the potentiometer.
package oven

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sweeney/microwave-oven/internal/config"
	"github.com/sweeney/microwave-oven/internal/periph"
)

// Regulator maps the potentiometer reading straight onto heater duty.
type Regulator struct {
	sensor    periph.Analog
	heater    periph.PWM
	threshold int
	maxDuty   int
	log       *zap.SugaredLogger

	duty atomic.Int64
}

// New creates a regulator.
func New(sensor periph.Analog, heater periph.PWM, cfg config.OvenConfig, log *zap.SugaredLogger) *Regulator {
	return &Regulator{
		sensor:    sensor,
		heater:    heater,
		threshold: cfg.IgnoreThreshold,
		maxDuty:   cfg.MaxDuty,
		log:       log,
	}
}

// DutyFor returns the heater duty for a raw reading. Readings at or below
// threshold are noise from the potentiometer's zero offset.
func DutyFor(raw, threshold, maxDuty int) int {
	if raw <= threshold {
		return 0
	}
	if raw > maxDuty {
		return maxDuty
	}
	return raw
}

// Update samples the potentiometer and writes the heater duty. If the
// sensor cannot be read the heater is switched off for the cycle.
func (r *Regulator) Update() error {
	raw, err := r.sensor.Read()
	if err != nil {
		if offErr := r.heater.SetDuty(0); offErr == nil {
			r.duty.Store(0)
		}
		return fmt.Errorf("read potentiometer: %w", err)
	}
	r.log.Debugw("potentiometer", "raw", raw)

	duty := DutyFor(raw, r.threshold, r.maxDuty)
	if err := r.heater.SetDuty(duty); err != nil {
		return fmt.Errorf("set heater duty: %w", err)
	}
	r.duty.Store(int64(duty))
	return nil
}

// Duty returns the duty written on the last successful cycle.
func (r *Regulator) Duty() int {
	return int(r.duty.Load())
}

// Off switches the heater off.
func (r *Regulator) Off() error {
	if err := r.heater.SetDuty(0); err != nil {
		return fmt.Errorf("heater off: %w", err)
	}
	r.duty.Store(0)
	return nil
}
