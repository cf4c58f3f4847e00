//go:build linux

package periph

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

// Chip hands out GPIO lines from a Linux GPIO character device.
type Chip struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// OpenChip opens the named chip, e.g. "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fault(name, "open chip", err)
	}
	return &Chip{chip: chip}, nil
}

// Input requests offset as an input with pull-down, so an unwired button
// reads released.
func (c *Chip) Input(offset int) (*LineInput, error) {
	line, err := c.chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		return nil, fault(fmt.Sprintf("line %d", offset), "request input", err)
	}
	c.lines = append(c.lines, line)
	return &LineInput{line: line, offset: offset}, nil
}

// Output requests offset as an output driven low. Open-drain lines only
// pull low and float high, as the TM1637 data line needs.
func (c *Chip) Output(offset int, openDrain bool) (*LineOutput, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if openDrain {
		opts = append(opts, gpiocdev.AsOpenDrain)
	}
	line, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fault(fmt.Sprintf("line %d", offset), "request output", err)
	}
	c.lines = append(c.lines, line)
	return &LineOutput{line: line, offset: offset}, nil
}

// Close returns every requested line to an input with pull-down (the Pi
// boot default) and releases the chip.
func (c *Chip) Close() error {
	var err error
	for _, line := range c.lines {
		if rerr := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("reconfigure line: %w", rerr))
		}
		if cerr := line.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close line: %w", cerr))
		}
	}
	c.lines = nil
	if c.chip != nil {
		if cerr := c.chip.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close chip: %w", cerr))
		}
	}
	return err
}

// LineInput is a GPIO line read as a digital input.
type LineInput struct {
	line   *gpiocdev.Line
	offset int
}

// Get returns true when the line is high (button pressed, active-high).
func (l *LineInput) Get() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, fault(fmt.Sprintf("line %d", l.offset), "get", err)
	}
	return v == 1, nil
}

// LineOutput is a GPIO line driven as a digital output.
type LineOutput struct {
	line   *gpiocdev.Line
	offset int
}

// Set drives the line high or low.
func (l *LineOutput) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fault(fmt.Sprintf("line %d", l.offset), "set", err)
	}
	return nil
}
