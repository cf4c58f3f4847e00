package periph

import (
	"time"

	"github.com/sweeney/microwave-oven/internal/clock"
)

const (
	tm1637CmdData    = 0x40 // write data, auto-increment address
	tm1637CmdAddress = 0xC0 // address of the first digit
	tm1637CmdDisplay = 0x88 // display on, OR with brightness 0..7

	tm1637Colon = 0x80
	bitDelay    = 10 * time.Microsecond
)

// segments for 0..9 (bit 0 = a .. bit 6 = g).
var digitSegments = [10]byte{0x3f, 0x06, 0x5b, 0x4f, 0x66, 0x6d, 0x7d, 0x07, 0x7f, 0x6f}

// TM1637 is a 4-digit display driven over a clock line and an open-drain
// data line. The acknowledge bit is clocked but not read.
type TM1637 struct {
	clk, dio   Output
	clock      clock.Clock
	brightness byte
}

// NewTM1637 creates a display driver. Brightness is clamped to 0..7.
func NewTM1637(clkPin, dioPin Output, c clock.Clock, brightness int) *TM1637 {
	if brightness < 0 {
		brightness = 0
	}
	if brightness > 7 {
		brightness = 7
	}
	return &TM1637{clk: clkPin, dio: dioPin, clock: c, brightness: byte(brightness)}
}

// Blank turns every segment off.
func (d *TM1637) Blank() error {
	return d.write([]byte{0, 0, 0, 0})
}

// ShowNumbers shows left and right as two zero-padded pairs with the colon
// lit. Each side is clamped to 0..99.
func (d *TM1637) ShowNumbers(left, right int) error {
	left, right = clampPair(left), clampPair(right)
	return d.write([]byte{
		digitSegments[left/10],
		digitSegments[left%10] | tm1637Colon,
		digitSegments[right/10],
		digitSegments[right%10],
	})
}

func clampPair(v int) int {
	if v < 0 {
		return 0
	}
	if v > 99 {
		return 99
	}
	return v
}

func (d *TM1637) write(segs []byte) error {
	steps := []func() error{
		d.start,
		func() error { return d.writeByte(tm1637CmdData) },
		d.stop,
		d.start,
		func() error { return d.writeByte(tm1637CmdAddress) },
	}
	for _, s := range segs {
		s := s
		steps = append(steps, func() error { return d.writeByte(s) })
	}
	steps = append(steps,
		d.stop,
		d.start,
		func() error { return d.writeByte(tm1637CmdDisplay | d.brightness) },
		d.stop,
	)

	for _, step := range steps {
		if err := step(); err != nil {
			return fault("tm1637", "write", err)
		}
	}
	return nil
}

func (d *TM1637) start() error {
	if err := d.dio.Set(true); err != nil {
		return err
	}
	if err := d.clk.Set(true); err != nil {
		return err
	}
	d.clock.Sleep(bitDelay)
	return d.dio.Set(false)
}

func (d *TM1637) stop() error {
	if err := d.clk.Set(false); err != nil {
		return err
	}
	if err := d.dio.Set(false); err != nil {
		return err
	}
	d.clock.Sleep(bitDelay)
	if err := d.clk.Set(true); err != nil {
		return err
	}
	d.clock.Sleep(bitDelay)
	return d.dio.Set(true)
}

// writeByte clocks b out LSB first, then one acknowledge clock.
func (d *TM1637) writeByte(b byte) error {
	for i := 0; i < 8; i++ {
		if err := d.clk.Set(false); err != nil {
			return err
		}
		if err := d.dio.Set(b&(1<<i) != 0); err != nil {
			return err
		}
		d.clock.Sleep(bitDelay)
		if err := d.clk.Set(true); err != nil {
			return err
		}
		d.clock.Sleep(bitDelay)
	}

	if err := d.clk.Set(false); err != nil {
		return err
	}
	if err := d.dio.Set(true); err != nil {
		return err
	}
	if err := d.clk.Set(true); err != nil {
		return err
	}
	d.clock.Sleep(bitDelay)
	return d.clk.Set(false)
}
