//go:build !linux

package periph

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Chip is not available on non-Linux platforms.
type Chip struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string) (*Chip, error) {
	return nil, fault(name, "open chip", errUnsupported)
}

// Input is not implemented on non-Linux platforms.
func (c *Chip) Input(offset int) (*LineInput, error) {
	return nil, errUnsupported
}

// Output is not implemented on non-Linux platforms.
func (c *Chip) Output(offset int, openDrain bool) (*LineOutput, error) {
	return nil, errUnsupported
}

// Close is a no-op on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}

// LineInput is not available on non-Linux platforms.
type LineInput struct{}

// Get is not implemented on non-Linux platforms.
func (l *LineInput) Get() (bool, error) {
	return false, errUnsupported
}

// LineOutput is not available on non-Linux platforms.
type LineOutput struct{}

// Set is not implemented on non-Linux platforms.
func (l *LineOutput) Set(on bool) error {
	return errUnsupported
}
