//go:build !linux

package lcd

import "errors"

// GPIODisplay is not available on non-Linux platforms.
type GPIODisplay struct{}

// NewGPIODisplay returns an error on non-Linux platforms.
func NewGPIODisplay(chipName string, pins Pins) (*GPIODisplay, error) {
	return nil, errors.New("lcd: gpio display not supported on this platform (requires Linux)")
}

// Clear is not implemented on non-Linux platforms.
func (d *GPIODisplay) Clear() error { return errors.New("lcd: not supported") }

// SetCursor is not implemented on non-Linux platforms.
func (d *GPIODisplay) SetCursor(col, row int) error { return errors.New("lcd: not supported") }

// Print is not implemented on non-Linux platforms.
func (d *GPIODisplay) Print(s string) error { return errors.New("lcd: not supported") }

// CreateChar is not implemented on non-Linux platforms.
func (d *GPIODisplay) CreateChar(location uint8, g Glyph) error {
	return errors.New("lcd: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *GPIODisplay) Close() error { return nil }
