// Package adc provides analog keypad sampling with hardware abstraction.
// The real implementation reads decimal samples streamed by a
// microcontroller over a serial port.
// The fake implementation allows testing without hardware.
package adc

import "errors"

// Sampler reads the latest raw value of the keypad's analog input.
type Sampler interface {
	// Read returns the most recent raw sample.
	Read() (int, error)

	// Close releases sampler resources.
	Close() error
}

// ErrNoSample is returned before the first valid sample arrives.
var ErrNoSample = errors.New("adc: no sample received yet")

// ErrStale is returned when the source stopped delivering samples.
var ErrStale = errors.New("adc: sample stream stalled")

// MaxValue is the full-scale reading of a 10-bit converter.
const MaxValue = 1023
