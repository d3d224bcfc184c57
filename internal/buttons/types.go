// Package buttons classifies analog keypad samples and debounces them into
// press, hold and release events.
// This package has NO external dependencies (no ADC, LCD, MQTT or wall clock).
// Time is always injectable as a millisecond tick count.
package buttons

import (
	"fmt"
	"strings"
)

// Button identifies one key of the resistor-ladder keypad.
type Button uint8

const (
	None Button = iota
	Right
	Up
	Down
	Left
	Select
)

var buttonNames = [...]string{"NONE", "RIGHT", "UP", "DOWN", "LEFT", "SELECT"}

func (b Button) String() string {
	if int(b) < len(buttonNames) {
		return buttonNames[b]
	}
	return fmt.Sprintf("BUTTON(%d)", uint8(b))
}

// ParseButton converts a case-insensitive button name into a Button.
func ParseButton(s string) (Button, error) {
	for i, name := range buttonNames {
		if strings.EqualFold(s, name) {
			return Button(i), nil
		}
	}
	return None, fmt.Errorf("unknown button %q", s)
}

// EventKind is the kind of a debounced button event.
type EventKind uint8

const (
	NoEvent EventKind = iota
	Press
	Release
	Hold
)

func (k EventKind) String() string {
	switch k {
	case Press:
		return "PRESS"
	case Release:
		return "RELEASE"
	case Hold:
		return "HOLD"
	}
	return "NONE"
}

// Handler receives events synchronously from Sample.
// It runs inline with the sampling tick and must neither block nor call
// Sample (or anything that ticks timers) itself.
type Handler func(kind EventKind, button Button)

// EventCounts tracks the number of each event kind since startup.
type EventCounts struct {
	Press   int
	Hold    int
	Release int
}

// Config holds the debounce cadence and sample-count thresholds.
// Zero fields are replaced by the defaults below.
type Config struct {
	// Minimum spacing between accepted samples, in milliseconds.
	IntervalMs uint32
	// Consecutive matching samples needed to confirm a press.
	ConfirmSamples uint8
	// Held samples between HOLD events.
	HoldSamples uint8
	// Consecutive differing samples needed to confirm a release.
	ReleaseSamples uint8
}

// Defaults calibrated for the 5-button LCD keypad shield.
const (
	DefaultIntervalMs     = 20
	DefaultConfirmSamples = 3
	DefaultHoldSamples    = 10
	DefaultReleaseSamples = 2
)

// DefaultConfig returns the stock debounce timing: 60 ms to press,
// a HOLD every 200 ms and 40 ms to release.
func DefaultConfig() Config {
	return Config{
		IntervalMs:     DefaultIntervalMs,
		ConfirmSamples: DefaultConfirmSamples,
		HoldSamples:    DefaultHoldSamples,
		ReleaseSamples: DefaultReleaseSamples,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.IntervalMs == 0 {
		c.IntervalMs = d.IntervalMs
	}
	if c.ConfirmSamples == 0 {
		c.ConfirmSamples = d.ConfirmSamples
	}
	if c.HoldSamples == 0 {
		c.HoldSamples = d.HoldSamples
	}
	if c.ReleaseSamples == 0 {
		c.ReleaseSamples = d.ReleaseSamples
	}
	return c
}
