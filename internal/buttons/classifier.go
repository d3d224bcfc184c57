package buttons

import (
	"errors"
	"fmt"
)

// Threshold maps every sample below Below (and at or above the previous
// entry's bound) to Button.
type Threshold struct {
	Below  int
	Button Button
}

// DefaultThresholds is the ladder calibration for current keypad shields.
var DefaultThresholds = []Threshold{
	{Below: 80, Button: Right},
	{Below: 200, Button: Up},
	{Below: 300, Button: Down},
	{Below: 500, Button: Left},
	{Below: 700, Button: Select},
}

// LegacyThresholds is the calibration for early shield revisions.
var LegacyThresholds = []Threshold{
	{Below: 50, Button: Right},
	{Below: 200, Button: Up},
	{Below: 350, Button: Down},
	{Below: 600, Button: Left},
	{Below: 700, Button: Select},
}

// Classifier buckets raw analog samples into buttons.
type Classifier struct {
	table []Threshold
}

// NewClassifier validates the table and returns a classifier that owns a
// copy of it. Bounds must be strictly ascending and name real buttons.
func NewClassifier(thresholds []Threshold) (*Classifier, error) {
	if len(thresholds) == 0 {
		return nil, errors.New("threshold table is empty")
	}
	for i, t := range thresholds {
		if t.Button == None || t.Button > Select {
			return nil, fmt.Errorf("threshold %d: invalid button %s", i, t.Button)
		}
		if i > 0 && t.Below <= thresholds[i-1].Below {
			return nil, fmt.Errorf("threshold %d: bound %d not above %d", i, t.Below, thresholds[i-1].Below)
		}
	}
	table := make([]Threshold, len(thresholds))
	copy(table, thresholds)
	return &Classifier{table: table}, nil
}

// Classify returns the button for a raw sample, or None when the sample is
// at or above the last bound (no key pressed).
func (c *Classifier) Classify(sample int) Button {
	for _, t := range c.table {
		if sample < t.Below {
			return t.Button
		}
	}
	return None
}

// Thresholds returns a copy of the calibration table.
func (c *Classifier) Thresholds() []Threshold {
	out := make([]Threshold, len(c.table))
	copy(out, c.table)
	return out
}
