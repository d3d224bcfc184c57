// Package hms keeps an elapsed-seconds counter together with the short text
// fields shown on a 16x2 LCD.
package hms

import "fmt"

// Clock counts hours, minutes and seconds and keeps their display text
// current. The hours/minutes text is only regenerated when it changes.
type Clock struct {
	h, m, s int

	hm        string
	sec       string
	hmChanged bool
}

// New returns a Clock at zero.
func New() *Clock {
	c := &Clock{}
	c.Reset()
	return c
}

// Reset sets the clock back to zero and regenerates both text fields.
func (c *Clock) Reset() {
	c.h, c.m, c.s = 0, 0, 0
	c.genHM()
	c.genS()
}

// Inc advances the clock by one second.
func (c *Clock) Inc() {
	c.s++
	if c.s == 60 {
		c.s = 0
		c.m++
		if c.m == 60 {
			c.m = 0
			c.h++
		}
		c.genHM()
	}
	c.genS()
}

func (c *Clock) genHM() {
	c.hm = fmt.Sprintf("%3dh%02dm", c.h, c.m)
	c.hmChanged = true
}

func (c *Clock) genS() {
	c.sec = fmt.Sprintf("%02ds", c.s)
}

// HM returns the hours and minutes text, e.g. "  1h05m".
func (c *Clock) HM() string { return c.hm }

// S returns the seconds text, e.g. "07s".
func (c *Clock) S() string { return c.sec }

// TakeHMChanged reports whether HM was regenerated since the last call.
func (c *Clock) TakeHMChanged() bool {
	changed := c.hmChanged
	c.hmChanged = false
	return changed
}

// Seconds returns the total elapsed seconds.
func (c *Clock) Seconds() int {
	return c.h*3600 + c.m*60 + c.s
}

// String returns the full display text, e.g. "  1h05m 07s".
func (c *Clock) String() string {
	return c.hm + " " + c.sec
}
