// Package machine provides the application state engine and the timer slots
// owned by whichever state is active.
// This package has NO external dependencies; time is a millisecond tick count
// supplied by the caller.
package machine

// Slot is a 1-based timer slot index.
type Slot int

// NoSlot is returned by ConsumeFinished when no slot has finished.
const NoSlot Slot = 0

// Conventional slots: states use slot 1 for periodic work and slot 2 for
// timeouts.
const (
	SlotRepeat    Slot = 1
	SlotCountdown Slot = 2
)

// DefaultCapacity is the number of slots when none is configured.
const DefaultCapacity = 2

// Mode is the arming mode of a timer slot.
type Mode uint8

const (
	Off Mode = iota
	OneShot
	Repeating
)

type timerSlot struct {
	mode     Mode
	finished bool
	interval uint32
	deadline uint32
}

// Timers is a fixed-size array of countdown/repeat slots.
// Out-of-range slots are ignored by every method. Not safe for concurrent use.
type Timers struct {
	slots []timerSlot
	clock func() uint32
}

// NewTimers creates capacity slots. clock returns the current millisecond
// tick and is read when a slot is armed.
func NewTimers(capacity int, clock func() uint32) *Timers {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Timers{
		slots: make([]timerSlot, capacity),
		clock: clock,
	}
}

// Cap returns the number of slots.
func (t *Timers) Cap() int {
	return len(t.slots)
}

func (t *Timers) slot(s Slot) *timerSlot {
	if s < 1 || int(s) > len(t.slots) {
		return nil
	}
	return &t.slots[s-1]
}

// Arm schedules slot s to finish intervalMs from now, once or repeatedly.
// Any pending finished flag is cleared.
func (t *Timers) Arm(s Slot, intervalMs uint32, repeating bool) {
	ts := t.slot(s)
	if ts == nil {
		return
	}
	ts.interval = intervalMs
	ts.finished = false
	ts.mode = OneShot
	if repeating {
		ts.mode = Repeating
	}
	ts.deadline = t.clock() + intervalMs
}

// Repeat arms slot s to finish every intervalMs.
func (t *Timers) Repeat(intervalMs uint32, s Slot) {
	t.Arm(s, intervalMs, true)
}

// Countdown arms slot s to finish once after intervalMs.
func (t *Timers) Countdown(intervalMs uint32, s Slot) {
	t.Arm(s, intervalMs, false)
}

// Tick marks every armed slot whose deadline has passed as finished.
// Repeating slots advance their deadline by exactly one interval from the
// previous deadline; a slot that lags by several intervals catches up one
// Tick call at a time.
func (t *Timers) Tick(nowMs uint32) {
	for i := range t.slots {
		ts := &t.slots[i]
		if ts.mode == Off || !reached(nowMs, ts.deadline) {
			continue
		}
		ts.finished = true
		if ts.mode == OneShot {
			ts.mode = Off
			continue
		}
		ts.deadline += ts.interval
	}
}

// reached reports whether now is at or past deadline, tolerating wraparound
// of the 32-bit millisecond counter.
func reached(now, deadline uint32) bool {
	return int32(now-deadline) >= 0
}

// ConsumeFinished returns the lowest finished slot and clears its flag, or
// NoSlot. Call it in a loop when several slots can finish in one Tick.
func (t *Timers) ConsumeFinished() Slot {
	for i := range t.slots {
		if t.slots[i].finished {
			t.slots[i].finished = false
			return Slot(i + 1)
		}
	}
	return NoSlot
}

// Disarm stops slot s and drops a pending finished flag.
func (t *Timers) Disarm(s Slot) {
	ts := t.slot(s)
	if ts == nil {
		return
	}
	ts.mode = Off
	ts.finished = false
}

// DisarmAll stops every slot and drops all pending finished flags.
func (t *Timers) DisarmAll() {
	for i := range t.slots {
		t.slots[i].mode = Off
		t.slots[i].finished = false
	}
}

// Armed reports whether slot s is scheduled.
func (t *Timers) Armed(s Slot) bool {
	ts := t.slot(s)
	return ts != nil && ts.mode != Off
}

// Mode returns the arming mode of slot s, or Off for out-of-range slots.
func (t *Timers) Mode(s Slot) Mode {
	ts := t.slot(s)
	if ts == nil {
		return Off
	}
	return ts.mode
}
