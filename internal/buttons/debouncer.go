package buttons

// Debouncer turns classified samples into PRESS, HOLD and RELEASE events.
//
// Confirmation is counted in samples, not wall-clock time, so the timing
// scales with Config.IntervalMs. Not safe for concurrent use.
type Debouncer struct {
	classifier *Classifier
	cfg        Config
	handler    Handler

	sampled    bool
	lastSample uint32

	pressed      Button
	candidate    Button
	confirmCount uint8
	holdCount    uint8
	releaseCount uint8

	// Single-slot latch for PRESS and RELEASE.
	latchKind   EventKind
	latchButton Button

	counts EventCounts
}

// NewDebouncer creates a debouncer. A nil handler disables notification;
// the TakePress/TakeRelease latch works either way.
func NewDebouncer(classifier *Classifier, cfg Config, handler Handler) *Debouncer {
	return &Debouncer{
		classifier: classifier,
		cfg:        cfg.withDefaults(),
		handler:    handler,
	}
}

// SetHandler replaces the event handler. Nil disables notification.
func (d *Debouncer) SetHandler(h Handler) {
	d.handler = h
}

// Due reports whether a sample taken at nowMs would be accepted.
// The first sample is always due; afterwards more than IntervalMs must
// have elapsed since the last accepted sample.
func (d *Debouncer) Due(nowMs uint32) bool {
	if !d.sampled {
		return true
	}
	return nowMs-d.lastSample > d.cfg.IntervalMs
}

// Sample feeds one raw analog reading taken at nowMs. Readings that are not
// Due are ignored and Sample returns false.
func (d *Debouncer) Sample(nowMs uint32, raw int) bool {
	if !d.Due(nowMs) {
		return false
	}
	d.sampled = true
	d.lastSample = nowMs
	d.step(d.classifier.Classify(raw))
	return true
}

func (d *Debouncer) step(btn Button) {
	if d.pressed == None {
		if btn == None {
			return
		}
		d.track(btn)
		if d.confirmCount >= d.cfg.ConfirmSamples {
			d.pressed = d.candidate
			d.holdCount = 0
			d.releaseCount = 0
			d.emit(Press, d.pressed)
		}
		return
	}

	d.holdCount++
	if d.holdCount >= d.cfg.HoldSamples {
		d.holdCount = 0
		d.emit(Hold, d.pressed)
	}

	// The candidate keeps counting while a button is held, so a finger
	// rolling onto another key is pressed one sample after the RELEASE.
	d.track(btn)

	if btn == d.pressed {
		d.releaseCount = 0
		return
	}
	d.releaseCount++
	if d.releaseCount >= d.cfg.ReleaseSamples {
		released := d.pressed
		d.pressed = None
		d.releaseCount = 0
		d.emit(Release, released)
	}
}

// track counts consecutive samples of btn, saturating at ConfirmSamples.
func (d *Debouncer) track(btn Button) {
	if btn != d.candidate {
		d.candidate = btn
		d.confirmCount = 1
		return
	}
	if d.confirmCount < d.cfg.ConfirmSamples {
		d.confirmCount++
	}
}

func (d *Debouncer) emit(kind EventKind, btn Button) {
	switch kind {
	case Press:
		d.counts.Press++
	case Hold:
		d.counts.Hold++
	case Release:
		d.counts.Release++
	}
	if kind != Hold {
		d.latchKind = kind
		d.latchButton = btn
	}
	if d.handler != nil {
		d.handler(kind, btn)
	}
}

// TakePress returns the button of a latched PRESS and clears the latch.
// It returns (None, false) if the latch does not hold a PRESS.
func (d *Debouncer) TakePress() (Button, bool) {
	return d.take(Press)
}

// TakeRelease returns the button of a latched RELEASE and clears the latch.
// It returns (None, false) if the latch does not hold a RELEASE.
func (d *Debouncer) TakeRelease() (Button, bool) {
	return d.take(Release)
}

func (d *Debouncer) take(kind EventKind) (Button, bool) {
	if d.latchKind != kind {
		return None, false
	}
	btn := d.latchButton
	d.latchKind = NoEvent
	d.latchButton = None
	return btn, true
}

// Pressed returns the currently confirmed button, or None.
func (d *Debouncer) Pressed() Button {
	return d.pressed
}

// Counts returns the number of events fired since creation.
func (d *Debouncer) Counts() EventCounts {
	return d.counts
}

// Config returns the effective configuration, defaults applied.
func (d *Debouncer) Config() Config {
	return d.cfg
}
