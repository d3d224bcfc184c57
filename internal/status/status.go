// Package status provides a thread-safe status tracker for the keypad panel.
// It is written by the run loop and read by HTTP handlers and MQTT lifecycle
// events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/keypad-panel/internal/buttons"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	LoopMs         int64
	SampleMs       int64
	ConfirmSamples int
	HoldSamples    int
	ReleaseSamples int
	HeartbeatMs    int64
	Broker         string // empty when MQTT is disabled
	HTTPAddr       string
	ADCDevice      string
	LCDDriver      string
}

// ButtonEvent is a debounced keypad event as recorded by the tracker.
type ButtonEvent struct {
	Kind   buttons.EventKind
	Button buttons.Button
	At     time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         string // active application state, empty before the first
	Pressed       buttons.Button
	Elapsed       string // stopwatch display text
	Sample        int
	SampleOK      bool // false until a sample arrives or while the sampler fails
	Counts        buttons.EventCounts
	LastEvent     *ButtonEvent // nil until the first event
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the application state, pressed button and event counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(state string, pressed buttons.Button, elapsed string, counts buttons.EventCounts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Pressed = pressed
	t.snap.Elapsed = elapsed
	t.snap.Counts = counts
	t.mu.Unlock()
}

// RecordEvent remembers the most recent button event.
func (t *Tracker) RecordEvent(kind buttons.EventKind, button buttons.Button, at time.Time) {
	ev := &ButtonEvent{Kind: kind, Button: button, At: at}
	t.mu.Lock()
	t.snap.LastEvent = ev
	t.mu.Unlock()
}

// SetSample records the latest raw reading, or ok=false when none is
// available.
func (t *Tracker) SetSample(raw int, ok bool) {
	t.mu.Lock()
	if ok {
		t.snap.Sample = raw
	}
	t.snap.SampleOK = ok
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
