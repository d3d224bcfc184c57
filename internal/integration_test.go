package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/keypad-panel/internal/adc"
	"github.com/sweeney/keypad-panel/internal/app"
	"github.com/sweeney/keypad-panel/internal/buttons"
	"github.com/sweeney/keypad-panel/internal/config"
	"github.com/sweeney/keypad-panel/internal/hms"
	"github.com/sweeney/keypad-panel/internal/lcd"
	"github.com/sweeney/keypad-panel/internal/machine"
	"github.com/sweeney/keypad-panel/internal/mqtt"
	"github.com/sweeney/keypad-panel/internal/status"
	"github.com/sweeney/keypad-panel/internal/web"
)

// rig wires the fakes the way the daemon wires the real devices, minus the
// goroutines: samples -> debouncer -> stopwatch -> LCD, publisher, tracker.
type rig struct {
	now       uint32
	sampler   *adc.FakeSampler
	debouncer *buttons.Debouncer
	engine    *machine.Engine
	stopwatch *app.Stopwatch
	display   *lcd.FakeDisplay
	publisher *mqtt.FakePublisher
	tracker   *status.Tracker
	start     time.Time
}

func newRig(t *testing.T, cfg config.Config, samples []int) *rig {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	table, err := cfg.ThresholdTable()
	if err != nil {
		t.Fatal(err)
	}
	classifier, err := buttons.NewClassifier(table)
	if err != nil {
		t.Fatal(err)
	}

	r := &rig{
		sampler:   adc.NewFakeSampler(samples),
		display:   lcd.NewFakeDisplay(),
		publisher: mqtt.NewFakePublisher(),
		start:     time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	r.tracker = status.NewTracker(r.start, status.Config{Broker: cfg.MQTT.Broker, LoopMs: int64(cfg.LoopMs)})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r.engine = machine.NewEngine(machine.NewTimers(cfg.Timers.Capacity, func() uint32 { return r.now }))
	r.debouncer = buttons.NewDebouncer(classifier, cfg.DebounceConfig(), nil)
	r.stopwatch = app.New(r.engine, r.debouncer, r.display, hms.New(), cfg.AppConfig(), logger)
	r.debouncer.SetHandler(func(kind buttons.EventKind, b buttons.Button) {
		ts := r.start.Add(time.Duration(r.now) * time.Millisecond)
		if err := r.publisher.Publish(mqtt.Event{Timestamp: ts, Kind: kind, Button: b}); err != nil {
			t.Logf("publish error (ignored): %v", err)
		}
		r.stopwatch.HandleEvent(kind, b)
	})

	if err := lcd.InitIcons(r.display); err != nil {
		t.Fatal(err)
	}
	r.stopwatch.Start()
	return r
}

// tick runs one loop iteration after advancing the clock by ms.
func (r *rig) tick(ms uint32) {
	r.now += ms
	if r.debouncer.Due(r.now) {
		raw, err := r.sampler.Read()
		if err != nil {
			r.tracker.SetSample(0, false)
		} else {
			r.tracker.SetSample(raw, true)
			r.debouncer.Sample(r.now, raw)
		}
	}
	r.engine.RunTick(r.now)

	state := ""
	if id, ok := r.engine.Active(); ok {
		state = r.engine.Name(id)
	}
	r.tracker.Update(state, r.debouncer.Pressed(), r.stopwatch.Clock().String(), r.debouncer.Counts())
}

// ticks runs n iterations 5ms apart, the default loop interval.
func (r *rig) ticks(n int) {
	for i := 0; i < n; i++ {
		r.tick(5)
	}
}

func (r *rig) state() string {
	id, _ := r.engine.Active()
	return r.engine.Name(id)
}

// feed scripts n consecutive samples of raw.
func feed(samples []int, raw, n int) []int {
	for i := 0; i < n; i++ {
		samples = append(samples, raw)
	}
	return samples
}

func integrationConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.LCD.Driver = config.DriverLog
	cfg.App.SplashMs = 200
	return cfg
}

// TestIntegrationStopwatchFlow drives the whole panel from raw samples:
// splash, SELECT to start, SELECT to pause, LEFT back to ready.
func TestIntegrationStopwatchFlow(t *testing.T) {
	var samples []int
	samples = feed(samples, 1023, 15) // splash, idle keypad
	samples = feed(samples, 600, 4)   // SELECT
	samples = feed(samples, 1023, 150)
	samples = feed(samples, 600, 4) // SELECT again
	samples = feed(samples, 1023, 5)
	samples = feed(samples, 400, 4) // LEFT
	samples = feed(samples, 1023, 5)

	r := newRig(t, integrationConfig(), samples)
	if r.state() != "splash" {
		t.Fatalf("expected splash, got %s", r.state())
	}

	// With a 5ms loop and a 20ms interval, samples land 25ms apart: one
	// sample per 5 ticks.
	r.ticks(15 * 5)
	if r.state() != "ready" {
		t.Fatalf("expected ready after splash, got %s", r.state())
	}
	if got := r.display.Line(0); !strings.Contains(got, "Ready") {
		t.Errorf("ready screen: %q", got)
	}

	r.ticks(4 * 5)
	if r.state() != "running" {
		t.Fatalf("expected running after SELECT, got %s", r.state())
	}

	r.ticks(150 * 5) // 3.75s
	if got := r.stopwatch.Clock().Seconds(); got != 3 {
		t.Errorf("expected 3s elapsed, got %d", got)
	}
	if got := r.display.Line(1); !strings.Contains(got, "03s") {
		t.Errorf("time row: %q", got)
	}

	r.ticks(4 * 5)
	if r.state() != "paused" {
		t.Fatalf("expected paused after second SELECT, got %s", r.state())
	}
	r.ticks(5 * 5)
	if got := r.stopwatch.Clock().Seconds(); got != 3 {
		t.Errorf("paused clock moved: %ds", got)
	}

	r.ticks(4 * 5)
	if r.state() != "ready" {
		t.Fatalf("expected ready after LEFT, got %s", r.state())
	}
	if got := r.stopwatch.Clock().Seconds(); got != 0 {
		t.Errorf("ready should reset the clock, got %ds", got)
	}

	want := []string{
		"PRESS SELECT", "RELEASE SELECT",
		"PRESS SELECT", "RELEASE SELECT",
		"PRESS LEFT",
	}
	got := r.publisher.Summary()
	if len(got) != len(want) {
		t.Fatalf("events: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

// TestIntegrationBounceRejection feeds contact chatter that never settles.
func TestIntegrationBounceRejection(t *testing.T) {
	samples := []int{1023, 600, 400, 600, 400, 600, 1023, 400, 600, 400, 1023}
	r := newRig(t, integrationConfig(), samples)

	r.ticks(len(samples) * 5)
	if len(r.publisher.Events) != 0 {
		t.Errorf("expected no events from chatter, got %v", r.publisher.Summary())
	}
	if r.debouncer.Pressed() != buttons.None {
		t.Errorf("expected nothing pressed, got %v", r.debouncer.Pressed())
	}
}

// TestIntegrationCalibration checks the same voltage maps to different
// buttons under the two built-in tables.
func TestIntegrationCalibration(t *testing.T) {
	samples := feed(nil, 560, 4)

	for _, tc := range []struct {
		calibration string
		want        string
	}{
		{"default", "PRESS SELECT"},
		{"legacy", "PRESS LEFT"},
	} {
		t.Run(tc.calibration, func(t *testing.T) {
			cfg := integrationConfig()
			cfg.Buttons.Calibration = tc.calibration
			r := newRig(t, cfg, samples)
			r.ticks(len(samples) * 5)

			got := r.publisher.Summary()
			if len(got) != 1 || got[0] != tc.want {
				t.Errorf("got %v, want [%s]", got, tc.want)
			}
		})
	}
}

// TestIntegrationCustomThresholds uses a table from YAML.
func TestIntegrationCustomThresholds(t *testing.T) {
	cfg, err := config.Parse([]byte(`
lcd:
  driver: log
buttons:
  thresholds:
    - {below: 100, button: UP}
    - {below: 900, button: DOWN}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := newRig(t, cfg, feed(nil, 850, 4))
	r.ticks(4 * 5)

	if got := r.publisher.Summary(); len(got) != 1 || got[0] != "PRESS DOWN" {
		t.Errorf("got %v, want [PRESS DOWN]", got)
	}
}

// TestIntegrationHoldStream checks HOLD repeats while a button stays down
// and RELEASE follows once it is let go.
func TestIntegrationHoldStream(t *testing.T) {
	var samples []int
	samples = feed(samples, 400, 3+25) // LEFT: press, then 25 held samples
	samples = feed(samples, 1023, 3)

	r := newRig(t, integrationConfig(), samples)
	r.ticks(len(samples) * 5)

	want := []string{"PRESS LEFT", "HOLD LEFT", "HOLD LEFT", "RELEASE LEFT"}
	got := r.publisher.Summary()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("events: got %v, want %v", got, want)
	}
	counts := r.debouncer.Counts()
	if counts.Press != 1 || counts.Hold != 2 || counts.Release != 1 {
		t.Errorf("counts: got %+v, want press=1 hold=2 release=1", counts)
	}
}

func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	samples := feed(feed(nil, 1023, 10), 600, 4)
	r := newRig(t, integrationConfig(), samples)
	r.publisher.PublishError = errors.New("broker down")

	r.ticks(len(samples) * 5)
	if r.state() != "running" {
		t.Errorf("expected running despite publish failure, got %s", r.state())
	}
	if got := r.debouncer.Counts().Press; got != 1 {
		t.Errorf("expected press counted, got %d", got)
	}
}

func TestIntegrationPayloadFormat(t *testing.T) {
	samples := feed(feed(nil, 1023, 10), 600, 4)
	r := newRig(t, integrationConfig(), samples)
	r.ticks(len(samples) * 5)

	sent := r.publisher.Payloads(mqtt.Topic)
	if len(sent) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(sent))
	}
	var parsed map[string]map[string]string
	if err := json.Unmarshal(sent[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	kp := parsed["keypad"]
	if kp["event"] != "PRESS" || kp["button"] != "SELECT" || kp["state"] != "DOWN" {
		t.Errorf("unexpected payload: %s", sent[0])
	}
	if _, err := time.Parse(time.RFC3339, kp["timestamp"]); err != nil {
		t.Errorf("timestamp not RFC3339: %q", kp["timestamp"])
	}
}

// TestIntegrationStatusEndpoint checks tracker updates reach the JSON
// endpoint while the stopwatch runs.
func TestIntegrationStatusEndpoint(t *testing.T) {
	samples := feed(feed(feed(nil, 1023, 10), 600, 4), 1023, 50)
	r := newRig(t, integrationConfig(), samples)
	r.ticks(14 * 5)
	r.ticks(220) // 1.1s more of idle keypad

	srv := httptest.NewServer(web.New("", r.tracker, nil).Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/index.json")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Status struct {
			State   string `json:"state"`
			Pressed string `json:"pressed"`
			Elapsed string `json:"elapsed"`
			Sample  *int   `json:"sample"`
			Counts  struct {
				Press   int `json:"press"`
				Release int `json:"release"`
			} `json:"event_counts"`
		} `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	st := body.Status
	if st.State != "running" {
		t.Errorf("state: got %q, want running", st.State)
	}
	if st.Pressed != "NONE" {
		t.Errorf("pressed: got %q, want NONE", st.Pressed)
	}
	if !strings.HasSuffix(st.Elapsed, "01s") {
		t.Errorf("elapsed: got %q", st.Elapsed)
	}
	if st.Sample == nil || *st.Sample != 1023 {
		t.Errorf("sample: got %v", st.Sample)
	}
	if st.Counts.Press != 1 || st.Counts.Release != 1 {
		t.Errorf("counts: got %+v", st.Counts)
	}
}

func TestIntegrationStartupThenShutdown(t *testing.T) {
	r := newRig(t, integrationConfig(), []int{1023})
	r.tick(5)

	for _, tc := range []struct {
		event, reason string
		retained      bool
	}{
		{"STARTUP", "", true},
		{"SHUTDOWN", "SIGTERM", true},
	} {
		snap := r.tracker.Snapshot()
		ev := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      tc.event,
			Reason:     tc.reason,
			Retained:   tc.retained,
			RawPayload: status.FormatStatusEvent(snap, tc.event, tc.reason),
		}
		if err := r.publisher.PublishSystem(ev); err != nil {
			t.Fatal(err)
		}
	}

	system := r.publisher.Payloads(mqtt.TopicSystem)
	if len(system) != 2 {
		t.Fatalf("expected 2 system payloads, got %d", len(system))
	}
	var parsed struct {
		Status struct {
			Event  string `json:"event"`
			Reason string `json:"reason"`
			State  string `json:"state"`
		} `json:"status"`
	}
	if err := json.Unmarshal(system[1], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("unexpected shutdown payload: %s", system[1])
	}
	if parsed.Status.State != "splash" {
		t.Errorf("state: got %q, want splash", parsed.Status.State)
	}
	if !bytes.Contains(system[0], []byte(`"event":"STARTUP"`)) {
		t.Errorf("startup payload: %s", system[0])
	}
}
