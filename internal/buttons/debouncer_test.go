package buttons

import (
	"testing"
)

// Raw ladder readings that classify to each button with DefaultThresholds.
var raw = map[Button]int{
	None:   1023,
	Right:  0,
	Up:     130,
	Down:   250,
	Left:   410,
	Select: 640,
}

type recorded struct {
	sample int
	kind   EventKind
	button Button
}

// rig drives a Debouncer with one due sample per call and records handler
// events together with the index of the sample that produced them.
type rig struct {
	d      *Debouncer
	now    uint32
	n      int
	events []recorded
}

func newRig(t *testing.T, cfg Config) *rig {
	t.Helper()
	c, err := NewClassifier(DefaultThresholds)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	r := &rig{}
	r.d = NewDebouncer(c, cfg, func(kind EventKind, b Button) {
		r.events = append(r.events, recorded{sample: r.n, kind: kind, button: b})
	})
	return r
}

// feed sends count samples of button b, spaced just over one interval apart.
func (r *rig) feed(b Button, count int) {
	for i := 0; i < count; i++ {
		r.n++
		r.d.Sample(r.now, raw[b])
		r.now += r.d.Config().IntervalMs + 1
	}
}

func (r *rig) kinds(kind EventKind) []recorded {
	var out []recorded
	for _, e := range r.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestPressNeedsThreeMatchingSamples(t *testing.T) {
	r := newRig(t, Config{})

	r.feed(Right, 2)
	if len(r.events) != 0 {
		t.Fatalf("expected no events after 2 samples, got %v", r.events)
	}
	if r.d.Pressed() != None {
		t.Errorf("Pressed: got %s, want NONE", r.d.Pressed())
	}

	r.feed(Right, 1)
	if len(r.events) != 1 {
		t.Fatalf("expected 1 event after 3 samples, got %v", r.events)
	}
	if r.events[0].kind != Press || r.events[0].button != Right {
		t.Errorf("expected PRESS RIGHT, got %s %s", r.events[0].kind, r.events[0].button)
	}
	if r.d.Pressed() != Right {
		t.Errorf("Pressed: got %s, want RIGHT", r.d.Pressed())
	}

	// Staying pressed below the hold threshold fires nothing else.
	r.feed(Right, 5)
	if len(r.events) != 1 {
		t.Errorf("expected PRESS to fire once, got %v", r.events)
	}
}

func TestPressCandidateResetsOnChange(t *testing.T) {
	r := newRig(t, Config{})

	r.feed(Right, 2)
	r.feed(Up, 2)
	if len(r.events) != 0 {
		t.Fatalf("expected no events while candidate changes, got %v", r.events)
	}

	r.feed(Up, 1)
	presses := r.kinds(Press)
	if len(presses) != 1 || presses[0].button != Up {
		t.Fatalf("expected PRESS UP, got %v", r.events)
	}
	if presses[0].sample != 5 {
		t.Errorf("PRESS on sample %d, want 5", presses[0].sample)
	}
}

func TestIdleNoneSampleDoesNotResetCandidate(t *testing.T) {
	r := newRig(t, Config{})

	r.feed(Down, 1)
	r.feed(None, 1)
	r.feed(Down, 2)

	presses := r.kinds(Press)
	if len(presses) != 1 || presses[0].button != Down {
		t.Fatalf("expected PRESS DOWN, got %v", r.events)
	}
	if presses[0].sample != 4 {
		t.Errorf("PRESS on sample %d, want 4", presses[0].sample)
	}
}

func TestHoldRepeatsEveryTenSamples(t *testing.T) {
	r := newRig(t, Config{})
	r.feed(Select, 3) // press on sample 3

	r.feed(Select, 9)
	if n := len(r.kinds(Hold)); n != 0 {
		t.Fatalf("expected no HOLD after 9 held samples, got %d", n)
	}

	r.feed(Select, 1)
	holds := r.kinds(Hold)
	if len(holds) != 1 {
		t.Fatalf("expected 1 HOLD after 10 held samples, got %d", len(holds))
	}
	if holds[0].button != Select || holds[0].sample != 13 {
		t.Errorf("HOLD: got %s on sample %d, want SELECT on 13", holds[0].button, holds[0].sample)
	}

	r.feed(Select, 40)
	holds = r.kinds(Hold)
	if len(holds) != 5 {
		t.Fatalf("expected 5 HOLD events after 50 held samples, got %d", len(holds))
	}
	for i, h := range holds {
		want := 13 + 10*i
		if h.sample != want {
			t.Errorf("HOLD %d on sample %d, want %d", i, h.sample, want)
		}
	}
	if n := len(r.kinds(Release)); n != 0 {
		t.Errorf("expected no RELEASE while held, got %d", n)
	}
}

func TestReleaseAfterTwoDifferingSamples(t *testing.T) {
	r := newRig(t, Config{})
	r.feed(Left, 3)

	r.feed(None, 1)
	if n := len(r.kinds(Release)); n != 0 {
		t.Fatalf("expected no RELEASE after 1 differing sample, got %d", n)
	}
	if r.d.Pressed() != Left {
		t.Errorf("Pressed: got %s, want LEFT", r.d.Pressed())
	}

	r.feed(None, 1)
	releases := r.kinds(Release)
	if len(releases) != 1 || releases[0].button != Left {
		t.Fatalf("expected RELEASE LEFT, got %v", r.events)
	}
	if r.d.Pressed() != None {
		t.Errorf("Pressed: got %s, want NONE", r.d.Pressed())
	}

	r.feed(None, 10)
	if len(r.events) != 2 {
		t.Errorf("expected exactly PRESS and RELEASE, got %v", r.events)
	}
}

func TestReleaseCounterResetsOnBounce(t *testing.T) {
	r := newRig(t, Config{})
	r.feed(Right, 3)

	r.feed(None, 1)
	r.feed(Right, 1)
	r.feed(None, 1)
	if n := len(r.kinds(Release)); n != 0 {
		t.Fatalf("expected bounce not to release, got %v", r.events)
	}

	r.feed(None, 1)
	if n := len(r.kinds(Release)); n != 1 {
		t.Fatalf("expected RELEASE after 2 consecutive differing samples, got %v", r.events)
	}
}

func TestRollOntoOtherButtonPressesAfterRelease(t *testing.T) {
	r := newRig(t, Config{})
	r.feed(Right, 3)
	r.feed(Up, 3)

	want := []recorded{
		{sample: 3, kind: Press, button: Right},
		{sample: 5, kind: Release, button: Right},
		{sample: 6, kind: Press, button: Up},
	}
	if len(r.events) != len(want) {
		t.Fatalf("events: got %v, want %v", r.events, want)
	}
	for i, w := range want {
		if r.events[i] != w {
			t.Errorf("event %d: got %v, want %v", i, r.events[i], w)
		}
	}
	if r.d.Pressed() != Up {
		t.Errorf("Pressed: got %s, want UP", r.d.Pressed())
	}
}

func TestRollOntoOtherButtonWithSingleReleaseSample(t *testing.T) {
	r := newRig(t, Config{ReleaseSamples: 1})
	r.feed(Right, 3)
	r.feed(Up, 1)
	if n := len(r.kinds(Release)); n != 1 {
		t.Fatalf("expected RELEASE on the first UP sample, got %v", r.events)
	}

	// Only one UP sample counted so far; two more confirm it.
	r.feed(Up, 1)
	if n := len(r.kinds(Press)); n != 1 {
		t.Fatalf("expected no PRESS UP yet, got %v", r.events)
	}
	r.feed(Up, 1)
	presses := r.kinds(Press)
	if len(presses) != 2 || presses[1] != (recorded{sample: 6, kind: Press, button: Up}) {
		t.Errorf("expected PRESS UP on sample 6, got %v", r.events)
	}
}

func TestReleaseSampleNeverPresses(t *testing.T) {
	r := newRig(t, Config{})
	r.feed(Right, 3)
	r.feed(Up, 10)

	seen := map[int]EventKind{}
	for _, e := range r.events {
		if k, ok := seen[e.sample]; ok && (k == Release || e.kind == Release) && (k == Press || e.kind == Press) {
			t.Errorf("PRESS and RELEASE fired in the same sample %d", e.sample)
		}
		seen[e.sample] = e.kind
	}
	if n := len(r.kinds(Press)); n != 2 {
		t.Errorf("expected PRESS RIGHT and PRESS UP, got %v", r.events)
	}
}

func TestSingleSampleAfterReleaseDoesNotRepress(t *testing.T) {
	r := newRig(t, Config{})
	r.feed(Right, 3)
	r.feed(None, 2)
	r.feed(Right, 1)

	if n := len(r.kinds(Press)); n != 1 {
		t.Errorf("expected a fresh confirmation after release, got %v", r.events)
	}
	r.feed(Right, 2)
	if n := len(r.kinds(Press)); n != 2 {
		t.Errorf("expected second PRESS after 3 samples, got %v", r.events)
	}
}

func TestSamplesFasterThanIntervalIgnored(t *testing.T) {
	c, _ := NewClassifier(DefaultThresholds)
	var events []EventKind
	d := NewDebouncer(c, Config{}, func(k EventKind, b Button) { events = append(events, k) })

	if !d.Sample(0, raw[Right]) {
		t.Fatal("first sample should be accepted")
	}
	// 20 ms is not more than the 20 ms interval.
	for _, now := range []uint32{5, 10, 20} {
		if d.Due(now) {
			t.Errorf("Due(%d): expected false", now)
		}
		if d.Sample(now, raw[Right]) {
			t.Errorf("Sample(%d): expected to be ignored", now)
		}
	}
	if !d.Sample(21, raw[Right]) {
		t.Fatal("sample at 21 ms should be accepted")
	}
	if len(events) != 0 {
		t.Fatalf("ignored samples must not count, got %v", events)
	}
	if !d.Sample(42, raw[Right]) {
		t.Fatal("sample at 42 ms should be accepted")
	}
	if len(events) != 1 || events[0] != Press {
		t.Errorf("expected PRESS on third accepted sample, got %v", events)
	}
}

func TestSamplingSurvivesClockWrap(t *testing.T) {
	c, _ := NewClassifier(DefaultThresholds)
	d := NewDebouncer(c, Config{}, nil)

	start := ^uint32(0) - 10
	d.Sample(start, raw[Up])
	if d.Due(start + 15) {
		t.Error("expected not due 15 ms after a sample across the wrap")
	}
	if !d.Due(start + 25) {
		t.Error("expected due 25 ms after a sample across the wrap")
	}
}

func TestLatchTakePressAndRelease(t *testing.T) {
	r := newRig(t, Config{})

	if _, ok := r.d.TakePress(); ok {
		t.Error("TakePress on fresh debouncer: expected false")
	}

	r.feed(Down, 3)
	if _, ok := r.d.TakeRelease(); ok {
		t.Error("TakeRelease with PRESS latched: expected false")
	}
	b, ok := r.d.TakePress()
	if !ok || b != Down {
		t.Fatalf("TakePress: got (%s, %v), want (DOWN, true)", b, ok)
	}
	if _, ok := r.d.TakePress(); ok {
		t.Error("second TakePress: expected false")
	}

	// HOLD is only visible to the handler.
	r.feed(Down, 10)
	if n := len(r.kinds(Hold)); n != 1 {
		t.Fatalf("expected 1 HOLD, got %d", n)
	}
	if _, ok := r.d.TakePress(); ok {
		t.Error("TakePress after HOLD: expected false")
	}
	if _, ok := r.d.TakeRelease(); ok {
		t.Error("TakeRelease after HOLD: expected false")
	}

	r.feed(None, 2)
	b, ok = r.d.TakeRelease()
	if !ok || b != Down {
		t.Fatalf("TakeRelease: got (%s, %v), want (DOWN, true)", b, ok)
	}
	if _, ok := r.d.TakeRelease(); ok {
		t.Error("second TakeRelease: expected false")
	}
}

func TestLatchHoldsOnlyLastEvent(t *testing.T) {
	r := newRig(t, Config{})
	r.feed(Up, 3)
	r.feed(None, 2)

	// The unread PRESS was overwritten by the RELEASE.
	if _, ok := r.d.TakePress(); ok {
		t.Error("TakePress: expected false after RELEASE overwrote PRESS")
	}
	if b, ok := r.d.TakeRelease(); !ok || b != Up {
		t.Errorf("TakeRelease: got (%s, %v), want (UP, true)", b, ok)
	}
}

func TestNilHandlerKeepsLatch(t *testing.T) {
	c, _ := NewClassifier(DefaultThresholds)
	d := NewDebouncer(c, Config{}, nil)

	for i := 0; i < 3; i++ {
		d.Sample(uint32(i*30), raw[Select])
	}
	if b, ok := d.TakePress(); !ok || b != Select {
		t.Errorf("TakePress: got (%s, %v), want (SELECT, true)", b, ok)
	}
}

func TestCustomCounts(t *testing.T) {
	r := newRig(t, Config{IntervalMs: 10, ConfirmSamples: 5, HoldSamples: 4, ReleaseSamples: 3})

	r.feed(Left, 4)
	if len(r.events) != 0 {
		t.Fatalf("expected no PRESS after 4 samples, got %v", r.events)
	}
	r.feed(Left, 1)
	r.feed(Left, 8)
	if n := len(r.kinds(Hold)); n != 2 {
		t.Errorf("expected 2 HOLD events, got %d", n)
	}
	r.feed(None, 2)
	if n := len(r.kinds(Release)); n != 0 {
		t.Errorf("expected no RELEASE after 2 samples, got %d", n)
	}
	r.feed(None, 1)
	if n := len(r.kinds(Release)); n != 1 {
		t.Errorf("expected RELEASE after 3 samples, got %d", n)
	}

	counts := r.d.Counts()
	if counts.Press != 1 || counts.Hold != 2 || counts.Release != 1 {
		t.Errorf("Counts: got %+v", counts)
	}
}

func TestDefaultsAppliedToZeroConfig(t *testing.T) {
	c, _ := NewClassifier(DefaultThresholds)
	d := NewDebouncer(c, Config{HoldSamples: 7}, nil)

	got := d.Config()
	want := Config{IntervalMs: 20, ConfirmSamples: 3, HoldSamples: 7, ReleaseSamples: 2}
	if got != want {
		t.Errorf("Config: got %+v, want %+v", got, want)
	}
}
