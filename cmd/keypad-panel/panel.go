package main

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"
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

// panelDeps are the outer surfaces the panel drives.
type panelDeps struct {
	Sampler    adc.Sampler
	Display    lcd.Display
	Publisher  mqtt.Publisher        // nil when MQTT is disabled
	MQTTStatus mqtt.ConnectionStatus // nil when MQTT is disabled
	Tracker    *status.Tracker
	Hub        *web.Hub // nil when the status server is off
	Logger     *slog.Logger
	Now        func() time.Time
}

// panel owns the core state machines and forwards their output. All
// methods run on the run loop goroutine.
type panel struct {
	panelDeps

	debouncer *buttons.Debouncer
	engine    *machine.Engine
	stopwatch *app.Stopwatch

	start         time.Time
	heartbeat     time.Duration
	lastHeartbeat time.Time

	pending       []mqtt.Event
	lastElapsed   string
	sampleFailing bool
}

func newPanel(cfg *config.Config, deps panelDeps) (*panel, error) {
	table, err := cfg.ThresholdTable()
	if err != nil {
		return nil, err
	}
	classifier, err := buttons.NewClassifier(table)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	p := &panel{
		panelDeps: deps,
		start:     deps.Now(),
		heartbeat: cfg.Heartbeat(),
	}
	p.lastHeartbeat = p.start

	timers := machine.NewTimers(cfg.Timers.Capacity, func() uint32 { return p.millis(p.Now()) })
	p.engine = machine.NewEngine(timers)
	p.debouncer = buttons.NewDebouncer(classifier, cfg.DebounceConfig(), nil)
	p.stopwatch = app.New(p.engine, p.debouncer, deps.Display, hms.New(), cfg.AppConfig(), deps.Logger)

	p.debouncer.SetHandler(p.handleButton)
	p.engine.OnTransition(p.handleTransition)
	return p, nil
}

// millis is the monotonic millisecond clock of the core. It wraps after
// about 49 days, which the core tolerates.
func (p *panel) millis(t time.Time) uint32 {
	return uint32(t.Sub(p.start).Milliseconds())
}

// handleButton runs inline with Debouncer.Sample.
func (p *panel) handleButton(kind buttons.EventKind, button buttons.Button) {
	p.pending = append(p.pending, mqtt.Event{
		Timestamp: p.Now(),
		Kind:      kind,
		Button:    button,
	})
	p.stopwatch.HandleEvent(kind, button)
}

func (p *panel) handleTransition(from, to machine.StateID) {
	fromName, toName := p.engine.Name(from), p.engine.Name(to)
	p.Logger.Info("state changed", "from", fromName, "to", toName)
	p.broadcast(web.TypeStateChanged, web.StateChangedData{From: fromName, To: toName})
}

func (p *panel) broadcast(msgType string, data any) {
	if p.Hub != nil {
		p.Hub.Broadcast(msgType, p.Now(), data)
	}
}

// startup activates the stopwatch and announces the panel.
func (p *panel) startup() {
	p.stopwatch.Start()
	p.updateStatus()

	snap := p.Tracker.Snapshot()
	p.publishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	})
}

func (p *panel) shutdown(s os.Signal) {
	p.Logger.Info("shutting down", "signal", s)
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	p.updateStatus()
	snap := p.Tracker.Snapshot()
	p.publishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     signalName,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
	})
}

func (p *panel) publishSystem(event mqtt.SystemEvent) {
	if p.Publisher == nil {
		return
	}
	if err := p.Publisher.PublishSystem(event); err != nil {
		p.Logger.Warn("failed to publish system event", "event", event.Event, "error", err)
		return
	}
	p.Logger.Info("published system event", "event", event.Event)
}

// step runs one loop iteration: sample, forward events, tick the engine,
// then refresh the status outputs.
func (p *panel) step() {
	t := p.Now()
	ms := p.millis(t)

	if p.debouncer.Due(ms) {
		p.sample(ms)
	}
	p.flushEvents()

	p.engine.RunTick(ms)

	p.checkHeartbeat(t)
	p.updateStatus()
}

func (p *panel) sample(ms uint32) {
	raw, err := p.Sampler.Read()
	if err != nil {
		// Log once per outage; the loop polls far faster than a human reads.
		if !p.sampleFailing {
			p.Logger.Warn("adc read error", "error", err)
			p.sampleFailing = true
		}
		p.Tracker.SetSample(0, false)
		return
	}
	if p.sampleFailing {
		p.Logger.Info("adc samples resumed", "sample", raw)
		p.sampleFailing = false
	}
	p.Tracker.SetSample(raw, true)
	p.debouncer.Sample(ms, raw)
}

func (p *panel) flushEvents() {
	for _, event := range p.pending {
		p.Logger.Info("button event", "event", event.Kind, "button", event.Button)
		p.Tracker.RecordEvent(event.Kind, event.Button, event.Timestamp)
		if p.Publisher != nil {
			if err := p.Publisher.Publish(event); err != nil {
				p.Logger.Warn("publish error", "error", err)
			}
		}
		p.broadcast(web.TypeButton, web.ButtonData{
			Event:  event.Kind.String(),
			Button: event.Button.String(),
			State:  event.State(),
		})
	}
	p.pending = p.pending[:0]
}

func (p *panel) checkHeartbeat(t time.Time) {
	if p.heartbeat <= 0 || t.Sub(p.lastHeartbeat) < p.heartbeat {
		return
	}
	p.lastHeartbeat = t

	counts := p.debouncer.Counts()
	p.Logger.Info("heartbeat",
		"uptime", t.Sub(p.start).Round(time.Second),
		"press", counts.Press,
		"hold", counts.Hold,
		"release", counts.Release,
	)

	// Refresh network info for heartbeat
	if net := readNetworkInfo(); net != nil {
		p.Tracker.SetNetwork(net)
	}
	p.updateStatus()
	snap := p.Tracker.Snapshot()
	p.publishSystem(mqtt.SystemEvent{
		Timestamp:  t,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	})
}

// updateStatus copies the core state into the tracker for HTTP consumers
// and streams elapsed-time changes.
func (p *panel) updateStatus() {
	state := ""
	if id, ok := p.engine.Active(); ok {
		state = p.engine.Name(id)
	}
	elapsed := p.stopwatch.Clock().String()
	p.Tracker.Update(state, p.debouncer.Pressed(), elapsed, p.debouncer.Counts())
	if p.MQTTStatus != nil {
		p.Tracker.SetMQTTConnected(p.MQTTStatus.IsConnected())
	}

	if elapsed != p.lastElapsed {
		p.lastElapsed = elapsed
		p.broadcast(web.TypeElapsed, web.ElapsedData{Elapsed: elapsed})
	}
}

// runLoop drives the panel from tick until a signal arrives.
func runLoop(p *panel, tick <-chan time.Time, sig <-chan os.Signal) error {
	p.startup()
	for {
		select {
		case s := <-sig:
			p.shutdown(s)
			return nil
		case <-tick:
			p.step()
		}
	}
}
