// Package app is the stopwatch shown on the keypad panel. It registers its
// states on a machine.Engine and drives them from debounced key presses.
package app

import (
	"log/slog"

	"github.com/sweeney/keypad-panel/internal/buttons"
	"github.com/sweeney/keypad-panel/internal/hms"
	"github.com/sweeney/keypad-panel/internal/lcd"
	"github.com/sweeney/keypad-panel/internal/machine"
)

// TickMs is the stopwatch resolution.
const TickMs = 1000

// Config holds stopwatch timing.
type Config struct {
	// SplashMs is how long the greeting stays on screen.
	SplashMs uint32
	// IdleTimeoutMs returns a paused stopwatch to ready. 0 disables it.
	IdleTimeoutMs uint32
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		SplashMs:      2000,
		IdleTimeoutMs: 60000,
	}
}

// Keys is the latched press source, normally a *buttons.Debouncer.
type Keys interface {
	TakePress() (buttons.Button, bool)
}

// Stopwatch owns the display and the elapsed-time clock. The exported IDs
// are the engine IDs of its states.
type Stopwatch struct {
	engine  *machine.Engine
	keys    Keys
	display lcd.Display
	clock   *hms.Clock
	cfg     Config
	logger  *slog.Logger

	Splash  machine.StateID
	Ready   machine.StateID
	Running machine.StateID
	Paused  machine.StateID
}

// New registers the stopwatch states on engine. Splash advances to Ready.
// Call Start to activate the splash screen.
func New(engine *machine.Engine, keys Keys, display lcd.Display, clock *hms.Clock, cfg Config, logger *slog.Logger) *Stopwatch {
	sw := &Stopwatch{
		engine:  engine,
		keys:    keys,
		display: display,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
	sw.Splash = engine.Register(&splash{sw})
	sw.Ready = engine.Register(&ready{sw})
	sw.Running = engine.Register(&running{sw})
	sw.Paused = engine.Register(&paused{sw})
	engine.SetNext(sw.Splash, sw.Ready)
	return sw
}

// Start enters the splash state.
func (sw *Stopwatch) Start() {
	sw.engine.ChangeTo(sw.Splash)
}

// Clock returns the elapsed-time clock.
func (sw *Stopwatch) Clock() *hms.Clock {
	return sw.clock
}

// HandleEvent receives every debouncer event. Holding LEFT while running
// restarts the count without leaving the state.
func (sw *Stopwatch) HandleEvent(kind buttons.EventKind, button buttons.Button) {
	if kind != buttons.Hold || button != buttons.Left {
		return
	}
	if id, ok := sw.engine.Active(); !ok || id != sw.Running {
		return
	}
	sw.logger.Info("stopwatch reset while running")
	sw.clock.Reset()
	sw.drawTime(false)
}

// screen clears the display and draws a title line.
func (sw *Stopwatch) screen(icon byte, title string) {
	if err := sw.display.Clear(); err != nil {
		sw.logger.Warn("lcd clear failed", "error", err)
		return
	}
	sw.print(0, 0, lcd.Char(icon)+" "+title)
}

// drawTime writes the elapsed time on the second row. Unless full is set,
// the hours/minutes field is only rewritten when it changed.
func (sw *Stopwatch) drawTime(full bool) {
	if sw.clock.TakeHMChanged() || full {
		sw.print(0, 1, sw.clock.HM()+" ")
	}
	sw.print(8, 1, sw.clock.S())
}

func (sw *Stopwatch) print(col, row int, s string) {
	if err := lcd.PrintAt(sw.display, col, row, s); err != nil {
		sw.logger.Warn("lcd write failed", "col", col, "row", row, "error", err)
	}
}
