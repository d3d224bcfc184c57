package app

import (
	"github.com/sweeney/keypad-panel/internal/buttons"
	"github.com/sweeney/keypad-panel/internal/lcd"
	"github.com/sweeney/keypad-panel/internal/machine"
)

type splash struct{ sw *Stopwatch }

func (s *splash) String() string { return "splash" }

func (s *splash) Enter(e *machine.Engine) {
	s.sw.screen(lcd.IconSmiley, "Stopwatch")
	s.sw.print(0, 1, "SELECT to start")
	e.Timers().Countdown(s.sw.cfg.SplashMs, machine.SlotCountdown)
}

func (s *splash) Tick(e *machine.Engine) {
	// Presses during the greeting are dropped.
	s.sw.keys.TakePress()
	if e.Timers().ConsumeFinished() == machine.SlotCountdown {
		e.Advance()
	}
}

func (s *splash) Exit(e *machine.Engine) {}

type ready struct{ sw *Stopwatch }

func (s *ready) String() string { return "ready" }

func (s *ready) Enter(e *machine.Engine) {
	s.sw.clock.Reset()
	s.sw.screen(lcd.IconLocked, "Ready")
	s.sw.drawTime(true)
}

func (s *ready) Tick(e *machine.Engine) {
	if b, ok := s.sw.keys.TakePress(); ok && b == buttons.Select {
		e.ChangeTo(s.sw.Running)
	}
}

func (s *ready) Exit(e *machine.Engine) {}

type running struct{ sw *Stopwatch }

func (s *running) String() string { return "running" }

func (s *running) Enter(e *machine.Engine) {
	s.sw.screen(lcd.IconRightArrow, "Running")
	s.sw.drawTime(true)
	e.Timers().Repeat(TickMs, machine.SlotRepeat)
}

func (s *running) Tick(e *machine.Engine) {
	for slot := e.Timers().ConsumeFinished(); slot != machine.NoSlot; slot = e.Timers().ConsumeFinished() {
		if slot == machine.SlotRepeat {
			s.sw.clock.Inc()
			s.sw.drawTime(false)
		}
	}
	if b, ok := s.sw.keys.TakePress(); ok && b == buttons.Select {
		e.ChangeTo(s.sw.Paused)
	}
}

func (s *running) Exit(e *machine.Engine) {}

type paused struct{ sw *Stopwatch }

func (s *paused) String() string { return "paused" }

func (s *paused) Enter(e *machine.Engine) {
	s.sw.screen(lcd.IconUnlocked, "Paused")
	s.sw.drawTime(true)
	if s.sw.cfg.IdleTimeoutMs > 0 {
		e.Timers().Countdown(s.sw.cfg.IdleTimeoutMs, machine.SlotCountdown)
	}
}

func (s *paused) Tick(e *machine.Engine) {
	if e.Timers().ConsumeFinished() == machine.SlotCountdown {
		s.sw.logger.Info("paused stopwatch idle, returning to ready")
		e.ChangeTo(s.sw.Ready)
		return
	}
	b, ok := s.sw.keys.TakePress()
	if !ok {
		return
	}
	switch b {
	case buttons.Select:
		e.ChangeTo(s.sw.Running)
	case buttons.Left:
		e.ChangeTo(s.sw.Ready)
	}
}

func (s *paused) Exit(e *machine.Engine) {}
