package machine

import "fmt"

// State is one mutually exclusive application state.
// The engine passes itself to every hook so a state can arm timers and
// request transitions.
type State interface {
	// Enter runs when the state becomes active.
	Enter(e *Engine)
	// Tick runs once per loop iteration while the state is active.
	Tick(e *Engine)
	// Exit runs when the state stops being active.
	Exit(e *Engine)
}

// StateID identifies a registered state. IDs follow registration order.
type StateID int

// NoState is the ID reported when no state is active.
const NoState StateID = -1

// TransitionFunc observes completed transitions. from is NoState for the
// first activation.
type TransitionFunc func(from, to StateID)

type node struct {
	state State
	next  StateID
}

// Engine owns the registered states and the active-state handle.
// It never panics on misuse: unknown IDs and calls made before any state is
// registered or active are ignored. Not safe for concurrent use.
type Engine struct {
	timers       *Timers
	nodes        []node
	active       StateID
	onTransition TransitionFunc
}

// NewEngine creates an engine that resets timers on every transition.
func NewEngine(timers *Timers) *Engine {
	return &Engine{
		timers: timers,
		active: NoState,
	}
}

// Register adds a state and returns its ID. States are registered once at
// startup and cannot be removed.
func (e *Engine) Register(s State) StateID {
	e.nodes = append(e.nodes, node{state: s, next: NoState})
	return StateID(len(e.nodes) - 1)
}

// SetNext declares to as the default next state of from, used by Advance.
// Passing NoState clears it.
func (e *Engine) SetNext(from, to StateID) {
	if !e.valid(from) || (to != NoState && !e.valid(to)) {
		return
	}
	e.nodes[from].next = to
}

// OnTransition installs an observer called after every completed ChangeTo.
func (e *Engine) OnTransition(fn TransitionFunc) {
	e.onTransition = fn
}

func (e *Engine) valid(id StateID) bool {
	return id >= 0 && int(id) < len(e.nodes)
}

// ChangeTo makes id the active state. The order is fixed: all timers are
// disarmed, the old state exits, then the new state enters. A state never
// sees a timer armed by another state.
func (e *Engine) ChangeTo(id StateID) {
	if !e.valid(id) {
		return
	}
	e.timers.DisarmAll()

	from := e.active
	if e.valid(from) {
		e.nodes[from].state.Exit(e)
	}
	e.active = id
	e.nodes[id].state.Enter(e)

	if e.onTransition != nil {
		e.onTransition(from, id)
	}
}

// Advance changes to the active state's default next state, if it has one.
func (e *Engine) Advance() {
	if !e.valid(e.active) {
		return
	}
	if next := e.nodes[e.active].next; e.valid(next) {
		e.ChangeTo(next)
	}
}

// RunTick is the per-loop entry point: it ticks the timers, then the active
// state. It does nothing until a state is active.
func (e *Engine) RunTick(nowMs uint32) {
	if !e.valid(e.active) {
		return
	}
	e.timers.Tick(nowMs)
	e.nodes[e.active].state.Tick(e)
}

// Active returns the active state's ID.
func (e *Engine) Active() (StateID, bool) {
	return e.active, e.valid(e.active)
}

// Next returns the default next state of id, or NoState.
func (e *Engine) Next(id StateID) StateID {
	if !e.valid(id) {
		return NoState
	}
	return e.nodes[id].next
}

// Name returns a printable name for id. States implementing fmt.Stringer
// name themselves.
func (e *Engine) Name(id StateID) string {
	if !e.valid(id) {
		return "none"
	}
	if s, ok := e.nodes[id].state.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("state%d", id)
}

// Timers returns the timer array reset by transitions.
func (e *Engine) Timers() *Timers {
	return e.timers
}
