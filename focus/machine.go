package focus

import (
	"fmt"

	"github.com/benjamonnguyen/enfoque"
)

// CronometroBreakMinutes is the fixed Cronómetro break length.
const CronometroBreakMinutes = 5

type Trigger uint8

const (
	_ Trigger = iota
	// Completed is a countdown reaching zero.
	Completed
	// Skipped is a user-forced transition.
	Skipped
)

type Transition struct {
	From, To           SessionType
	IncrementCompleted bool
	AdvanceCycle       bool
	// Terminal marks all Pomodoro cycles complete.
	Terminal bool
	OpenGate bool
}

// next is the transition table. Every (mode, type) pair must be handled.
func next(mode Mode, curr SessionType, cycle, cycles int, trigger Trigger) Transition {
	tr := Transition{From: curr}
	switch mode {
	case Pomodoro:
		switch curr {
		case Work:
			if cycle >= cycles {
				tr.To = LongBreak
			} else {
				tr.To = ShortBreak
			}
			tr.IncrementCompleted = trigger == Completed
		case ShortBreak:
			tr.To = Work
			tr.AdvanceCycle = true
		case LongBreak:
			tr.To = LongBreak
			tr.Terminal = true
			tr.OpenGate = true
		default:
			panic(fmt.Sprintf("unhandled session type %s in mode %s", curr, mode))
		}
	case Cronometro:
		switch curr {
		case Work:
			tr.To = Break
			tr.OpenGate = trigger == Completed
		case Break:
			tr.To = Work
		default:
			panic(fmt.Sprintf("unhandled session type %s in mode %s", curr, mode))
		}
	default:
		panic(fmt.Sprintf("unhandled mode %s", mode))
	}
	return tr
}

// Machine sequences session types and tracks the cycle counters.
type Machine struct {
	mode      Mode
	current   SessionType
	cycle     int
	completed int
	terminal  bool
	settings  Settings
}

// NewMachine starts at work. Pomodoro resumes at cycle completedCycles+1.
func NewMachine(mode Mode, settings Settings, completedCycles int) *Machine {
	settings = ClampSettings(settings)
	completedCycles = min(max(completedCycles, 0), settings.Cycles)
	return &Machine{
		mode:      mode,
		current:   Work,
		cycle:     min(completedCycles+1, settings.Cycles),
		completed: completedCycles,
		settings:  settings,
	}
}

// Advance applies the transition for trigger and returns it.
func (m *Machine) Advance(trigger Trigger) Transition {
	tr := next(m.mode, m.current, m.cycle, m.settings.Cycles, trigger)
	if tr.IncrementCompleted && m.completed < m.settings.Cycles {
		m.completed++
	}
	if tr.AdvanceCycle {
		m.cycle++
	}
	m.terminal = tr.Terminal
	m.current = tr.To
	return tr
}

// Switch jumps to t, keeping the counters.
func (m *Machine) Switch(t SessionType) error {
	if !t.Valid(m.mode) {
		return fmt.Errorf("session type %s not valid in mode %s", t, m.mode)
	}
	m.current = t
	m.terminal = false
	return nil
}

// Restart goes back to cycle 1 / work with no completed cycles.
func (m *Machine) Restart() {
	m.current = Work
	m.cycle = 1
	m.completed = 0
	m.terminal = false
}

// SetSettings stores clamped settings and keeps completed within the cycle target.
func (m *Machine) SetSettings(s Settings) {
	m.settings = ClampSettings(s)
	m.completed = min(m.completed, m.settings.Cycles)
	m.cycle = min(m.cycle, m.settings.Cycles)
}

// Duration is the countdown length in seconds for t.
func (m *Machine) Duration(t SessionType) int {
	switch t {
	case Work:
		if m.mode == Cronometro {
			return m.settings.Estimated * 60
		}
		return m.settings.Pomodoro * 60
	case ShortBreak:
		return m.settings.ShortBreak * 60
	case LongBreak:
		return m.settings.LongBreak * 60
	case Break:
		return CronometroBreakMinutes * 60
	default:
		panic(fmt.Sprintf("unhandled session type %s", t))
	}
}

func (m *Machine) Mode() Mode { return m.mode }

func (m *Machine) Current() SessionType { return m.current }

func (m *Machine) Cycle() int { return m.cycle }

func (m *Machine) CompletedCycles() int { return m.completed }

// Terminal reports all Pomodoro cycles complete.
func (m *Machine) Terminal() bool { return m.terminal }

func (m *Machine) Settings() Settings { return m.settings }

func (m *Machine) CurrentDuration() int { return m.Duration(m.current) }

func (m *Machine) Progress() int { return enfoque.Progress(m.completed, m.settings.Cycles) }
