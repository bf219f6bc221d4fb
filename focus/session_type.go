// Package focus implements the Pomodoro and Cronómetro focus-session engine:
// the countdown, the session-type state machine, focus-time accounting and the
// completion gate.
package focus

import "fmt"

type Mode uint8

const (
	_ Mode = iota
	Pomodoro
	Cronometro
)

func (m Mode) String() string {
	switch m {
	case Pomodoro:
		return "pomodoro"
	case Cronometro:
		return "cronometro"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "pomodoro", "":
		return Pomodoro, nil
	case "cronometro":
		return Cronometro, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

type SessionType uint8

const (
	_ SessionType = iota
	Work
	ShortBreak
	LongBreak
	// Break is the fixed-length Cronómetro break.
	Break
)

func (t SessionType) String() string {
	switch t {
	case Work:
		return "work"
	case ShortBreak:
		return "short_break"
	case LongBreak:
		return "long_break"
	case Break:
		return "break"
	default:
		return fmt.Sprintf("SessionType(%d)", uint8(t))
	}
}

func ParseSessionType(s string) (SessionType, error) {
	for _, t := range []SessionType{Work, ShortBreak, LongBreak, Break} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown session type %q", s)
}

// Valid reports whether t belongs to mode m.
func (t SessionType) Valid(m Mode) bool {
	switch m {
	case Pomodoro:
		return t == Work || t == ShortBreak || t == LongBreak
	case Cronometro:
		return t == Work || t == Break
	}
	return false
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (t SessionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *SessionType) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
