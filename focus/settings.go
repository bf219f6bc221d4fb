package focus

import "github.com/benjamonnguyen/enfoque"

// Settings bounds, inclusive.
const (
	MaxPomodoroMinutes   = 60
	MaxShortBreakMinutes = 30
	MaxLongBreakMinutes  = 60
	MaxCycles            = 10
	MaxEstimatedMinutes  = 900
)

// ExtendOptions are the minutes a Cronómetro session can be extended by.
var ExtendOptions = []int{5, 10, 15, 20, 30}

// Settings are durations in minutes plus the Pomodoro cycle target.
type Settings struct {
	Pomodoro   int `json:"pomodoro_duration"`
	ShortBreak int `json:"short_break_duration"`
	LongBreak  int `json:"long_break_duration"`
	Cycles     int `json:"pomodoro_cycles"`
	Estimated  int `json:"estimated_minutes"`
}

func SettingsFromTask(t enfoque.TaskRecord) Settings {
	return Settings{
		Pomodoro:   t.PomodoroDuration,
		ShortBreak: t.ShortBreakDuration,
		LongBreak:  t.LongBreakDuration,
		Cycles:     t.PomodoroCycles,
		Estimated:  t.EstimatedMinutes,
	}
}

// ClampSettings forces every field into its valid range.
func ClampSettings(s Settings) Settings {
	return Settings{
		Pomodoro:   clamp(s.Pomodoro, 1, MaxPomodoroMinutes),
		ShortBreak: clamp(s.ShortBreak, 1, MaxShortBreakMinutes),
		LongBreak:  clamp(s.LongBreak, 1, MaxLongBreakMinutes),
		Cycles:     clamp(s.Cycles, 1, MaxCycles),
		Estimated:  clamp(s.Estimated, 1, MaxEstimatedMinutes),
	}
}

// SnapExtension returns the extend option closest to minutes, preferring the smaller on ties.
func SnapExtension(minutes int) int {
	best := ExtendOptions[0]
	for _, opt := range ExtendOptions[1:] {
		if abs(opt-minutes) < abs(best-minutes) {
			best = opt
		}
	}
	return best
}

func (s Settings) patch(mode Mode) enfoque.TaskPatch {
	if mode == Cronometro {
		return enfoque.TaskPatch{EstimatedMinutes: enfoque.Some(s.Estimated)}
	}
	return enfoque.TaskPatch{
		PomodoroDuration:   enfoque.Some(s.Pomodoro),
		ShortBreakDuration: enfoque.Some(s.ShortBreak),
		LongBreakDuration:  enfoque.Some(s.LongBreak),
		PomodoroCycles:     enfoque.Some(s.Cycles),
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
