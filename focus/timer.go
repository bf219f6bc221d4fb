package focus

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer is a one-second-granularity countdown for a single segment.
// It is not safe for concurrent use; Session serialises access.
type Timer struct {
	clock     clockwork.Clock
	timeLeft  int
	isRunning bool
	startedAt time.Time
}

func NewTimer(clock clockwork.Clock, seconds int) *Timer {
	return &Timer{
		clock:    clock,
		timeLeft: max(seconds, 0),
	}
}

// Start resumes the countdown. startedAt is recorded once per segment.
func (t *Timer) Start() bool {
	if t.isRunning {
		return false
	}
	t.isRunning = true
	if t.startedAt.IsZero() {
		t.startedAt = t.clock.Now()
	}
	return true
}

func (t *Timer) Pause() {
	t.isRunning = false
}

// Tick advances the countdown by one second and reports whether it just reached zero.
func (t *Timer) Tick() bool {
	if !t.isRunning {
		return false
	}
	if t.timeLeft <= 1 {
		t.timeLeft = 0
		t.isRunning = false
		return true
	}
	t.timeLeft--
	return false
}

// Reset loads a new stopped countdown. startedAt is kept; see ClearStartedAt.
func (t *Timer) Reset(seconds int) {
	t.timeLeft = max(seconds, 0)
	t.isRunning = false
}

// SetTimeLeft replaces the remaining time without touching the running state.
func (t *Timer) SetTimeLeft(seconds int) {
	t.timeLeft = max(seconds, 0)
}

func (t *Timer) ClearStartedAt() {
	t.startedAt = time.Time{}
}

func (t *Timer) TimeLeft() int {
	return t.timeLeft
}

func (t *Timer) IsRunning() bool {
	return t.isRunning
}

// StartedAt is zero when the segment has not been started.
func (t *Timer) StartedAt() time.Time {
	return t.startedAt
}
