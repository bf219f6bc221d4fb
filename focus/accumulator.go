package focus

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Accumulator banks whole minutes of elapsed work time, computed from wall-clock
// timestamps rather than countdown ticks.
type Accumulator struct {
	clock clockwork.Clock
	total int
	// watermark is the end of the last banked interval. Time before it is never counted again.
	watermark time.Time
}

func NewAccumulator(clock clockwork.Clock, total int) *Accumulator {
	return &Accumulator{
		clock: clock,
		total: max(total, 0),
	}
}

// Commit banks the whole minutes elapsed since startedAt and returns them with the new total.
// A zero startedAt banks nothing.
func (a *Accumulator) Commit(startedAt time.Time) (minutes, total int) {
	if startedAt.IsZero() {
		return 0, a.total
	}
	from := startedAt
	if from.Before(a.watermark) {
		from = a.watermark
	}
	minutes = int(a.clock.Now().Sub(from) / time.Minute)
	if minutes <= 0 {
		return 0, a.total
	}
	a.total += minutes
	a.watermark = from.Add(time.Duration(minutes) * time.Minute)
	return minutes, a.total
}

// Reset sets the total, used when a Pomodoro run is continued from zero.
func (a *Accumulator) Reset(total int) {
	a.total = max(total, 0)
	a.watermark = a.clock.Now()
}

func (a *Accumulator) Total() int {
	return a.total
}
