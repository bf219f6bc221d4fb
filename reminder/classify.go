package reminder

import (
	"fmt"
	"time"

	"github.com/benjamonnguyen/enfoque"
	"github.com/benjamonnguyen/enfoque/notify"
)

type Status uint8

const (
	_ Status = iota
	Upcoming
	// Due is inside the fire window.
	Due
	// Overdue reminders never notify.
	Overdue
)

func (s Status) String() string {
	switch s {
	case Upcoming:
		return "upcoming"
	case Due:
		return "due"
	case Overdue:
		return "overdue"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for _, st := range []Status{Upcoming, Due, Overdue} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown reminder status %q", b)
}

// Classify places r relative to now. A non-positive window means DefaultWindow.
func Classify(r enfoque.ReminderRecord, now time.Time, window time.Duration) Status {
	if window <= 0 {
		window = DefaultWindow
	}
	return classify(r.RemindAt.Sub(now), window)
}

// classify maps delta = remind_at - now onto (-window, 0] as Due.
func classify(delta, window time.Duration) Status {
	switch {
	case delta > 0:
		return Upcoming
	case delta > -window:
		return Due
	default:
		return Overdue
	}
}

// Humanize is the short relative label shown next to a pending reminder.
func Humanize(r enfoque.ReminderRecord, now time.Time) string {
	delta := r.RemindAt.Sub(now)
	if delta < 0 {
		return "Vencido"
	}
	mins := int(delta / time.Minute)
	switch {
	case mins < 1:
		return "Ahora"
	case mins < 60:
		return fmt.Sprintf("En %dm", mins)
	case mins < 24*60:
		return fmt.Sprintf("En %dh", mins/60)
	default:
		return fmt.Sprintf("En %dd", mins/(24*60))
	}
}

// Notification builds the payload for a due reminder, tagged with its id.
func Notification(r enfoque.ExistingReminderRecord) notify.Notification {
	n := notify.Notification{
		Title: "Recordatorio",
		Body:  "Tienes un recordatorio",
		Tag:   string(r.ID),
	}
	if !r.TaskID.IsEmpty() {
		n.Title = "Recordatorio de Tarea"
		n.Body = r.TaskTitle + " - ¡Es hora de empezar!"
	}
	if msg := r.Message.OrElse(""); msg != "" {
		n.Body = msg
	}
	return n
}
