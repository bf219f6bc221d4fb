package reminder

import (
	"testing"
	"time"

	"github.com/benjamonnguyen/enfoque"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		offset time.Duration
		want   Status
	}{
		{time.Minute, Upcoming},
		{time.Millisecond, Upcoming},
		{0, Due},
		{-4999 * time.Millisecond, Due},
		{-5 * time.Second, Overdue},
		{-time.Hour, Overdue},
	}
	for _, tt := range tests {
		r := enfoque.ReminderRecord{RemindAt: now.Add(tt.offset)}
		assert.Equal(t, tt.want, Classify(r, now, 0), "offset %s", tt.offset)
	}

	r := enfoque.ReminderRecord{RemindAt: now.Add(-8 * time.Second)}
	assert.Equal(t, Overdue, Classify(r, now, DefaultWindow))
	assert.Equal(t, Due, Classify(r, now, 10*time.Second))
}

func TestHumanize(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		offset time.Duration
		want   string
	}{
		{-time.Second, "Vencido"},
		{0, "Ahora"},
		{59 * time.Second, "Ahora"},
		{90 * time.Second, "En 1m"},
		{59 * time.Minute, "En 59m"},
		{2*time.Hour + 30*time.Minute, "En 2h"},
		{50 * time.Hour, "En 2d"},
	}
	for _, tt := range tests {
		r := enfoque.ReminderRecord{RemindAt: now.Add(tt.offset)}
		assert.Equal(t, tt.want, Humanize(r, now), "offset %s", tt.offset)
	}
}

func TestNotification(t *testing.T) {
	standalone := enfoque.ExistingReminderRecord{
		ExistingRecord: enfoque.NewExistingRecord[enfoque.ReminderID]("r1"),
	}
	n := Notification(standalone)
	assert.Equal(t, "Recordatorio", n.Title)
	assert.Equal(t, "Tienes un recordatorio", n.Body)
	assert.Equal(t, "r1", n.Tag)

	task := standalone
	task.TaskID = enfoque.Some[enfoque.TaskID]("t1")
	task.TaskTitle = "Leer capítulo 3"
	n = Notification(task)
	assert.Equal(t, "Recordatorio de Tarea", n.Title)
	assert.Equal(t, "Leer capítulo 3 - ¡Es hora de empezar!", n.Body)

	task.Message = enfoque.Some("Empieza ya")
	assert.Equal(t, "Empieza ya", Notification(task).Body)

	task.Message = enfoque.Some("")
	assert.Equal(t, "Leer capítulo 3 - ¡Es hora de empezar!", Notification(task).Body)
}
