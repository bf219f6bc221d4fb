package api

import (
	"time"

	"github.com/benjamonnguyen/enfoque"
	"github.com/benjamonnguyen/enfoque/focus"
	"github.com/benjamonnguyen/enfoque/reminder"
)

type taskJSON struct {
	ID                 enfoque.TaskID     `json:"id"`
	UserID             enfoque.UserID     `json:"user_id"`
	Title              string             `json:"title"`
	Status             enfoque.TaskStatus `json:"status"`
	Progress           int                `json:"progress"`
	TotalFocusTime     int                `json:"total_focus_time"`
	EstimatedMinutes   int                `json:"estimated_minutes"`
	PomodoroDuration   int                `json:"pomodoro_duration"`
	ShortBreakDuration int                `json:"short_break_duration"`
	LongBreakDuration  int                `json:"long_break_duration"`
	PomodoroCycles     int                `json:"pomodoro_cycles"`
	CompletedCycles    int                `json:"completed_cycles"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func toTaskJSON(t enfoque.ExistingTaskRecord) taskJSON {
	return taskJSON{
		ID:                 t.ID,
		UserID:             t.UserID,
		Title:              t.Title,
		Status:             t.Status,
		Progress:           t.Progress,
		TotalFocusTime:     t.TotalFocusTime,
		EstimatedMinutes:   t.EstimatedMinutes,
		PomodoroDuration:   t.PomodoroDuration,
		ShortBreakDuration: t.ShortBreakDuration,
		LongBreakDuration:  t.LongBreakDuration,
		PomodoroCycles:     t.PomodoroCycles,
		CompletedCycles:    t.CompletedCycles,
		CreatedAt:          t.CreatedAt.UTC(),
		UpdatedAt:          t.UpdatedAt.UTC(),
	}
}

type createTaskRequest struct {
	UserID             enfoque.UserID `json:"user_id"`
	Title              string         `json:"title" binding:"required"`
	EstimatedMinutes   int            `json:"estimated_minutes" binding:"gte=0,lte=900"`
	PomodoroDuration   int            `json:"pomodoro_duration" binding:"gte=0,lte=60"`
	ShortBreakDuration int            `json:"short_break_duration" binding:"gte=0,lte=30"`
	LongBreakDuration  int            `json:"long_break_duration" binding:"gte=0,lte=60"`
	PomodoroCycles     int            `json:"pomodoro_cycles" binding:"gte=0,lte=10"`
}

func (r createTaskRequest) record() enfoque.TaskRecord {
	return enfoque.TaskRecord{
		UserID:             r.UserID,
		Title:              r.Title,
		EstimatedMinutes:   r.EstimatedMinutes,
		PomodoroDuration:   r.PomodoroDuration,
		ShortBreakDuration: r.ShortBreakDuration,
		LongBreakDuration:  r.LongBreakDuration,
		PomodoroCycles:     r.PomodoroCycles,
	}
}

type openSessionRequest struct {
	Mode     string `json:"mode"`
	Takeover bool   `json:"takeover"`
}

type switchRequest struct {
	Type string `json:"type" binding:"required"`
}

type muteRequest struct {
	Muted bool `json:"muted"`
}

type continueRequest struct {
	Value int `json:"value" binding:"required"`
}

// settingsRequest fields left out keep their current value. Values are clamped, never rejected.
type settingsRequest struct {
	Pomodoro   *int `json:"pomodoro_duration"`
	ShortBreak *int `json:"short_break_duration"`
	LongBreak  *int `json:"long_break_duration"`
	Cycles     *int `json:"pomodoro_cycles"`
	Estimated  *int `json:"estimated_minutes"`
}

func (r settingsRequest) apply(s focus.Settings) focus.Settings {
	for _, f := range []struct {
		src *int
		dst *int
	}{
		{r.Pomodoro, &s.Pomodoro},
		{r.ShortBreak, &s.ShortBreak},
		{r.LongBreak, &s.LongBreak},
		{r.Cycles, &s.Cycles},
		{r.Estimated, &s.Estimated},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	return s
}

type reminderJSON struct {
	ID        enfoque.ReminderID `json:"id"`
	TaskID    *enfoque.TaskID    `json:"task_id"`
	UserID    enfoque.UserID     `json:"user_id"`
	RemindAt  time.Time          `json:"remind_at"`
	Message   *string            `json:"message"`
	Sent      bool               `json:"sent"`
	TaskTitle string             `json:"task_title,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	Status    reminder.Status    `json:"status"`
	Label     string             `json:"label"`
}

func toReminderJSON(item reminder.Item) reminderJSON {
	res := reminderJSON{
		ID:        item.ID,
		UserID:    item.UserID,
		RemindAt:  item.RemindAt.UTC(),
		Sent:      item.Sent,
		TaskTitle: item.TaskTitle,
		CreatedAt: item.CreatedAt.UTC(),
		Status:    item.Status,
		Label:     item.Label,
	}
	if !item.TaskID.IsEmpty() {
		id := item.TaskID.Get()
		res.TaskID = &id
	}
	if !item.Message.IsEmpty() {
		msg := item.Message.Get()
		res.Message = &msg
	}
	return res
}

type createReminderRequest struct {
	UserID   enfoque.UserID `json:"user_id"`
	TaskID   string         `json:"task_id"`
	RemindAt time.Time      `json:"remind_at"`
	Message  string         `json:"message"`
}

func (r createReminderRequest) record() enfoque.ReminderRecord {
	record := enfoque.ReminderRecord{
		UserID:   r.UserID,
		RemindAt: r.RemindAt,
	}
	if r.TaskID != "" {
		record.TaskID = enfoque.Some(enfoque.TaskID(r.TaskID))
	}
	if r.Message != "" {
		record.Message = enfoque.Some(r.Message)
	}
	return record
}
