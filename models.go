package enfoque

import (
	"time"
)

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskDone    TaskStatus = "done"
)

type (
	TaskID     string
	ReminderID string
	UserID     string
)

// Defaults applied to tasks created without timer configuration.
const (
	DefaultPomodoroMinutes   = 25
	DefaultShortBreakMinutes = 5
	DefaultLongBreakMinutes  = 15
	DefaultPomodoroCycles    = 4
	DefaultEstimatedMinutes  = 25
)

type TaskRecord struct {
	UserID UserID
	Title  string
	Status TaskStatus

	//
	Progress       int
	TotalFocusTime int // minutes

	// cronometro
	EstimatedMinutes int

	// pomodoro
	PomodoroDuration   int
	ShortBreakDuration int
	LongBreakDuration  int
	PomodoroCycles     int
	CompletedCycles    int
}

// WithDefaults fills unset timer configuration.
func (t TaskRecord) WithDefaults() TaskRecord {
	if t.Status == "" {
		t.Status = TaskPending
	}
	if t.EstimatedMinutes <= 0 {
		t.EstimatedMinutes = DefaultEstimatedMinutes
	}
	if t.PomodoroDuration <= 0 {
		t.PomodoroDuration = DefaultPomodoroMinutes
	}
	if t.ShortBreakDuration <= 0 {
		t.ShortBreakDuration = DefaultShortBreakMinutes
	}
	if t.LongBreakDuration <= 0 {
		t.LongBreakDuration = DefaultLongBreakMinutes
	}
	if t.PomodoroCycles <= 0 {
		t.PomodoroCycles = DefaultPomodoroCycles
	}
	return t
}

type ExistingTaskRecord struct {
	ExistingRecord[TaskID]
	TaskRecord
}

// TaskPatch carries absolute values for the fields to write. Empty fields are left untouched.
type TaskPatch struct {
	Title              Optional[string]
	Status             Optional[TaskStatus]
	Progress           Optional[int]
	TotalFocusTime     Optional[int]
	EstimatedMinutes   Optional[int]
	PomodoroDuration   Optional[int]
	ShortBreakDuration Optional[int]
	LongBreakDuration  Optional[int]
	PomodoroCycles     Optional[int]
	CompletedCycles    Optional[int]
}

// Apply returns t with the patch applied.
func (p TaskPatch) Apply(t TaskRecord) TaskRecord {
	t.Title = p.Title.OrElse(t.Title)
	t.Status = p.Status.OrElse(t.Status)
	t.Progress = p.Progress.OrElse(t.Progress)
	t.TotalFocusTime = p.TotalFocusTime.OrElse(t.TotalFocusTime)
	t.EstimatedMinutes = p.EstimatedMinutes.OrElse(t.EstimatedMinutes)
	t.PomodoroDuration = p.PomodoroDuration.OrElse(t.PomodoroDuration)
	t.ShortBreakDuration = p.ShortBreakDuration.OrElse(t.ShortBreakDuration)
	t.LongBreakDuration = p.LongBreakDuration.OrElse(t.LongBreakDuration)
	t.PomodoroCycles = p.PomodoroCycles.OrElse(t.PomodoroCycles)
	t.CompletedCycles = p.CompletedCycles.OrElse(t.CompletedCycles)
	return t
}

// Progress is the percentage of completed cycles, floored. Zero cycles yields 0.
func Progress(completedCycles, cycles int) int {
	if cycles <= 0 {
		return 0
	}
	return completedCycles * 100 / cycles
}

type ReminderRecord struct {
	TaskID   Optional[TaskID]
	UserID   UserID
	RemindAt time.Time
	Message  Optional[string]
	Sent     bool

	// TaskTitle is read-only, joined from the task on reads.
	TaskTitle string
}

type ExistingReminderRecord struct {
	ExistingRecord[ReminderID]
	ReminderRecord
}

type LeaseRecord struct {
	TaskID    TaskID
	Token     string
	ExpiresAt time.Time
}
