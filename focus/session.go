package focus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benjamonnguyen/enfoque"
	"github.com/benjamonnguyen/enfoque/notify"
	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrGateOpen      = errors.New("all cycles complete - complete or continue the task")
)

type Deps struct {
	Tasks    taskUpdater
	Notifier notify.Notifier
	Clock    clockwork.Clock
	Logger   *log.Logger
}

// Snapshot is an immutable view of a session.
type Snapshot struct {
	TaskID          enfoque.TaskID `json:"task_id"`
	Title           string         `json:"title"`
	Mode            Mode           `json:"mode"`
	Type            SessionType    `json:"type"`
	DurationSeconds int            `json:"duration_seconds"`
	TimeLeftSeconds int            `json:"time_left_seconds"`
	IsRunning       bool           `json:"is_running"`
	StartedAt       *time.Time     `json:"started_at"`
	Cycle           int            `json:"cycle"`
	CompletedCycles int            `json:"completed_cycles"`
	Progress        int            `json:"progress"`
	TotalFocusTime  int            `json:"total_focus_time"`
	Settings        Settings       `json:"settings"`
	GateOpen        bool           `json:"gate_open"`
	Muted           bool           `json:"muted"`
	TaskDone        bool           `json:"task_done"`
	Closed          bool           `json:"closed"`
}

// Equal compares snapshots by value, including StartedAt.
func (snap Snapshot) Equal(other Snapshot) bool {
	a, b := snap.StartedAt, other.StartedAt
	if (a == nil) != (b == nil) || (a != nil && !a.Equal(*b)) {
		return false
	}
	snap.StartedAt, other.StartedAt = nil, nil
	return snap == other
}

// Session is one task's timer view: countdown, state machine, accumulator and gate.
// All mutation is serialised; persistence is queued and never blocks the countdown.
type Session struct {
	mu       sync.Mutex
	taskID   enfoque.TaskID
	title    string
	timer    *Timer
	machine  *Machine
	acc      *Accumulator
	gate     Gate
	muted    bool
	taskDone bool
	closed   bool
	closedCh chan struct{}

	//
	tasks    taskUpdater
	w        *writer
	notifier notify.Notifier
	clock    clockwork.Clock
	l        *log.Logger
	effects  sync.WaitGroup

	onUpdate func(ctx context.Context, before, curr Snapshot)
}

func NewSession(task enfoque.ExistingTaskRecord, mode Mode, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	l := deps.Logger.With("taskID", task.ID, "mode", mode)
	machine := NewMachine(mode, SettingsFromTask(task.TaskRecord), task.CompletedCycles)
	return &Session{
		taskID:   task.ID,
		title:    task.Title,
		timer:    NewTimer(deps.Clock, machine.CurrentDuration()),
		machine:  machine,
		acc:      NewAccumulator(deps.Clock, task.TotalFocusTime),
		closedCh: make(chan struct{}),
		tasks:    deps.Tasks,
		w:        newWriter(deps.Tasks, task.ID, l),
		notifier: deps.Notifier,
		clock:    deps.Clock,
		l:        l,
	}
}

// OnUpdate registers a handler called after every state change, outside the session lock.
func (s *Session) OnUpdate(handler func(ctx context.Context, before, curr Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = handler
}

func (s *Session) TaskID() enfoque.TaskID {
	return s.taskID
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		TaskID:          s.taskID,
		Title:           s.title,
		Mode:            s.machine.Mode(),
		Type:            s.machine.Current(),
		DurationSeconds: s.machine.CurrentDuration(),
		TimeLeftSeconds: s.timer.TimeLeft(),
		IsRunning:       s.timer.IsRunning(),
		Cycle:           s.machine.Cycle(),
		CompletedCycles: s.machine.CompletedCycles(),
		Progress:        s.machine.Progress(),
		TotalFocusTime:  s.acc.Total(),
		Settings:        s.machine.Settings(),
		GateOpen:        s.gate.IsOpen(),
		Muted:           s.muted,
		TaskDone:        s.taskDone,
		Closed:          s.closed,
	}
	if startedAt := s.timer.StartedAt(); !startedAt.IsZero() {
		snap.StartedAt = &startedAt
	}
	return snap
}

// mutate runs fn under the lock and publishes the change.
func (s *Session) mutate(ctx context.Context, fn func() error) (Snapshot, error) {
	s.mu.Lock()
	before := s.snapshotLocked()
	err := fn()
	curr := s.snapshotLocked()
	handler := s.onUpdate
	s.mu.Unlock()

	if err == nil && handler != nil && !before.Equal(curr) {
		handler(ctx, before, curr)
	}
	return curr, err
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) checkActiveLocked() error {
	if s.closed || s.taskDone {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) Start(ctx context.Context) (Snapshot, error) {
	return s.mutate(ctx, func() error {
		if err := s.checkActiveLocked(); err != nil {
			return err
		}
		if s.machine.Terminal() {
			return ErrGateOpen
		}
		s.timer.Start()
		return nil
	})
}

func (s *Session) Pause(ctx context.Context) (Snapshot, error) {
	return s.mutate(ctx, func() error {
		if err := s.checkActiveLocked(); err != nil {
			return err
		}
		s.timer.Pause()
		return nil
	})
}

// Tick advances the countdown one second. It is a no-op unless running.
func (s *Session) Tick(ctx context.Context) Snapshot {
	snap, _ := s.mutate(ctx, func() error {
		if s.closed || !s.timer.Tick() {
			return nil
		}
		completedType := s.machine.Current()
		if completedType == Work {
			s.flushWorkLocked()
		}
		s.applyLocked(s.machine.Advance(Completed))
		if !s.muted {
			s.cueLocked(completedType)
		}
		return nil
	})
	return snap
}

// Skip forces the transition natural completion would take, banking partial work time first.
func (s *Session) Skip(ctx context.Context) (Snapshot, error) {
	return s.mutate(ctx, func() error {
		if err := s.checkActiveLocked(); err != nil {
			return err
		}
		if s.machine.Current() == Work {
			s.flushWorkLocked()
		}
		s.applyLocked(s.machine.Advance(Skipped))
		return nil
	})
}

// Switch jumps to session type t, loading its duration stopped.
func (s *Session) Switch(ctx context.Context, t SessionType) (Snapshot, error) {
	return s.mutate(ctx, func() error {
		if err := s.checkActiveLocked(); err != nil {
			return err
		}
		if !t.Valid(s.machine.Mode()) {
			return fmt.Errorf("session type %s not valid in mode %s", t, s.machine.Mode())
		}
		if s.machine.Current() == Work {
			s.flushWorkLocked()
		}
		if err := s.machine.Switch(t); err != nil {
			return err
		}
		s.loadSegmentLocked()
		return nil
	})
}

// UpdateSettings clamps and applies settings. Only a change to the active type's
// duration replaces the remaining time.
func (s *Session) UpdateSettings(ctx context.Context, settings Settings) (Snapshot, error) {
	return s.mutate(ctx, func() error {
		if err := s.checkActiveLocked(); err != nil {
			return err
		}
		mode := s.machine.Mode()
		if mode == Cronometro {
			// pomodoro fields are not editable from a cronometro view
			curr := s.machine.Settings()
			curr.Estimated = settings.Estimated
			settings = curr
		} else {
			settings.Estimated = s.machine.Settings().Estimated
		}

		completedBefore := s.machine.CompletedCycles()
		durationBefore := s.machine.CurrentDuration()
		s.machine.SetSettings(settings)
		if d := s.machine.CurrentDuration(); d != durationBefore {
			s.timer.SetTimeLeft(d)
		}

		patch := s.machine.Settings().patch(mode)
		if s.machine.CompletedCycles() != completedBefore {
			patch.CompletedCycles = enfoque.Some(s.machine.CompletedCycles())
		}
		if mode == Pomodoro {
			patch.Progress = enfoque.Some(s.machine.Progress())
		}
		s.w.enqueue("settings", patch)
		return nil
	})
}

func (s *Session) SetMuted(ctx context.Context, muted bool) Snapshot {
	snap, _ := s.mutate(ctx, func() error {
		s.muted = muted
		return nil
	})
	return snap
}

// Complete marks the task done from the completion gate and stops the session.
func (s *Session) Complete(ctx context.Context) (Snapshot, error) {
	if err := s.checkOpen(); err != nil {
		return s.Snapshot(), err
	}
	release, err := s.gate.acquire()
	if err != nil {
		return s.Snapshot(), err
	}
	if err := s.w.wait(ctx); err != nil {
		release(false)
		return s.Snapshot(), err
	}
	if _, err := s.tasks.UpdateTask(ctx, s.taskID, enfoque.TaskPatch{
		Status:   enfoque.Some(enfoque.TaskDone),
		Progress: enfoque.Some(100),
	}); err != nil {
		release(false)
		return s.Snapshot(), fmt.Errorf("complete task: %w", err)
	}
	release(true)

	return s.mutate(ctx, func() error {
		s.timer.Pause()
		s.taskDone = true
		return nil
	})
}

// Continue resumes work from the completion gate. Pomodoro restarts a run of value
// cycles from zero; Cronómetro extends by value minutes, snapped to ExtendOptions.
func (s *Session) Continue(ctx context.Context, value int) (Snapshot, error) {
	if err := s.checkOpen(); err != nil {
		return s.Snapshot(), err
	}
	release, err := s.gate.acquire()
	if err != nil {
		return s.Snapshot(), err
	}
	if err := s.w.wait(ctx); err != nil {
		release(false)
		return s.Snapshot(), err
	}

	s.mu.Lock()
	mode := s.machine.Mode()
	settings := s.machine.Settings()
	s.mu.Unlock()

	var patch enfoque.TaskPatch
	switch mode {
	case Pomodoro:
		settings.Cycles = clamp(value, 1, MaxCycles)
		patch = enfoque.TaskPatch{
			PomodoroCycles:  enfoque.Some(settings.Cycles),
			CompletedCycles: enfoque.Some(0),
			TotalFocusTime:  enfoque.Some(0),
			Progress:        enfoque.Some(0),
		}
	case Cronometro:
		settings.Estimated = SnapExtension(value)
		patch = enfoque.TaskPatch{EstimatedMinutes: enfoque.Some(settings.Estimated)}
	default:
		panic(fmt.Sprintf("unhandled mode %s", mode))
	}
	if _, err := s.tasks.UpdateTask(ctx, s.taskID, patch); err != nil {
		release(false)
		return s.Snapshot(), fmt.Errorf("continue task: %w", err)
	}
	release(true)

	return s.mutate(ctx, func() error {
		s.machine.SetSettings(settings)
		if mode == Pomodoro {
			s.machine.Restart()
			s.acc.Reset(0)
		} else if err := s.machine.Switch(Work); err != nil {
			return err
		}
		s.loadSegmentLocked()
		return nil
	})
}

// Run ticks once per second until ctx is cancelled or the session closes.
func (s *Session) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closedCh:
			return nil
		case <-ticker.Chan():
			s.Tick(ctx)
		}
	}
}

// Close abandons the session: the countdown stops and, for an unfinished Pomodoro
// run, completed cycles and progress are queued for persistence. Focus time is not
// flushed here; it is only banked at segment boundaries.
func (s *Session) Close(ctx context.Context) Snapshot {
	return s.close(ctx, true)
}

// Revoke stops the session without persisting anything, used when another client
// took over the session lease.
func (s *Session) Revoke(ctx context.Context) Snapshot {
	return s.close(ctx, false)
}

func (s *Session) close(ctx context.Context, flush bool) Snapshot {
	snap, _ := s.mutate(ctx, func() error {
		if s.closed {
			return nil
		}
		s.closed = true
		close(s.closedCh)
		s.timer.Pause()
		if flush && !s.taskDone && s.machine.Mode() == Pomodoro {
			s.w.enqueue("progress on abandon", enfoque.TaskPatch{
				CompletedCycles: enfoque.Some(s.machine.CompletedCycles()),
				Progress:        enfoque.Some(s.machine.Progress()),
			})
		}
		s.w.close()
		return nil
	})
	return snap
}

// Wait blocks until queued writes and notification side effects finish.
func (s *Session) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.effects.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.w.wait(ctx)
}

// flushWorkLocked banks elapsed work time and ends the segment's accounting.
func (s *Session) flushWorkLocked() {
	minutes, total := s.acc.Commit(s.timer.StartedAt())
	s.timer.ClearStartedAt()
	if minutes > 0 {
		s.w.enqueue("focus time", enfoque.TaskPatch{TotalFocusTime: enfoque.Some(total)})
	}
}

func (s *Session) applyLocked(tr Transition) {
	if tr.Terminal {
		s.timer.Reset(0)
		s.timer.ClearStartedAt()
	} else {
		s.loadSegmentLocked()
	}
	if tr.OpenGate && s.gate.Open() {
		s.l.Debug("completion gate opened", "from", tr.From)
	}
}

func (s *Session) loadSegmentLocked() {
	s.timer.Reset(s.machine.CurrentDuration())
	s.timer.ClearStartedAt()
}

func (s *Session) cueLocked(completed SessionType) {
	if s.notifier == nil {
		return
	}
	n := notify.Notification{
		Title: s.title,
		Body:  cueBody(completed, s.machine.Terminal()),
		Tag:   string(s.taskID),
	}
	s.effects.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.l.Debug("notification failed", "err", err)
		}
	})
}

func cueBody(completed SessionType, terminal bool) string {
	switch {
	case terminal:
		return "¡Completaste todos los ciclos!"
	case completed == Work:
		return "¡Sesión de enfoque completada!"
	default:
		return "Descanso terminado"
	}
}
