package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/benjamonnguyen/enfoque"
)

const (
	SelectAllTasks = "SELECT id, user_id, title, status, progress, total_focus_time, estimated_minutes, pomodoro_duration, short_break_duration, long_break_duration, pomodoro_cycles, completed_cycles, created_at, updated_at FROM tasks"
)

type taskEntity struct {
	ID                 string
	UserID             string
	Title              string
	Status             string
	Progress           int
	TotalFocusTime     int
	EstimatedMinutes   int
	PomodoroDuration   int
	ShortBreakDuration int
	LongBreakDuration  int
	PomodoroCycles     int
	CompletedCycles    int
	CreatedAt          int64
	UpdatedAt          int64
}

type taskRepo struct {
	dbGetter txStdLib.DBGetter
	l        *log.Logger
}

func NewTaskRepo(dbGetter txStdLib.DBGetter, logger *log.Logger) *taskRepo {
	return &taskRepo{
		dbGetter: dbGetter,
		l:        logger,
	}
}

func (r *taskRepo) InsertTask(ctx context.Context, task enfoque.TaskRecord) (enfoque.ExistingTaskRecord, error) {
	if task.UserID == "" || task.Title == "" {
		return enfoque.ExistingTaskRecord{}, fmt.Errorf("provide required fields 'UserID' and 'Title'")
	}

	existingRecord := enfoque.ExistingTaskRecord{
		TaskRecord:     task.WithDefaults(),
		ExistingRecord: enfoque.NewExistingRecord[enfoque.TaskID](uuid.NewString()),
	}
	e := mapToTaskEntity(existingRecord)

	args := []any{
		e.ID,
		e.UserID,
		e.Title,
		e.Status,
		e.Progress,
		e.TotalFocusTime,
		e.EstimatedMinutes,
		e.PomodoroDuration,
		e.ShortBreakDuration,
		e.LongBreakDuration,
		e.PomodoroCycles,
		e.CompletedCycles,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := "INSERT INTO tasks (id, user_id, title, status, progress, total_focus_time, estimated_minutes, pomodoro_duration, short_break_duration, long_break_duration, pomodoro_cycles, completed_cycles, created_at, updated_at) VALUES " + generateParameters(len(args))
	r.l.Debug("creating task", "query", query, "args", args)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return enfoque.ExistingTaskRecord{}, err
	}

	return existingRecord, nil
}

func (r *taskRepo) GetTask(ctx context.Context, id enfoque.TaskID) (enfoque.ExistingTaskRecord, error) {
	if id == "" {
		return enfoque.ExistingTaskRecord{}, fmt.Errorf("provide id")
	}

	row := r.dbGetter(ctx).QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE id=?", SelectAllTasks), id,
	)
	return extractTask(row)
}

func (r *taskRepo) ListTasks(ctx context.Context, userID enfoque.UserID) ([]enfoque.ExistingTaskRecord, error) {
	query := fmt.Sprintf("%s WHERE user_id=? ORDER BY created_at, id", SelectAllTasks)
	r.l.Debug("listing tasks", "query", query, "userID", userID)
	rows, err := r.dbGetter(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint

	var tasks []enfoque.ExistingTaskRecord
	for rows.Next() {
		task, err := extractTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTask writes only the fields set in patch, so concurrent patches of
// different fields do not overwrite each other.
func (r *taskRepo) UpdateTask(ctx context.Context, id enfoque.TaskID, patch enfoque.TaskPatch) (enfoque.ExistingTaskRecord, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}
	if !patch.Title.IsEmpty() {
		set("title", patch.Title.Get())
	}
	if !patch.Status.IsEmpty() {
		set("status", string(patch.Status.Get()))
	}
	if !patch.Progress.IsEmpty() {
		set("progress", min(max(patch.Progress.Get(), 0), 100))
	}
	if !patch.TotalFocusTime.IsEmpty() {
		set("total_focus_time", patch.TotalFocusTime.Get())
	}
	if !patch.EstimatedMinutes.IsEmpty() {
		set("estimated_minutes", patch.EstimatedMinutes.Get())
	}
	if !patch.PomodoroDuration.IsEmpty() {
		set("pomodoro_duration", patch.PomodoroDuration.Get())
	}
	if !patch.ShortBreakDuration.IsEmpty() {
		set("short_break_duration", patch.ShortBreakDuration.Get())
	}
	if !patch.LongBreakDuration.IsEmpty() {
		set("long_break_duration", patch.LongBreakDuration.Get())
	}
	if !patch.PomodoroCycles.IsEmpty() {
		set("pomodoro_cycles", patch.PomodoroCycles.Get())
	}
	if !patch.CompletedCycles.IsEmpty() {
		set("completed_cycles", patch.CompletedCycles.Get())
	}
	if len(sets) == 0 {
		return r.GetTask(ctx, id)
	}
	set("updated_at", time.Now().Unix())
	args = append(args, id)

	query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	r.l.Debug("updating task", "query", query, "args", args)
	res, err := r.dbGetter(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return enfoque.ExistingTaskRecord{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enfoque.ExistingTaskRecord{}, enfoque.ErrNotFound
	}

	return r.GetTask(ctx, id)
}

func (r *taskRepo) DeleteTask(ctx context.Context, id enfoque.TaskID) (enfoque.ExistingTaskRecord, error) {
	existing, err := r.GetTask(ctx, id)
	if err != nil {
		return enfoque.ExistingTaskRecord{}, err
	}

	query := "DELETE FROM tasks WHERE id = ?"
	r.l.Debug("deleting task", "query", query, "id", id)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, id); err != nil {
		return enfoque.ExistingTaskRecord{}, err
	}

	return existing, nil
}

func extractTask(s scannable) (enfoque.ExistingTaskRecord, error) {
	var e taskEntity
	if err := s.Scan(&e.ID, &e.UserID, &e.Title, &e.Status, &e.Progress, &e.TotalFocusTime, &e.EstimatedMinutes, &e.PomodoroDuration, &e.ShortBreakDuration, &e.LongBreakDuration, &e.PomodoroCycles, &e.CompletedCycles, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return enfoque.ExistingTaskRecord{}, mapNotFound(err)
	}

	return mapToExistingTaskRecord(e), nil
}

func mapToTaskEntity(task enfoque.ExistingTaskRecord) taskEntity {
	return taskEntity{
		ID:                 string(task.ID),
		UserID:             string(task.UserID),
		Title:              task.Title,
		Status:             string(task.Status),
		Progress:           task.Progress,
		TotalFocusTime:     task.TotalFocusTime,
		EstimatedMinutes:   task.EstimatedMinutes,
		PomodoroDuration:   task.PomodoroDuration,
		ShortBreakDuration: task.ShortBreakDuration,
		LongBreakDuration:  task.LongBreakDuration,
		PomodoroCycles:     task.PomodoroCycles,
		CompletedCycles:    task.CompletedCycles,
		CreatedAt:          task.CreatedAt.Unix(),
		UpdatedAt:          task.UpdatedAt.Unix(),
	}
}

func mapToExistingTaskRecord(e taskEntity) enfoque.ExistingTaskRecord {
	return enfoque.ExistingTaskRecord{
		ExistingRecord: enfoque.ExistingRecord[enfoque.TaskID]{
			ID:        enfoque.TaskID(e.ID),
			CreatedAt: time.Unix(e.CreatedAt, 0),
			UpdatedAt: time.Unix(e.UpdatedAt, 0),
		},
		TaskRecord: enfoque.TaskRecord{
			UserID:             enfoque.UserID(e.UserID),
			Title:              e.Title,
			Status:             enfoque.TaskStatus(e.Status),
			Progress:           e.Progress,
			TotalFocusTime:     e.TotalFocusTime,
			EstimatedMinutes:   e.EstimatedMinutes,
			PomodoroDuration:   e.PomodoroDuration,
			ShortBreakDuration: e.ShortBreakDuration,
			LongBreakDuration:  e.LongBreakDuration,
			PomodoroCycles:     e.PomodoroCycles,
			CompletedCycles:    e.CompletedCycles,
		},
	}
}
