package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/benjamonnguyen/enfoque"
)

const (
	SelectAllReminders = "SELECT r.id, r.task_id, r.user_id, r.remind_at, r.message, r.sent, r.created_at, r.updated_at, COALESCE(t.title, '') FROM reminders r LEFT JOIN tasks t ON t.id = r.task_id"
)

type reminderEntity struct {
	ID        string
	TaskID    sql.NullString
	UserID    string
	RemindAt  int64 // unix ms
	Message   sql.NullString
	Sent      bool
	CreatedAt int64
	UpdatedAt int64
	TaskTitle string
}

type reminderRepo struct {
	dbGetter txStdLib.DBGetter
	l        *log.Logger
	broker   *Broker
}

// NewReminderRepo returns a reminder repo publishing every change to broker, if set.
func NewReminderRepo(dbGetter txStdLib.DBGetter, logger *log.Logger, broker *Broker) *reminderRepo {
	return &reminderRepo{
		dbGetter: dbGetter,
		l:        logger,
		broker:   broker,
	}
}

func (r *reminderRepo) publish(userID enfoque.UserID) {
	if r.broker != nil {
		r.broker.Publish(userID)
	}
}

func (r *reminderRepo) InsertReminder(ctx context.Context, reminder enfoque.ReminderRecord) (enfoque.ExistingReminderRecord, error) {
	if reminder.UserID == "" || reminder.RemindAt.IsZero() {
		return enfoque.ExistingReminderRecord{}, fmt.Errorf("provide required fields 'UserID' and 'RemindAt'")
	}

	existingRecord := enfoque.ExistingReminderRecord{
		ReminderRecord: reminder,
		ExistingRecord: enfoque.NewExistingRecord[enfoque.ReminderID](uuid.NewString()),
	}
	e := mapToReminderEntity(existingRecord)

	args := []any{
		e.ID,
		e.TaskID,
		e.UserID,
		e.RemindAt,
		e.Message,
		e.Sent,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := "INSERT INTO reminders (id, task_id, user_id, remind_at, message, sent, created_at, updated_at) VALUES " + generateParameters(len(args))
	r.l.Debug("creating reminder", "query", query, "args", args)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return enfoque.ExistingReminderRecord{}, err
	}
	r.publish(reminder.UserID)

	return r.GetReminder(ctx, existingRecord.ID)
}

func (r *reminderRepo) GetReminder(ctx context.Context, id enfoque.ReminderID) (enfoque.ExistingReminderRecord, error) {
	if id == "" {
		return enfoque.ExistingReminderRecord{}, fmt.Errorf("provide id")
	}

	row := r.dbGetter(ctx).QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE r.id=?", SelectAllReminders), id,
	)
	return extractReminder(row)
}

func (r *reminderRepo) ListPendingReminders(ctx context.Context, userID enfoque.UserID) ([]enfoque.ExistingReminderRecord, error) {
	query := fmt.Sprintf("%s WHERE r.user_id=? AND r.sent=0 ORDER BY r.remind_at ASC, r.id", SelectAllReminders)
	r.l.Debug("listing pending reminders", "query", query, "userID", userID)
	rows, err := r.dbGetter(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint

	var reminders []enfoque.ExistingReminderRecord
	for rows.Next() {
		reminder, err := extractReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reminders, nil
}

func (r *reminderRepo) MarkReminderSent(ctx context.Context, id enfoque.ReminderID) (enfoque.ExistingReminderRecord, error) {
	existing, err := r.GetReminder(ctx, id)
	if err != nil {
		return enfoque.ExistingReminderRecord{}, err
	}

	existing.Sent = true
	existing.UpdatedAt = time.Now()
	query := "UPDATE reminders SET sent = 1, updated_at = ? WHERE id = ?"
	args := []any{existing.UpdatedAt.Unix(), id}
	r.l.Debug("marking reminder sent", "query", query, "args", args)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return enfoque.ExistingReminderRecord{}, err
	}
	r.publish(existing.UserID)

	return existing, nil
}

func (r *reminderRepo) DeleteReminder(ctx context.Context, id enfoque.ReminderID) (enfoque.ExistingReminderRecord, error) {
	existing, err := r.GetReminder(ctx, id)
	if err != nil {
		return enfoque.ExistingReminderRecord{}, err
	}

	query := "DELETE FROM reminders WHERE id = ?"
	r.l.Debug("deleting reminder", "query", query, "id", id)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, id); err != nil {
		return enfoque.ExistingReminderRecord{}, err
	}
	r.publish(existing.UserID)

	return existing, nil
}

func extractReminder(s scannable) (enfoque.ExistingReminderRecord, error) {
	var e reminderEntity
	if err := s.Scan(&e.ID, &e.TaskID, &e.UserID, &e.RemindAt, &e.Message, &e.Sent, &e.CreatedAt, &e.UpdatedAt, &e.TaskTitle); err != nil {
		return enfoque.ExistingReminderRecord{}, mapNotFound(err)
	}

	return mapToExistingReminderRecord(e), nil
}

func mapToReminderEntity(reminder enfoque.ExistingReminderRecord) reminderEntity {
	e := reminderEntity{
		ID:        string(reminder.ID),
		UserID:    string(reminder.UserID),
		RemindAt:  reminder.RemindAt.UnixMilli(),
		Message:   nullString(reminder.Message),
		Sent:      reminder.Sent,
		CreatedAt: reminder.CreatedAt.Unix(),
		UpdatedAt: reminder.UpdatedAt.Unix(),
	}
	if !reminder.TaskID.IsEmpty() {
		e.TaskID = sql.NullString{String: string(reminder.TaskID.Get()), Valid: true}
	}
	return e
}

func mapToExistingReminderRecord(e reminderEntity) enfoque.ExistingReminderRecord {
	record := enfoque.ExistingReminderRecord{
		ExistingRecord: enfoque.ExistingRecord[enfoque.ReminderID]{
			ID:        enfoque.ReminderID(e.ID),
			CreatedAt: time.Unix(e.CreatedAt, 0),
			UpdatedAt: time.Unix(e.UpdatedAt, 0),
		},
		ReminderRecord: enfoque.ReminderRecord{
			UserID:    enfoque.UserID(e.UserID),
			RemindAt:  time.UnixMilli(e.RemindAt),
			Message:   optionalString(e.Message),
			Sent:      e.Sent,
			TaskTitle: e.TaskTitle,
		},
	}
	if e.TaskID.Valid {
		record.TaskID = enfoque.Some(enfoque.TaskID(e.TaskID.String))
	}
	return record
}
