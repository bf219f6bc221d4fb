package enfoque

import (
	"context"
	"time"
)

type TaskRepo interface {
	InsertTask(context.Context, TaskRecord) (ExistingTaskRecord, error)
	GetTask(context.Context, TaskID) (ExistingTaskRecord, error)
	ListTasks(context.Context, UserID) ([]ExistingTaskRecord, error)
	UpdateTask(context.Context, TaskID, TaskPatch) (ExistingTaskRecord, error)
	DeleteTask(context.Context, TaskID) (ExistingTaskRecord, error)
}

type ReminderRepo interface {
	InsertReminder(context.Context, ReminderRecord) (ExistingReminderRecord, error)
	GetReminder(context.Context, ReminderID) (ExistingReminderRecord, error)
	// ListPendingReminders returns the user's unsent reminders ordered by remind_at.
	ListPendingReminders(context.Context, UserID) ([]ExistingReminderRecord, error)
	MarkReminderSent(context.Context, ReminderID) (ExistingReminderRecord, error)
	DeleteReminder(context.Context, ReminderID) (ExistingReminderRecord, error)
}

type LeaseRepo interface {
	// AcquireLease grants the lease when it is free, expired or already held by token.
	// takeover grants it regardless. Otherwise it fails with ErrLeaseHeld.
	AcquireLease(ctx context.Context, taskID TaskID, token string, ttl time.Duration, takeover bool) (LeaseRecord, error)
	// RenewLease extends a lease held by token, failing with ErrLeaseHeld if it was taken over.
	RenewLease(ctx context.Context, taskID TaskID, token string, ttl time.Duration) (LeaseRecord, error)
	ReleaseLease(ctx context.Context, taskID TaskID, token string) error
}

// ChangeFeed signals changes to a user's reminders.
type ChangeFeed interface {
	// Subscribe returns a channel receiving a value after each change. Signals coalesce.
	Subscribe(UserID) (<-chan struct{}, func())
}
