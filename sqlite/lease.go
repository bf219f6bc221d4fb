package sqlite

import (
	"context"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/benjamonnguyen/enfoque"
)

type leaseRepo struct {
	dbGetter txStdLib.DBGetter
	l        *log.Logger
	clock    clockwork.Clock
}

func NewLeaseRepo(dbGetter txStdLib.DBGetter, logger *log.Logger, clock clockwork.Clock) *leaseRepo {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &leaseRepo{
		dbGetter: dbGetter,
		l:        logger,
		clock:    clock,
	}
}

func (r *leaseRepo) AcquireLease(ctx context.Context, taskID enfoque.TaskID, token string, ttl time.Duration, takeover bool) (enfoque.LeaseRecord, error) {
	if taskID == "" || token == "" {
		return enfoque.LeaseRecord{}, fmt.Errorf("provide required fields 'taskID' and 'token'")
	}
	now := r.clock.Now()
	lease := enfoque.LeaseRecord{
		TaskID:    taskID,
		Token:     token,
		ExpiresAt: now.Add(ttl),
	}

	query := "INSERT INTO session_leases (task_id, token, expires_at) VALUES (?, ?, ?) ON CONFLICT (task_id) DO UPDATE SET token = excluded.token, expires_at = excluded.expires_at"
	args := []any{taskID, token, lease.ExpiresAt.UnixMilli()}
	if !takeover {
		query += " WHERE session_leases.token = excluded.token OR session_leases.expires_at <= ?"
		args = append(args, now.UnixMilli())
	}
	r.l.Debug("acquiring lease", "query", query, "args", args)
	res, err := r.dbGetter(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return enfoque.LeaseRecord{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return enfoque.LeaseRecord{}, err
	}
	if n == 0 {
		return enfoque.LeaseRecord{}, enfoque.ErrLeaseHeld
	}
	return lease, nil
}

func (r *leaseRepo) RenewLease(ctx context.Context, taskID enfoque.TaskID, token string, ttl time.Duration) (enfoque.LeaseRecord, error) {
	lease := enfoque.LeaseRecord{
		TaskID:    taskID,
		Token:     token,
		ExpiresAt: r.clock.Now().Add(ttl),
	}
	query := "UPDATE session_leases SET expires_at = ? WHERE task_id = ? AND token = ?"
	args := []any{lease.ExpiresAt.UnixMilli(), taskID, token}
	r.l.Debug("renewing lease", "query", query, "args", args)
	res, err := r.dbGetter(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return enfoque.LeaseRecord{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return enfoque.LeaseRecord{}, err
	}
	if n == 0 {
		return enfoque.LeaseRecord{}, enfoque.ErrLeaseHeld
	}
	return lease, nil
}

// ReleaseLease drops the lease if token still holds it.
func (r *leaseRepo) ReleaseLease(ctx context.Context, taskID enfoque.TaskID, token string) error {
	query := "DELETE FROM session_leases WHERE task_id = ? AND token = ?"
	r.l.Debug("releasing lease", "query", query, "taskID", taskID)
	_, err := r.dbGetter(ctx).ExecContext(ctx, query, taskID, token)
	return err
}
