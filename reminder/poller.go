// Package reminder polls a user's pending reminders and notifies each one once
// when it falls due.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/benjamonnguyen/enfoque"
	"github.com/benjamonnguyen/enfoque/notify"
	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultWindow   = 5 * time.Second
	DefaultInterval = time.Second
	notifyTimeout   = 10 * time.Second
)

type Deps struct {
	Repo     enfoque.ReminderRepo
	Feed     enfoque.ChangeFeed
	Notifier notify.Notifier
	Clock    clockwork.Clock
	Logger   *log.Logger
	// Window is how long after remind_at a reminder may still fire.
	Window   time.Duration
	Interval time.Duration
}

// Poller keeps a user's unsent reminders in memory and fires each one once
// inside its window.
type Poller struct {
	userID   enfoque.UserID
	repo     enfoque.ReminderRepo
	feed     enfoque.ChangeFeed
	notifier notify.Notifier
	clock    clockwork.Clock
	l        *log.Logger
	window   time.Duration
	interval time.Duration

	mu        sync.Mutex
	reminders []enfoque.ExistingReminderRecord
	// fired is process-local. A restart inside a window can fire a reminder again.
	fired   map[enfoque.ReminderID]struct{}
	effects sync.WaitGroup
}

func NewPoller(userID enfoque.UserID, deps Deps) *Poller {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Window <= 0 {
		deps.Window = DefaultWindow
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Poller{
		userID:   userID,
		repo:     deps.Repo,
		feed:     deps.Feed,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		l:        deps.Logger.With("userID", userID),
		window:   deps.Window,
		interval: deps.Interval,
		fired:    make(map[enfoque.ReminderID]struct{}),
	}
}

// Refresh replaces the working set with the user's unsent reminders.
func (p *Poller) Refresh(ctx context.Context) error {
	reminders, err := p.repo.ListPendingReminders(ctx, p.userID)
	if err != nil {
		return fmt.Errorf("list pending reminders: %w", err)
	}
	p.mu.Lock()
	p.reminders = reminders
	// forget fired ids that left the working set
	maps.DeleteFunc(p.fired, func(id enfoque.ReminderID, _ struct{}) bool {
		return !slices.ContainsFunc(reminders, func(r enfoque.ExistingReminderRecord) bool {
			return r.ID == id
		})
	})
	p.mu.Unlock()
	p.l.Debug("refreshed reminders", "count", len(reminders))
	return nil
}

// Poll fires every reminder inside its window that has not fired yet and returns them.
func (p *Poller) Poll(ctx context.Context) []enfoque.ExistingReminderRecord {
	now := p.clock.Now()

	var due []enfoque.ExistingReminderRecord
	p.mu.Lock()
	for _, r := range p.reminders {
		if classify(r.RemindAt.Sub(now), p.window) != Due {
			continue
		}
		if _, ok := p.fired[r.ID]; ok {
			continue
		}
		p.fired[r.ID] = struct{}{}
		due = append(due, r)
	}
	p.mu.Unlock()

	for _, r := range due {
		p.l.Info("reminder due", "reminderID", r.ID, "remindAt", r.RemindAt)
		p.notify(Notification(r))
	}
	return due
}

func (p *Poller) notify(n notify.Notification) {
	if p.notifier == nil {
		return
	}
	p.effects.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := p.notifier.Notify(ctx, n); err != nil {
			p.l.Debug("notification failed", "tag", n.Tag, "err", err)
		}
	})
}

// Run polls every interval until ctx is cancelled, refreshing on each change-feed signal.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Refresh(ctx); err != nil {
		p.l.Error("failed initial reminder refresh", "err", err)
	}

	var changes <-chan struct{}
	if p.feed != nil {
		var unsubscribe func()
		changes, unsubscribe = p.feed.Subscribe(p.userID)
		defer unsubscribe()
	}

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()
	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.effects.Wait()
			return ctx.Err()
		case <-changes:
			if err := p.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.l.Error("failed to refresh reminders", "err", err)
			}
		case <-ticker.Chan():
			p.Poll(ctx)
		}
	}
}

// Create stores a reminder for the poller's user and refreshes the working set.
func (p *Poller) Create(ctx context.Context, r enfoque.ReminderRecord) (enfoque.ExistingReminderRecord, error) {
	r.UserID = p.userID
	created, err := p.repo.InsertReminder(ctx, r)
	if err != nil {
		return enfoque.ExistingReminderRecord{}, fmt.Errorf("insert reminder: %w", err)
	}
	if err := p.Refresh(ctx); err != nil {
		p.l.Error("failed to refresh reminders", "err", err)
	}
	return created, nil
}

// Dismiss marks the reminder sent and drops it from the working set.
// A failed write leaves the reminder in place.
func (p *Poller) Dismiss(ctx context.Context, id enfoque.ReminderID) error {
	if _, err := p.repo.MarkReminderSent(ctx, id); err != nil {
		return fmt.Errorf("mark reminder %s sent: %w", id, err)
	}
	p.mu.Lock()
	p.reminders = slices.DeleteFunc(p.reminders, func(r enfoque.ExistingReminderRecord) bool {
		return r.ID == id
	})
	delete(p.fired, id)
	p.mu.Unlock()

	if err := p.Refresh(ctx); err != nil {
		p.l.Error("failed to refresh reminders", "err", err)
	}
	return nil
}

// Item is a pending reminder with its state relative to now.
type Item struct {
	enfoque.ExistingReminderRecord
	Status Status
	Label  string
}

// Pending returns the working set classified at the current time.
func (p *Poller) Pending() []Item {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]Item, 0, len(p.reminders))
	for _, r := range p.reminders {
		items = append(items, Item{
			ExistingReminderRecord: r,
			Status:                 Classify(r.ReminderRecord, now, p.window),
			Label:                  Humanize(r.ReminderRecord, now),
		})
	}
	return items
}

// Wait blocks until in-flight notifications return.
func (p *Poller) Wait() {
	p.effects.Wait()
}
