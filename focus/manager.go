package focus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thiht/transactor"
	"github.com/benjamonnguyen/enfoque"
	"github.com/benjamonnguyen/enfoque/notify"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	ErrSessionExists = errors.New("session already open for task")
	ErrNoSession     = errors.New("no open session for task")
)

const DefaultLeaseTTL = 30 * time.Second

type OpenOptions struct {
	Mode Mode
	// Takeover steals the lease from another client holding the task's session.
	Takeover bool
}

type ManagerDeps struct {
	Tasks    enfoque.TaskRepo
	Leases   enfoque.LeaseRepo
	Tx       transactor.Transactor
	Notifier notify.Notifier
	Clock    clockwork.Clock
	Logger   *log.Logger
	LeaseTTL time.Duration
}

// Manager owns every open session, keyed by task. Each session holds the task's lease
// for as long as it is open.
type Manager struct {
	tasks    enfoque.TaskRepo
	leases   enfoque.LeaseRepo
	tx       transactor.Transactor
	notifier notify.Notifier
	clock    clockwork.Clock
	l        *log.Logger
	leaseTTL time.Duration

	cache     *sessionCache
	wg        sync.WaitGroup
	parentCtx context.Context

	handlerMu       sync.RWMutex
	onSessionUpdate func(ctx context.Context, before, curr Snapshot)
}

func NewManager(ctx context.Context, deps ManagerDeps) *Manager {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.LeaseTTL <= 0 {
		deps.LeaseTTL = DefaultLeaseTTL
	}
	return &Manager{
		tasks:     deps.Tasks,
		leases:    deps.Leases,
		tx:        deps.Tx,
		notifier:  deps.Notifier,
		clock:     deps.Clock,
		l:         deps.Logger,
		leaseTTL:  deps.LeaseTTL,
		cache:     newSessionCache(),
		parentCtx: ctx,
	}
}

// OnSessionUpdate registers a handler for state changes of every session.
func (m *Manager) OnSessionUpdate(handler func(ctx context.Context, before, curr Snapshot)) {
	m.handlerMu.Lock()
	defer m.handlerMu.Unlock()
	m.onSessionUpdate = handler
}

func (m *Manager) publish(ctx context.Context, before, curr Snapshot) {
	m.handlerMu.RLock()
	handler := m.onSessionUpdate
	m.handlerMu.RUnlock()
	if handler != nil {
		handler(ctx, before, curr)
	}
}

// Open loads the task, acquires its lease and starts the session's countdown loop.
func (m *Manager) Open(ctx context.Context, taskID enfoque.TaskID, opts OpenOptions) (*Session, error) {
	if opts.Mode == 0 {
		opts.Mode = Pomodoro
	}
	if opts.Takeover {
		if e, ok := m.cache.Get(taskID); ok {
			m.revoke(ctx, taskID, e.token)
		}
	}
	if !m.cache.Reserve(taskID) {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, taskID)
	}

	token := uuid.NewString()
	var task enfoque.ExistingTaskRecord
	err := m.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		task, err = m.tasks.GetTask(ctx, taskID)
		if err != nil {
			return fmt.Errorf("get task %s: %w", taskID, err)
		}
		if _, err := m.leases.AcquireLease(ctx, taskID, token, m.leaseTTL, opts.Takeover); err != nil {
			return fmt.Errorf("acquire lease for task %s: %w", taskID, err)
		}
		return nil
	})
	if err != nil {
		m.cache.Remove(taskID)
		return nil, err
	}

	s := NewSession(task, opts.Mode, Deps{
		Tasks:    m.tasks,
		Notifier: m.notifier,
		Clock:    m.clock,
		Logger:   m.l,
	})
	s.OnUpdate(m.publish)
	sessionCtx := m.cache.Fill(m.parentCtx, taskID, s, token)
	m.startLoops(sessionCtx, s, token)

	m.l.Info("opened session", "taskID", taskID, "mode", opts.Mode, "takeover", opts.Takeover)
	return s, nil
}

func (m *Manager) Get(taskID enfoque.TaskID) (*Session, error) {
	e, ok := m.cache.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, taskID)
	}
	return e.session, nil
}

func (m *Manager) Sessions() []*Session {
	return m.cache.Sessions()
}

// Close abandons the session, waits for its queued writes and releases the lease.
func (m *Manager) Close(ctx context.Context, taskID enfoque.TaskID) (Snapshot, error) {
	e, ok := m.cache.Get(taskID)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNoSession, taskID)
	}
	snap := e.session.Close(ctx)
	m.cache.Remove(taskID)

	var errs []error
	if err := e.session.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain session writes: %w", err))
	}
	if err := m.leases.ReleaseLease(ctx, taskID, e.token); err != nil && !errors.Is(err, enfoque.ErrLeaseHeld) {
		errs = append(errs, fmt.Errorf("release lease: %w", err))
	}
	m.l.Info("closed session", "taskID", taskID)
	return snap, errors.Join(errs...)
}

// revoke stops the session holding token after it lost its lease. Nothing is persisted
// and the lease is left alone. A session opened since under a new token is untouched.
func (m *Manager) revoke(ctx context.Context, taskID enfoque.TaskID, token string) {
	e, ok := m.cache.Take(taskID, token)
	if !ok {
		return
	}
	e.session.Revoke(ctx)
	m.l.Warn("session revoked - lease taken over", "taskID", taskID)
}

func (m *Manager) startLoops(ctx context.Context, s *Session, token string) {
	m.wg.Go(func() {
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.l.Error("session loop ended", "taskID", s.TaskID(), "err", err)
		}
	})
	m.wg.Go(func() {
		ticker := m.clock.NewTicker(m.leaseTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if err := m.renew(ctx, s.TaskID(), token); err != nil {
					return
				}
			}
		}
	})
}

func (m *Manager) renew(ctx context.Context, taskID enfoque.TaskID, token string) error {
	_, err := m.leases.RenewLease(ctx, taskID, token, m.leaseTTL)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, enfoque.ErrLeaseHeld):
		m.revoke(ctx, taskID, token)
		return err
	case errors.Is(err, context.Canceled):
		return err
	default:
		m.l.Error("failed to renew lease", "taskID", taskID, "err", err)
		return nil
	}
}

// Shutdown abandons every open session and waits for their loops to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	var errs []error
	for _, s := range m.cache.Sessions() {
		if _, err := m.Close(ctx, s.TaskID()); err != nil && !errors.Is(err, ErrNoSession) {
			errs = append(errs, err)
		}
	}
	m.cache.CancelAll()
	m.wg.Wait()
	return errors.Join(errs...)
}

// Cache

type cacheEntry struct {
	session *Session
	token   string
	cancel  func()
}

type sessionCache struct {
	mu      sync.RWMutex
	entries map[enfoque.TaskID]*cacheEntry
}

func newSessionCache() *sessionCache {
	return &sessionCache{
		entries: make(map[enfoque.TaskID]*cacheEntry),
	}
}

// Reserve claims key for an Open in flight. It fails if the key is taken.
func (c *sessionCache) Reserve(key enfoque.TaskID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		return false
	}
	c.entries[key] = &cacheEntry{}
	return true
}

// Fill completes a reservation and returns the session's cancellable context.
func (c *sessionCache) Fill(ctx context.Context, key enfoque.TaskID, s *Session, token string) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	sessionCtx, cancel := context.WithCancel(ctx)
	c.entries[key] = &cacheEntry{
		session: s,
		token:   token,
		cancel:  cancel,
	}
	return sessionCtx
}

func (c *sessionCache) Get(key enfoque.TaskID) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, exists := c.entries[key]
	if !exists || e.session == nil {
		return cacheEntry{}, false
	}
	return *e, true
}

func (c *sessionCache) Remove(key enfoque.TaskID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, exists := c.entries[key]
	if !exists {
		log.Debug("session not found", "key", key)
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	delete(c.entries, key)
}

// Take removes key only while it still holds token.
func (c *sessionCache) Take(key enfoque.TaskID, token string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, exists := c.entries[key]
	if !exists || e.session == nil || e.token != token {
		return cacheEntry{}, false
	}
	e.cancel()
	delete(c.entries, key)
	return *e, true
}

func (c *sessionCache) Sessions() []*Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sessions := make([]*Session, 0, len(c.entries))
	for _, e := range c.entries {
		if e.session != nil {
			sessions = append(sessions, e.session)
		}
	}
	return sessions
}

func (c *sessionCache) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.cancel != nil {
			e.cancel()
		}
	}
}
