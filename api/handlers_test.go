package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamonnguyen/enfoque"
	"github.com/benjamonnguyen/enfoque/focus"
	"github.com/benjamonnguyen/enfoque/notify"
	"github.com/benjamonnguyen/enfoque/reminder"
	"github.com/benjamonnguyen/enfoque/sqlite"
)

var ErrMockInternal = errors.New("internal error")

func init() {
	gin.SetMode(gin.TestMode)
}

// MockSessionManager implements SessionManager for testing
type MockSessionManager struct {
	OpenFunc  func(ctx context.Context, taskID enfoque.TaskID, opts focus.OpenOptions) (*focus.Session, error)
	GetFunc   func(taskID enfoque.TaskID) (*focus.Session, error)
	CloseFunc func(ctx context.Context, taskID enfoque.TaskID) (focus.Snapshot, error)
}

func (m *MockSessionManager) Open(ctx context.Context, taskID enfoque.TaskID, opts focus.OpenOptions) (*focus.Session, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, taskID, opts)
	}
	return nil, ErrMockInternal
}

func (m *MockSessionManager) Get(taskID enfoque.TaskID) (*focus.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(taskID)
	}
	return nil, focus.ErrNoSession
}

func (m *MockSessionManager) Close(ctx context.Context, taskID enfoque.TaskID) (focus.Snapshot, error) {
	if m.CloseFunc != nil {
		return m.CloseFunc(ctx, taskID)
	}
	return focus.Snapshot{}, focus.ErrNoSession
}

type testServer struct {
	server    *Server
	tasks     enfoque.TaskRepo
	reminders enfoque.ReminderRepo
	clock     *clockwork.FakeClock
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	return newTestServerWindow(t, 0)
}

func newTestServerWindow(t *testing.T, window time.Duration) testServer {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "enfoque.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	l := log.Default()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	tx, dbGetter := txStdLib.NewTransactor(db, txStdLib.NestedTransactionsSavepoints)
	broker := sqlite.NewBroker()
	tasks := sqlite.NewTaskRepo(dbGetter, l)
	reminders := sqlite.NewReminderRepo(dbGetter, l, broker)
	notifier := notify.Func(func(context.Context, notify.Notification) error { return nil })

	mgr := focus.NewManager(ctx, focus.ManagerDeps{
		Tasks:    tasks,
		Leases:   sqlite.NewLeaseRepo(dbGetter, l, clock),
		Tx:       tx,
		Notifier: notifier,
		Clock:    clock,
		Logger:   l,
	})
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	poller := reminder.NewPoller("user-1", reminder.Deps{
		Repo:     reminders,
		Feed:     broker,
		Notifier: notifier,
		Clock:    clock,
		Logger:   l,
		Window:   window,
	})
	require.NoError(t, poller.Refresh(ctx))

	return testServer{
		server: NewServer(Deps{
			Tasks:     tasks,
			Reminders: reminders,
			Sessions:  mgr,
			Poller:    poller,
			UserID:    "user-1",
			Window:    window,
			Clock:     clock,
			Logger:    l,
		}),
		tasks:     tasks,
		reminders: reminders,
		clock:     clock,
	}
}

func (ts testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts testServer) createTask(t *testing.T, body map[string]any) taskJSON {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/tasks", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[taskJSON](t, w)
}

func TestTasks(t *testing.T) {
	ts := newTestServer(t)

	task := ts.createTask(t, map[string]any{"title": "Escribir informe", "pomodoro_cycles": 2})
	assert.Equal(t, enfoque.UserID("user-1"), task.UserID)
	assert.Equal(t, enfoque.TaskPending, task.Status)
	assert.Equal(t, 25, task.PomodoroDuration)
	assert.Equal(t, 2, task.PomodoroCycles)

	w := ts.do(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]taskJSON](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, task.ID, list[0].ID)

	w = ts.do(t, http.MethodGet, "/tasks?user_id=user-2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]taskJSON](t, w))

	w = ts.do(t, http.MethodGet, "/tasks/"+string(task.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Escribir informe", decode[taskJSON](t, w).Title)

	w = ts.do(t, http.MethodGet, "/tasks/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/tasks", map[string]any{"pomodoro_duration": 25})
	assert.Equal(t, http.StatusBadRequest, w.Code, "title required")

	w = ts.do(t, http.MethodPost, "/tasks", map[string]any{"title": "x", "pomodoro_cycles": 11})
	assert.Equal(t, http.StatusBadRequest, w.Code, "cycles out of range")
}

func TestSessions(t *testing.T) {
	ts := newTestServer(t)
	task := ts.createTask(t, map[string]any{"title": "Escribir informe"})
	path := "/sessions/" + string(task.ID)

	w := ts.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "no session yet")

	w = ts.do(t, http.MethodPost, path, map[string]any{"mode": "pomodoro"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	snap := decode[focus.Snapshot](t, w)
	assert.Equal(t, focus.Work, snap.Type)
	assert.Equal(t, focus.Pomodoro, snap.Mode)
	assert.Equal(t, 1500, snap.TimeLeftSeconds)
	assert.Equal(t, 1, snap.Cycle)

	w = ts.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "already open")

	w = ts.do(t, http.MethodPost, path+"/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[focus.Snapshot](t, w).IsRunning)

	w = ts.do(t, http.MethodPost, path+"/pause", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[focus.Snapshot](t, w).IsRunning)

	w = ts.do(t, http.MethodPost, path+"/switch", map[string]any{"type": "break"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "break is cronometro only")

	w = ts.do(t, http.MethodPost, path+"/switch", map[string]any{"type": "long_break"})
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[focus.Snapshot](t, w)
	assert.Equal(t, focus.LongBreak, snap.Type)
	assert.Equal(t, 900, snap.TimeLeftSeconds)

	w = ts.do(t, http.MethodPut, path+"/settings", map[string]any{"long_break_duration": 90})
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[focus.Snapshot](t, w)
	assert.Equal(t, 60, snap.Settings.LongBreak, "clamped")
	assert.Equal(t, 25, snap.Settings.Pomodoro, "untouched fields kept")
	assert.Equal(t, 3600, snap.TimeLeftSeconds)

	w = ts.do(t, http.MethodPost, path+"/mute", map[string]any{"muted": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[focus.Snapshot](t, w).Muted)

	w = ts.do(t, http.MethodPost, path+"/complete", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "gate closed")

	w = ts.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[focus.Snapshot](t, w).Closed)

	w = ts.do(t, http.MethodPost, path+"/start", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	got, err := ts.tasks.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, got.LongBreakDuration, "settings persisted")
}

func TestSessions_Complete(t *testing.T) {
	ts := newTestServer(t)
	task := ts.createTask(t, map[string]any{"title": "Escribir informe", "pomodoro_cycles": 1})
	path := "/sessions/" + string(task.ID)

	w := ts.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, path+"/skip", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, focus.LongBreak, decode[focus.Snapshot](t, w).Type)

	w = ts.do(t, http.MethodPost, path+"/skip", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[focus.Snapshot](t, w).GateOpen)

	w = ts.do(t, http.MethodPost, path+"/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "gate open")

	w = ts.do(t, http.MethodPost, path+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode[focus.Snapshot](t, w)
	assert.True(t, snap.TaskDone)
	assert.False(t, snap.GateOpen)

	got, err := ts.tasks.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, enfoque.TaskDone, got.Status)
	assert.Equal(t, 100, got.Progress)

	w = ts.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "completed session is closed")

	w = ts.do(t, http.MethodPost, path, map[string]any{"mode": "cronometro"})
	assert.Equal(t, http.StatusCreated, w.Code, "lease was released")
}

func TestSessions_Continue(t *testing.T) {
	ts := newTestServer(t)
	task := ts.createTask(t, map[string]any{"title": "Escribir informe", "pomodoro_cycles": 1})
	path := "/sessions/" + string(task.ID)

	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, path, nil).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, path+"/skip", nil).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, path+"/skip", nil).Code)

	w := ts.do(t, http.MethodPost, path+"/continue", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, path+"/continue", map[string]any{"value": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode[focus.Snapshot](t, w)
	assert.False(t, snap.GateOpen)
	assert.Equal(t, focus.Work, snap.Type)
	assert.Equal(t, 3, snap.Settings.Cycles)
	assert.Equal(t, 0, snap.CompletedCycles)

	w = ts.do(t, http.MethodPost, path+"/continue", map[string]any{"value": 3})
	assert.Equal(t, http.StatusConflict, w.Code, "gate closed again")
}

func TestSessions_OpenErrors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/sessions/missing", map[string]any{"mode": "stopwatch"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessions_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"lease held", enfoque.ErrLeaseHeld, http.StatusConflict},
		{"exists", focus.ErrSessionExists, http.StatusConflict},
		{"not found", enfoque.ErrNotFound, http.StatusNotFound},
		{"internal", ErrMockInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := testServer{server: NewServer(Deps{
				Sessions: &MockSessionManager{
					OpenFunc: func(context.Context, enfoque.TaskID, focus.OpenOptions) (*focus.Session, error) {
						return nil, tt.err
					},
				},
			})}
			w := ts.do(t, http.MethodPost, "/sessions/task-1", map[string]any{"takeover": true})
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestReminders(t *testing.T) {
	ts := newTestServer(t)
	task := ts.createTask(t, map[string]any{"title": "Escribir informe"})
	now := ts.clock.Now()

	w := ts.do(t, http.MethodPost, "/reminders", map[string]any{
		"task_id":   task.ID,
		"remind_at": now.Add(-time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	overdue := decode[reminderJSON](t, w)
	assert.Equal(t, reminder.Overdue, overdue.Status)
	assert.Equal(t, "Vencido", overdue.Label)

	w = ts.do(t, http.MethodPost, "/reminders", map[string]any{
		"remind_at": now.Add(90 * time.Minute),
		"message":   "Llamar a Ana",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/reminders", map[string]any{"message": "sin fecha"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/reminders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[[]reminderJSON](t, w)
	require.Len(t, pending, 2)
	assert.Equal(t, overdue.ID, pending[0].ID)
	assert.Equal(t, "Escribir informe", pending[0].TaskTitle)
	assert.Nil(t, pending[0].Message)
	assert.Equal(t, "En 1h", pending[1].Label)
	require.NotNil(t, pending[1].Message)
	assert.Equal(t, "Llamar a Ana", *pending[1].Message)

	w = ts.do(t, http.MethodPost, "/reminders/"+string(overdue.ID)+"/dismiss", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/reminders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]reminderJSON](t, w), 1)

	w = ts.do(t, http.MethodPost, "/reminders/missing/dismiss", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReminders_OtherUser(t *testing.T) {
	ts := newTestServer(t)
	now := ts.clock.Now()

	w := ts.do(t, http.MethodPost, "/reminders", map[string]any{
		"user_id":   "user-2",
		"remind_at": now.Add(-2 * time.Second),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, enfoque.UserID("user-2"), decode[reminderJSON](t, w).UserID)

	w = ts.do(t, http.MethodGet, "/reminders?user_id=user-2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[[]reminderJSON](t, w)
	require.Len(t, pending, 1)
	assert.Equal(t, reminder.Due, pending[0].Status)

	w = ts.do(t, http.MethodGet, "/reminders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]reminderJSON](t, w), "own user unaffected")
}

func TestReminders_ConfiguredWindow(t *testing.T) {
	ts := newTestServerWindow(t, 10*time.Second)
	now := ts.clock.Now()

	for _, user := range []string{"user-1", "user-2"} {
		w := ts.do(t, http.MethodPost, "/reminders", map[string]any{
			"user_id":   user,
			"remind_at": now.Add(-8 * time.Second),
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, reminder.Due, decode[reminderJSON](t, w).Status, user)

		w = ts.do(t, http.MethodGet, "/reminders?user_id="+user, nil)
		require.Equal(t, http.StatusOK, w.Code)
		pending := decode[[]reminderJSON](t, w)
		require.Len(t, pending, 1)
		assert.Equal(t, reminder.Due, pending[0].Status, "same label from poller and repo for %s", user)
	}
}
