package focus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Thiht/transactor"
	"github.com/benjamonnguyen/enfoque"
)

// mockTaskRepo keeps tasks in memory and records every patch it receives.
type mockTaskRepo struct {
	mu      sync.Mutex
	tasks   map[enfoque.TaskID]enfoque.ExistingTaskRecord
	patches []enfoque.TaskPatch

	updateTaskFunc func(context.Context, enfoque.TaskID, enfoque.TaskPatch) (enfoque.ExistingTaskRecord, error)
}

func newMockTaskRepo(tasks ...enfoque.ExistingTaskRecord) *mockTaskRepo {
	m := &mockTaskRepo{tasks: make(map[enfoque.TaskID]enfoque.ExistingTaskRecord)}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

func (m *mockTaskRepo) InsertTask(ctx context.Context, r enfoque.TaskRecord) (enfoque.ExistingTaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := enfoque.ExistingTaskRecord{
		ExistingRecord: enfoque.NewExistingRecord[enfoque.TaskID](fmt.Sprintf("task-%d", len(m.tasks)+1)),
		TaskRecord:     r.WithDefaults(),
	}
	m.tasks[t.ID] = t
	return t, nil
}

func (m *mockTaskRepo) GetTask(ctx context.Context, id enfoque.TaskID) (enfoque.ExistingTaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return enfoque.ExistingTaskRecord{}, enfoque.ErrNotFound
	}
	return t, nil
}

func (m *mockTaskRepo) ListTasks(ctx context.Context, userID enfoque.UserID) ([]enfoque.ExistingTaskRecord, error) {
	return nil, nil
}

func (m *mockTaskRepo) UpdateTask(ctx context.Context, id enfoque.TaskID, p enfoque.TaskPatch) (enfoque.ExistingTaskRecord, error) {
	if m.updateTaskFunc != nil {
		return m.updateTaskFunc(ctx, id, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patches = append(m.patches, p)
	t, ok := m.tasks[id]
	if !ok {
		return enfoque.ExistingTaskRecord{}, enfoque.ErrNotFound
	}
	t.TaskRecord = p.Apply(t.TaskRecord)
	m.tasks[id] = t
	return t, nil
}

func (m *mockTaskRepo) DeleteTask(ctx context.Context, id enfoque.TaskID) (enfoque.ExistingTaskRecord, error) {
	return enfoque.ExistingTaskRecord{}, nil
}

func (m *mockTaskRepo) task(id enfoque.TaskID) enfoque.TaskRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id].TaskRecord
}

func (m *mockTaskRepo) recorded() []enfoque.TaskPatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]enfoque.TaskPatch(nil), m.patches...)
}

// mockLeaseRepo is a single-process lease table.
type mockLeaseRepo struct {
	mu     sync.Mutex
	tokens map[enfoque.TaskID]string
}

func newMockLeaseRepo() *mockLeaseRepo {
	return &mockLeaseRepo{tokens: make(map[enfoque.TaskID]string)}
}

func (m *mockLeaseRepo) AcquireLease(ctx context.Context, taskID enfoque.TaskID, token string, ttl time.Duration, takeover bool) (enfoque.LeaseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if held, ok := m.tokens[taskID]; ok && held != token && !takeover {
		return enfoque.LeaseRecord{}, enfoque.ErrLeaseHeld
	}
	m.tokens[taskID] = token
	return enfoque.LeaseRecord{TaskID: taskID, Token: token}, nil
}

func (m *mockLeaseRepo) RenewLease(ctx context.Context, taskID enfoque.TaskID, token string, ttl time.Duration) (enfoque.LeaseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens[taskID] != token {
		return enfoque.LeaseRecord{}, enfoque.ErrLeaseHeld
	}
	return enfoque.LeaseRecord{TaskID: taskID, Token: token}, nil
}

func (m *mockLeaseRepo) ReleaseLease(ctx context.Context, taskID enfoque.TaskID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens[taskID] == token {
		delete(m.tokens, taskID)
	}
	return nil
}

func (m *mockLeaseRepo) holder(taskID enfoque.TaskID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[taskID]
}

// mockTransactor is a mock implementation of transactor.Transactor
type mockTransactor struct {
	withinTransactionFunc func(context.Context, func(context.Context) error) error
}

func (m *mockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	if m.withinTransactionFunc != nil {
		return m.withinTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

var (
	_ transactor.Transactor = (*mockTransactor)(nil)
	_ enfoque.TaskRepo      = (*mockTaskRepo)(nil)
	_ enfoque.LeaseRepo     = (*mockLeaseRepo)(nil)
)

func testTask(id string, modify func(*enfoque.TaskRecord)) enfoque.ExistingTaskRecord {
	r := enfoque.TaskRecord{
		UserID: "user-1",
		Title:  "Escribir informe",
	}.WithDefaults()
	if modify != nil {
		modify(&r)
	}
	return enfoque.ExistingTaskRecord{
		ExistingRecord: enfoque.NewExistingRecord[enfoque.TaskID](id),
		TaskRecord:     r,
	}
}
