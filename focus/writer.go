package focus

import (
	"context"
	"sync"
	"time"

	"github.com/benjamonnguyen/enfoque"
	"github.com/charmbracelet/log"
)

const (
	writeQueueSize = 64
	writeTimeout   = 10 * time.Second
)

type taskUpdater interface {
	UpdateTask(context.Context, enfoque.TaskID, enfoque.TaskPatch) (enfoque.ExistingTaskRecord, error)
}

type write struct {
	what  string
	patch enfoque.TaskPatch
}

// writer applies task patches in order on its own goroutine. Writes are
// at-most-once: failures are logged and never retried or rolled back.
type writer struct {
	repo    taskUpdater
	taskID  enfoque.TaskID
	l       *log.Logger
	queue   chan write
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newWriter(repo taskUpdater, taskID enfoque.TaskID, l *log.Logger) *writer {
	w := &writer{
		repo:   repo,
		taskID: taskID,
		l:      l,
		queue:  make(chan write, writeQueueSize),
	}
	go w.run()
	return w
}

func (w *writer) run() {
	for wr := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if _, err := w.repo.UpdateTask(ctx, w.taskID, wr.patch); err != nil {
			w.l.Error("failed to persist "+wr.what, "taskID", w.taskID, "err", err)
		} else {
			w.l.Debug("persisted "+wr.what, "taskID", w.taskID)
		}
		cancel()
		w.pending.Done()
	}
}

// enqueue never blocks. A full or closed queue drops the write.
func (w *writer) enqueue(what string, patch enfoque.TaskPatch) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.l.Warn("dropped write on closed session", "what", what, "taskID", w.taskID)
		return
	}
	w.pending.Add(1)
	select {
	case w.queue <- write{what: what, patch: patch}:
	default:
		w.pending.Done()
		w.l.Error("dropped write - queue full", "what", what, "taskID", w.taskID)
	}
}

// wait blocks until every enqueued write has been attempted.
func (w *writer) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting writes. Queued writes still drain.
func (w *writer) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.queue)
}
