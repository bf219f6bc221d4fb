// Package notify delivers best-effort user notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

type Notification struct {
	Title string
	Body  string
	// Tag identifies the notification source, e.g. a reminder id.
	Tag string
}

type Notifier interface {
	Notify(context.Context, Notification) error
}

// Func adapts a function to Notifier.
type Func func(context.Context, Notification) error

func (f Func) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for _, nt := range m {
		if nt == nil {
			continue
		}
		wg.Go(func() {
			if err := nt.Notify(ctx, n); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

type logNotifier struct {
	l *log.Logger
}

// NewLogNotifier logs each notification at info level.
func NewLogNotifier(l *log.Logger) Notifier {
	return &logNotifier{l: l}
}

func (n *logNotifier) Notify(_ context.Context, nt Notification) error {
	n.l.Info(nt.Title, "body", nt.Body, "tag", nt.Tag)
	return nil
}

type bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell rings the terminal bell on w as the audible cue.
func NewBell(w io.Writer) Notifier {
	return &bell{w: w}
}

func (b *bell) Notify(context.Context, Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := io.WriteString(b.w, "\a"); err != nil {
		return fmt.Errorf("ring bell: %w", err)
	}
	return nil
}
