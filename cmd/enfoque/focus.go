package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/benjamonnguyen/enfoque"
	"github.com/benjamonnguyen/enfoque/focus"
)

const focusHelp = `[enter] iniciar/pausar  [s] saltar  [t tipo] cambiar  [m] silenciar
[c] completar  [+N] continuar  [q] abandonar`

var gateStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E2563B"))

func focusCmd() *cobra.Command {
	var (
		mode     string
		auto     bool
		takeover bool
	)
	cmd := &cobra.Command{
		Use:   "focus <task-id>",
		Short: "Run a focus session in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := focus.ParseMode(mode)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			notifier, err := a.notifier()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mgr := focus.NewManager(context.Background(), focus.ManagerDeps{
				Tasks:    a.tasks,
				Leases:   a.leases,
				Tx:       a.tx,
				Notifier: notifier,
				Logger:   a.l,
				LeaseTTL: a.cfg.LeaseTTL,
			})
			defer func() {
				// abandons whatever is still open and waits for queued writes
				shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				if err := mgr.Shutdown(shutdownCtx); err != nil {
					a.l.Error("failed to shut down gracefully", "err", err)
				}
			}()

			term := newTerminal(cmd.OutOrStdout(), auto)
			mgr.OnSessionUpdate(term.onUpdate)
			session, err := mgr.Open(ctx, enfoque.TaskID(args[0]), focus.OpenOptions{Mode: m, Takeover: takeover})
			if err != nil {
				return err
			}
			term.session = session

			fmt.Fprintln(term.out, focusHelp)
			if auto {
				if _, err := session.Start(ctx); err != nil {
					return err
				}
			} else {
				term.render(session.Snapshot())
			}
			return term.run(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", focus.Pomodoro.String(), "pomodoro or cronometro")
	cmd.Flags().BoolVarP(&auto, "auto", "a", false, "start immediately and start each segment when the previous one ends")
	cmd.Flags().BoolVar(&takeover, "takeover", false, "take the session over from another client")
	return cmd
}

// terminal drives one session from line commands and renders its updates.
type terminal struct {
	mu      sync.Mutex
	out     io.Writer
	auto    bool
	session *focus.Session
}

func newTerminal(out io.Writer, auto bool) *terminal {
	return &terminal{out: out, auto: auto}
}

func (t *terminal) onUpdate(ctx context.Context, before, curr focus.Snapshot) {
	if curr.Closed {
		return
	}
	if curr.GateOpen && !before.GateOpen {
		t.println(gateStyle.Render(gatePrompt(curr)))
	}
	if curr.Type != before.Type && t.auto && !curr.IsRunning && !curr.GateOpen && before.IsRunning {
		if _, err := t.session.Start(ctx); err != nil && !errors.Is(err, focus.ErrGateOpen) {
			t.println("no se pudo iniciar: " + err.Error())
		}
		return
	}
	t.render(curr)
}

func gatePrompt(snap focus.Snapshot) string {
	if snap.Mode == focus.Cronometro {
		return fmt.Sprintf("Tiempo estimado cumplido. [c] completar o [+N] extender minutos (%v)", focus.ExtendOptions)
	}
	return "¡Completaste todos los ciclos! [c] completar o [+N] continuar con N ciclos"
}

func (t *terminal) render(snap focus.Snapshot) {
	state := "pausado"
	if snap.IsRunning {
		state = "en curso"
	}
	line := fmt.Sprintf("%-11s %s  %s  enfoque %dm", snap.Type, clock(snap.TimeLeftSeconds), state, snap.TotalFocusTime)
	if snap.Mode == focus.Pomodoro {
		line += fmt.Sprintf("  ciclo %d/%d  %d%%", snap.Cycle, snap.Settings.Cycles, snap.Progress)
	}
	if snap.Muted {
		line += "  (silencio)"
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "\r%s", line)
}

func (t *terminal) println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "\n%s\n", s)
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// run reads commands until the session is completed, abandoned or ctx ends.
func (t *terminal) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			t.println("sesión abandonada")
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin closed, keep running until interrupted
				lines = nil
				continue
			}
			done, err := t.exec(ctx, line)
			if err != nil {
				t.println(err.Error())
			}
			if done {
				return nil
			}
		}
	}
}

func (t *terminal) exec(ctx context.Context, line string) (done bool, err error) {
	s := t.session
	switch {
	case line == "":
		if s.Snapshot().IsRunning {
			_, err = s.Pause(ctx)
		} else {
			_, err = s.Start(ctx)
		}
	case line == "s":
		_, err = s.Skip(ctx)
	case line == "m":
		s.SetMuted(ctx, !s.Snapshot().Muted)
	case line == "c":
		if _, err = s.Complete(ctx); err == nil {
			t.println("tarea completada")
			return true, nil
		}
	case strings.HasPrefix(line, "+"):
		var n int
		if n, err = strconv.Atoi(strings.TrimPrefix(line, "+")); err != nil {
			return false, fmt.Errorf("continuar: %q no es un número", line)
		}
		_, err = s.Continue(ctx, n)
	case strings.HasPrefix(line, "t "):
		var st focus.SessionType
		if st, err = focus.ParseSessionType(strings.TrimSpace(strings.TrimPrefix(line, "t "))); err != nil {
			return false, err
		}
		_, err = s.Switch(ctx, st)
	case line == "q":
		t.println("sesión abandonada")
		return true, nil
	case line == "?" || line == "h":
		t.println(focusHelp)
	default:
		return false, fmt.Errorf("comando desconocido %q", line)
	}
	return false, err
}
