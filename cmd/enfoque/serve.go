package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/benjamonnguyen/enfoque/api"
	"github.com/benjamonnguyen/enfoque/focus"
	"github.com/benjamonnguyen/enfoque/reminder"
)

func serveCmd() *cobra.Command {
	var user, addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and poll reminders",
		Long: `Serve the HTTP API and poll the user's reminders.

Examples:
  enfoque serve --user ana
  enfoque serve --user ana --addr :9090 -p`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			userID, err := a.userID(user)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			notifier, err := a.notifier()
			if err != nil {
				return err
			}

			topCtx, topCtxC := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer topCtxC()

			mgr := focus.NewManager(topCtx, focus.ManagerDeps{
				Tasks:    a.tasks,
				Leases:   a.leases,
				Tx:       a.tx,
				Notifier: notifier,
				Logger:   a.l,
				LeaseTTL: a.cfg.LeaseTTL,
			})
			mgr.OnSessionUpdate(func(ctx context.Context, before, curr focus.Snapshot) {
				if before.Type != curr.Type || before.GateOpen != curr.GateOpen || before.TaskDone != curr.TaskDone {
					a.l.Info("session update", "taskID", curr.TaskID, "type", curr.Type, "cycle", curr.Cycle, "gateOpen", curr.GateOpen, "done", curr.TaskDone)
				}
			})

			poller := reminder.NewPoller(userID, reminder.Deps{
				Repo:     a.reminders,
				Feed:     a.broker,
				Notifier: notifier,
				Logger:   a.l,
				Window:   a.cfg.ReminderWindow,
				Interval: a.cfg.PollInterval,
			})
			if err := poller.Refresh(topCtx); err != nil {
				return err
			}

			server := api.NewServer(api.Deps{
				Tasks:     a.tasks,
				Reminders: a.reminders,
				Sessions:  mgr,
				Poller:    poller,
				UserID:    userID,
				Window:    a.cfg.ReminderWindow,
				Logger:    a.l,
			})

			var wg sync.WaitGroup
			errc := make(chan error, 2)
			wg.Go(func() {
				if err := poller.Run(topCtx); err != nil && !errors.Is(err, context.Canceled) {
					errc <- err
					topCtxC()
				}
			})
			wg.Go(func() {
				if err := server.Run(topCtx, addr); err != nil {
					errc <- err
					topCtxC()
				}
			})
			a.l.Info("enfoque running. Press CTRL-C to exit.", "user", userID, "addr", addr)

			<-topCtx.Done()
			a.l.Info("terminating enfoque")
			shutdownTimeout, shutdownTimeoutC := context.WithTimeout(context.Background(), time.Minute)
			defer shutdownTimeoutC()
			if err := mgr.Shutdown(shutdownTimeout); err != nil {
				a.l.Error("failed to shut down sessions", "err", err)
			}
			wg.Wait()
			close(errc)
			return errors.Join(collect(errc)...)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user whose reminders are polled and who owns created tasks")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func collect(errc <-chan error) []error {
	var errs []error
	for err := range errc {
		errs = append(errs, err)
	}
	return errs
}
