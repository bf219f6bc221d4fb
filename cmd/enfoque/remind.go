package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/benjamonnguyen/enfoque"
)

func remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Manage reminders",
	}
	cmd.AddCommand(remindAddCmd(), remindListCmd(), remindDismissCmd())
	return cmd
}

// parseRemindAt accepts a delay from now ("10m", "1h30m") or an RFC 3339 / local date-time.
func parseRemindAt(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("delay %s is negative", s)
		}
		return now.Add(d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateTime, s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, now.Location()); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use a delay like 10m or a date like 2006-01-02 15:04", s)
}

func remindAddCmd() *cobra.Command {
	var user, at, taskID, message string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a reminder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			record := enfoque.ReminderRecord{}
			if record.UserID, err = a.userID(user); err != nil {
				return err
			}
			if record.RemindAt, err = parseRemindAt(at, time.Now()); err != nil {
				return err
			}
			if taskID != "" {
				record.TaskID = enfoque.Some(enfoque.TaskID(taskID))
			}
			if message != "" {
				record.Message = enfoque.Some(message)
			}

			created, err := a.reminders.InsertReminder(cmd.Context(), record)
			if err != nil {
				return err
			}
			// re-read for the joined task title
			created, err = a.reminders.GetReminder(cmd.Context(), created.ID)
			if err != nil {
				return err
			}
			return writeReminders(cmd.OutOrStdout(), output, []enfoque.ExistingReminderRecord{created}, time.Now(), a.cfg.ReminderWindow)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "owner user id")
	cmd.Flags().StringVar(&at, "at", "", "when: a delay (10m) or a date-time (2006-01-02 15:04)")
	cmd.Flags().StringVarP(&taskID, "task", "t", "", "task to remind about")
	cmd.Flags().StringVarP(&message, "message", "m", "", "reminder text")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func remindListCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending reminders",
		Args:  cobra.NoArgs,
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
			pending, err := a.reminders.ListPendingReminders(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return writeReminders(cmd.OutOrStdout(), output, pending, time.Now(), a.cfg.ReminderWindow)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "owner user id")
	return cmd
}

func remindDismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <reminder-id>",
		Short: "Mark a reminder sent without notifying",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.reminders.MarkReminderSent(cmd.Context(), enfoque.ReminderID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dismissed %s\n", r.ID)
			return nil
		},
	}
}
