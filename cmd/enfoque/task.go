package main

import (
	"github.com/spf13/cobra"

	"github.com/benjamonnguyen/enfoque"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(taskAddCmd(), taskListCmd(), taskShowCmd())
	return cmd
}

func taskAddCmd() *cobra.Command {
	var (
		user   string
		record enfoque.TaskRecord
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if record.UserID, err = a.userID(user); err != nil {
				return err
			}
			record.Title = args[0]
			task, err := a.tasks.InsertTask(cmd.Context(), record)
			if err != nil {
				return err
			}
			return writeTask(cmd.OutOrStdout(), output, task)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "owner user id")
	cmd.Flags().IntVarP(&record.EstimatedMinutes, "estimate", "e", 0, "estimated minutes (cronometro)")
	cmd.Flags().IntVar(&record.PomodoroDuration, "pomodoro", 0, "pomodoro minutes")
	cmd.Flags().IntVar(&record.ShortBreakDuration, "short-break", 0, "short break minutes")
	cmd.Flags().IntVar(&record.LongBreakDuration, "long-break", 0, "long break minutes")
	cmd.Flags().IntVarP(&record.PomodoroCycles, "cycles", "c", 0, "pomodoro cycles")
	return cmd
}

func taskListCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's tasks",
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
			tasks, err := a.tasks.ListTasks(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return writeTasks(cmd.OutOrStdout(), output, tasks)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "owner user id")
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			task, err := a.tasks.GetTask(cmd.Context(), enfoque.TaskID(args[0]))
			if err != nil {
				return err
			}
			return writeTask(cmd.OutOrStdout(), output, task)
		},
	}
}
