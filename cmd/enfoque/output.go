package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/benjamonnguyen/enfoque"
	"github.com/benjamonnguyen/enfoque/reminder"
)

const (
	outputText = "text"
	outputYAML = "yaml"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

type taskView struct {
	ID               enfoque.TaskID     `yaml:"id"`
	Title            string             `yaml:"title"`
	Status           enfoque.TaskStatus `yaml:"status"`
	Progress         int                `yaml:"progress"`
	TotalFocusTime   int                `yaml:"total_focus_time"`
	EstimatedMinutes int                `yaml:"estimated_minutes"`
	Pomodoro         int                `yaml:"pomodoro_duration"`
	ShortBreak       int                `yaml:"short_break_duration"`
	LongBreak        int                `yaml:"long_break_duration"`
	Cycles           int                `yaml:"pomodoro_cycles"`
	CompletedCycles  int                `yaml:"completed_cycles"`
	CreatedAt        time.Time          `yaml:"created_at"`
}

func newTaskView(t enfoque.ExistingTaskRecord) taskView {
	return taskView{
		ID:               t.ID,
		Title:            t.Title,
		Status:           t.Status,
		Progress:         t.Progress,
		TotalFocusTime:   t.TotalFocusTime,
		EstimatedMinutes: t.EstimatedMinutes,
		Pomodoro:         t.PomodoroDuration,
		ShortBreak:       t.ShortBreakDuration,
		LongBreak:        t.LongBreakDuration,
		Cycles:           t.PomodoroCycles,
		CompletedCycles:  t.CompletedCycles,
		CreatedAt:        t.CreatedAt.Local(),
	}
}

type reminderView struct {
	ID        enfoque.ReminderID `yaml:"id"`
	RemindAt  time.Time          `yaml:"remind_at"`
	TaskID    string             `yaml:"task_id,omitempty"`
	TaskTitle string             `yaml:"task_title,omitempty"`
	Message   string             `yaml:"message,omitempty"`
	Status    string             `yaml:"status"`
	Label     string             `yaml:"label"`
}

func newReminderView(r enfoque.ExistingReminderRecord, now time.Time, window time.Duration) reminderView {
	return reminderView{
		ID:        r.ID,
		RemindAt:  r.RemindAt.Local(),
		TaskID:    string(r.TaskID.OrElse("")),
		TaskTitle: r.TaskTitle,
		Message:   r.Message.OrElse(""),
		Status:    reminder.Classify(r.ReminderRecord, now, window).String(),
		Label:     reminder.Humanize(r.ReminderRecord, now),
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func writeTasks(w io.Writer, format string, tasks []enfoque.ExistingTaskRecord) error {
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, newTaskView(t))
	}
	if format == outputYAML {
		return writeYAML(w, views)
	}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			string(v.ID),
			v.Title,
			string(v.Status),
			strconv.Itoa(v.Progress) + "%",
			fmt.Sprintf("%d/%d", v.CompletedCycles, v.Cycles),
			strconv.Itoa(v.TotalFocusTime) + "m",
		})
	}
	return writeTable(w, []string{"ID", "Título", "Estado", "Progreso", "Ciclos", "Enfoque"}, rows)
}

func writeTask(w io.Writer, format string, t enfoque.ExistingTaskRecord) error {
	v := newTaskView(t)
	if format == outputYAML {
		return writeYAML(w, v)
	}
	return writeTable(w, []string{"Campo", "Valor"}, [][]string{
		{"ID", string(v.ID)},
		{"Título", v.Title},
		{"Estado", string(v.Status)},
		{"Progreso", strconv.Itoa(v.Progress) + "%"},
		{"Enfoque total", strconv.Itoa(v.TotalFocusTime) + "m"},
		{"Estimado", strconv.Itoa(v.EstimatedMinutes) + "m"},
		{"Pomodoro", fmt.Sprintf("%dm / %dm / %dm", v.Pomodoro, v.ShortBreak, v.LongBreak)},
		{"Ciclos", fmt.Sprintf("%d/%d", v.CompletedCycles, v.Cycles)},
		{"Creada", v.CreatedAt.Format(time.DateTime)},
	})
}

func writeReminders(w io.Writer, format string, reminders []enfoque.ExistingReminderRecord, now time.Time, window time.Duration) error {
	views := make([]reminderView, 0, len(reminders))
	for _, r := range reminders {
		views = append(views, newReminderView(r, now, window))
	}
	if format == outputYAML {
		return writeYAML(w, views)
	}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		what := v.Message
		if what == "" {
			what = v.TaskTitle
		}
		rows = append(rows, []string{
			string(v.ID),
			v.RemindAt.Format(time.DateTime),
			v.Label,
			what,
		})
	}
	return writeTable(w, []string{"ID", "Cuándo", "", "Recordatorio"}, rows)
}
