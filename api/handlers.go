package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/benjamonnguyen/enfoque"
	"github.com/benjamonnguyen/enfoque/focus"
	"github.com/benjamonnguyen/enfoque/reminder"
)

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, enfoque.ErrNotFound), errors.Is(err, focus.ErrNoSession):
		status = http.StatusNotFound
	case errors.Is(err, enfoque.ErrLeaseHeld),
		errors.Is(err, focus.ErrSessionExists),
		errors.Is(err, focus.ErrSessionClosed),
		errors.Is(err, focus.ErrGateBusy),
		errors.Is(err, focus.ErrGateClosed),
		errors.Is(err, focus.ErrGateOpen):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.l.Error("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (s *Server) userParam(c *gin.Context) enfoque.UserID {
	if u := c.Query("user_id"); u != "" {
		return enfoque.UserID(u)
	}
	return s.userID
}

// Tasks

func (s *Server) handleListTasks(c *gin.Context) {
	userID := s.userParam(c)
	if userID == "" {
		badRequest(c, "user_id query parameter required")
		return
	}
	tasks, err := s.tasks.ListTasks(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	res := make([]taskJSON, 0, len(tasks))
	for _, t := range tasks {
		res = append(res, toTaskJSON(t))
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	record := req.record()
	if record.UserID == "" {
		record.UserID = s.userID
	}
	if record.UserID == "" {
		badRequest(c, "user_id required")
		return
	}
	task, err := s.tasks.InsertTask(c.Request.Context(), record)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskJSON(task))
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.tasks.GetTask(c.Request.Context(), enfoque.TaskID(c.Param("id")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskJSON(task))
}

// Sessions

func taskIDParam(c *gin.Context) enfoque.TaskID {
	return enfoque.TaskID(c.Param("taskId"))
}

func (s *Server) session(c *gin.Context) (*focus.Session, bool) {
	session, err := s.sessions.Get(taskIDParam(c))
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	return session, true
}

func (s *Server) handleOpenSession(c *gin.Context) {
	var req openSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	mode, err := focus.ParseMode(req.Mode)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	session, err := s.sessions.Open(c.Request.Context(), taskIDParam(c), focus.OpenOptions{
		Mode:     mode,
		Takeover: req.Takeover,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session.Snapshot())
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) handleAbandonSession(c *gin.Context) {
	snap, err := s.sessions.Close(c.Request.Context(), taskIDParam(c))
	if err != nil && !snap.Closed {
		s.writeError(c, err)
		return
	}
	if err != nil {
		s.l.Error("session closed with errors", "taskID", taskIDParam(c), "err", err)
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) sessionAction(action func(*focus.Session, context.Context) (focus.Snapshot, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := s.session(c)
		if !ok {
			return
		}
		snap, err := action(session, c.Request.Context())
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func (s *Server) handleSwitch(c *gin.Context) {
	var req switchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := focus.ParseSessionType(req.Type)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	session, ok := s.session(c)
	if !ok {
		return
	}
	snap, err := session.Switch(c.Request.Context(), t)
	if err != nil {
		if errors.Is(err, focus.ErrSessionClosed) {
			s.writeError(c, err)
		} else {
			badRequest(c, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	session, ok := s.session(c)
	if !ok {
		return
	}
	snap, err := session.UpdateSettings(c.Request.Context(), req.apply(session.Snapshot().Settings))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleMute(c *gin.Context) {
	var req muteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	session, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.SetMuted(c.Request.Context(), req.Muted))
}

func (s *Server) handleComplete(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	snap, err := session.Complete(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if _, err := s.sessions.Close(c.Request.Context(), session.TaskID()); err != nil {
		s.l.Error("failed to close completed session", "taskID", session.TaskID(), "err", err)
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleContinue(c *gin.Context) {
	var req continueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	session, ok := s.session(c)
	if !ok {
		return
	}
	snap, err := session.Continue(c.Request.Context(), req.Value)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Reminders

func (s *Server) ownReminders(userID enfoque.UserID) bool {
	return s.poller != nil && userID == s.userID
}

func (s *Server) handleListReminders(c *gin.Context) {
	userID := s.userParam(c)
	if userID == "" {
		badRequest(c, "user_id query parameter required")
		return
	}

	var items []reminder.Item
	if s.ownReminders(userID) {
		items = s.poller.Pending()
	} else {
		pending, err := s.reminders.ListPendingReminders(c.Request.Context(), userID)
		if err != nil {
			s.writeError(c, err)
			return
		}
		now := s.clock.Now()
		for _, r := range pending {
			items = append(items, reminder.Item{
				ExistingReminderRecord: r,
				Status:                 reminder.Classify(r.ReminderRecord, now, s.window),
				Label:                  reminder.Humanize(r.ReminderRecord, now),
			})
		}
	}

	res := make([]reminderJSON, 0, len(items))
	for _, item := range items {
		res = append(res, toReminderJSON(item))
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleCreateReminder(c *gin.Context) {
	var req createReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.RemindAt.IsZero() {
		badRequest(c, "remind_at required")
		return
	}
	record := req.record()
	if record.UserID == "" {
		record.UserID = s.userID
	}
	if record.UserID == "" {
		badRequest(c, "user_id required")
		return
	}

	var (
		created enfoque.ExistingReminderRecord
		err     error
	)
	if s.ownReminders(record.UserID) {
		created, err = s.poller.Create(c.Request.Context(), record)
	} else {
		created, err = s.reminders.InsertReminder(c.Request.Context(), record)
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	now := s.clock.Now()
	c.JSON(http.StatusCreated, toReminderJSON(reminder.Item{
		ExistingReminderRecord: created,
		Status:                 reminder.Classify(created.ReminderRecord, now, s.window),
		Label:                  reminder.Humanize(created.ReminderRecord, now),
	}))
}

func (s *Server) handleDismissReminder(c *gin.Context) {
	id := enfoque.ReminderID(c.Param("id"))
	var err error
	if s.poller != nil {
		err = s.poller.Dismiss(c.Request.Context(), id)
	} else {
		_, err = s.reminders.MarkReminderSent(c.Request.Context(), id)
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "sent": true, "dismissed_at": s.clock.Now().UTC().Format(time.RFC3339)})
}
