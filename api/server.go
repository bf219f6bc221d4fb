// Package api exposes tasks, focus sessions and reminders over HTTP for a UI shell.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/benjamonnguyen/enfoque"
	"github.com/benjamonnguyen/enfoque/focus"
	"github.com/benjamonnguyen/enfoque/reminder"
)

type SessionManager interface {
	Open(context.Context, enfoque.TaskID, focus.OpenOptions) (*focus.Session, error)
	Get(enfoque.TaskID) (*focus.Session, error)
	Close(context.Context, enfoque.TaskID) (focus.Snapshot, error)
}

type Deps struct {
	Tasks     enfoque.TaskRepo
	Reminders enfoque.ReminderRepo
	Sessions  SessionManager
	// Poller serves UserID's reminders. Other users are read from Reminders.
	Poller *reminder.Poller
	UserID enfoque.UserID
	// Window classifies reminders read outside the poller. Zero means reminder.DefaultWindow.
	Window time.Duration
	Clock  clockwork.Clock
	Logger *log.Logger
}

// Server is the HTTP API
type Server struct {
	tasks     enfoque.TaskRepo
	reminders enfoque.ReminderRepo
	sessions  SessionManager
	poller    *reminder.Poller
	userID    enfoque.UserID
	window    time.Duration
	clock     clockwork.Clock
	l         *log.Logger
	router    *gin.Engine
}

func NewServer(deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Logger))

	s := &Server{
		tasks:     deps.Tasks,
		reminders: deps.Reminders,
		sessions:  deps.Sessions,
		poller:    deps.Poller,
		userID:    deps.UserID,
		window:    deps.Window,
		clock:     deps.Clock,
		l:         deps.Logger,
		router:    router,
	}

	tasks := router.Group("/tasks")
	{
		tasks.GET("", s.handleListTasks)
		tasks.POST("", s.handleCreateTask)
		tasks.GET("/:id", s.handleGetTask)
	}

	sessions := router.Group("/sessions/:taskId")
	{
		sessions.POST("", s.handleOpenSession)
		sessions.GET("", s.handleGetSession)
		sessions.DELETE("", s.handleAbandonSession)
		sessions.POST("/start", s.sessionAction((*focus.Session).Start))
		sessions.POST("/pause", s.sessionAction((*focus.Session).Pause))
		sessions.POST("/skip", s.sessionAction((*focus.Session).Skip))
		sessions.POST("/switch", s.handleSwitch)
		sessions.PUT("/settings", s.handleUpdateSettings)
		sessions.POST("/mute", s.handleMute)
		sessions.POST("/complete", s.handleComplete)
		sessions.POST("/continue", s.handleContinue)
	}

	reminders := router.Group("/reminders")
	{
		reminders.GET("", s.handleListReminders)
		reminders.POST("", s.handleCreateReminder)
		reminders.POST("/:id/dismiss", s.handleDismissReminder)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.l.Info("http api listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(l *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
