// Package web serves donna's JSON API under /api/v1.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/amirbrooks/donna/internal/assistant"
	"github.com/amirbrooks/donna/internal/dateparse"
	"github.com/amirbrooks/donna/internal/history"
	"github.com/amirbrooks/donna/internal/speech"
	"github.com/amirbrooks/donna/internal/store"
)

const (
	requestIDHeader = "X-Request-ID"
	maxAudioSize    = 25 << 20 // 25MB
	maxMessageSize  = 10 << 10 // 10KB
	// chat bodies get room for JSON escaping around the message
	maxChatBodySize = 4 * maxMessageSize
)

// Deps are the collaborators a Server needs. History, Transcriber and
// Synthesizer may be nil.
type Deps struct {
	Store       *store.Workspace
	Assistant   *assistant.Service
	History     *history.Log
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer
	Logger      *slog.Logger
	DefaultUser string
	// Today returns the reference date for a request; defaults to the local date.
	Today func() dateparse.Date
}

type Server struct {
	store       *store.Workspace
	assistant   *assistant.Service
	history     *history.Log
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	log         *slog.Logger
	defaultUser string
	today       func() dateparse.Date
	router      *gin.Engine
}

func NewServer(d Deps) *Server {
	s := &Server{
		store:       d.Store,
		assistant:   d.Assistant,
		history:     d.History,
		transcriber: d.Transcriber,
		synthesizer: d.Synthesizer,
		log:         d.Logger,
		defaultUser: d.DefaultUser,
		today:       d.Today,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.today == nil {
		s.today = dateparse.Today
	}
	if s.history == nil {
		// an empty path never fails and yields a disabled log
		s.history, _ = history.Open("")
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), s.logRequests())
	s.router = router

	api := router.Group("/api/v1")
	{
		api.POST("/chat", s.handleChat)
		api.GET("/models", s.handleModels)
		api.GET("/chat/history/:user_id", s.handleHistory)

		api.GET("/tasks/:user_id", s.handleListTasks)
		api.GET("/tasks/:user_id/:title", s.handleGetTask)
		api.POST("/tasks/:user_id", s.handleSetTask)
		api.PUT("/tasks/:user_id/:title", s.handleUpdateStatus)
		api.DELETE("/tasks/:user_id/:title", s.handleDeleteTask)
		api.GET("/tasks/daily/:user_id", s.handleDailyTasks)
		api.GET("/tasks/monthly/:user_id", s.handleMonthlyTasks)
		api.GET("/tasks/priority/:user_id", s.handleHighestPriority)
		api.GET("/tasks/status/:user_id/:status", s.handleTasksByStatus)
		api.GET("/tasks/upcoming/:user_id", s.handleUpcoming)
		api.GET("/tasks/query/:user_id", s.handleQuery)
		api.GET("/tasks/date/:user_id", s.handleTasksForDate)
		api.GET("/tasks/range/:user_id", s.handleTasksForRange)

		api.GET("/dates/parse", s.handleParseDate)
		api.GET("/dates/range", s.handleParseRange)

		api.GET("/users", s.handleListUsers)
		api.GET("/users/me", s.handleCurrentUser)
		api.POST("/users/login", s.handleLogin)

		api.POST("/speech-to-text", s.handleSpeechToText)
		api.POST("/text-to-speech", s.handleTextToSpeech)
	}
	return s
}

// Handler exposes the router, mainly for tests and custom http.Servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) error {
	s.log.Info("listening", "addr", addr)
	return s.router.Run(addr)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.log.Log(c.Request.Context(), level, "request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// fail writes {"success": false, "error": ...} with a status derived from err.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "request_id", c.GetString("request_id"), "route", c.FullPath(), "err", err)
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalid),
		errors.Is(err, assistant.ErrEmptyMessage),
		errors.Is(err, speech.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, speech.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) userParam(c *gin.Context) string {
	if id := c.Param("user_id"); id != "" {
		return id
	}
	return s.defaultUser
}
