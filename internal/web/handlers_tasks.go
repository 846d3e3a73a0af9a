package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amirbrooks/donna/internal/query"
	"github.com/amirbrooks/donna/internal/store"
)

const defaultUpcomingDays = 7

func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.store.ListTasks(s.userParam(c), store.ListFilter{
		Status:    c.Query("status"),
		Priority:  c.Query("priority"),
		Frequency: c.Query("frequency"),
		Search:    c.Query("search"),
	})
	s.respondTasks(c, tasks, err)
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.store.GetTask(s.userParam(c), c.Param("title"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleSetTask(c *gin.Context) {
	var in store.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	task, err := s.store.SetTask(s.userParam(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Task saved successfully",
		"task":    task,
	})
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	status := strings.TrimSpace(c.Query("status"))
	if status == "" {
		badRequest(c, "status query parameter required")
		return
	}
	task, err := s.store.UpdateStatus(s.userParam(c), c.Param("title"), status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task status updated successfully",
		"task":    task,
	})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.store.DeleteTask(s.userParam(c), c.Param("title")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted successfully"})
}

func (s *Server) handleDailyTasks(c *gin.Context) {
	tasks, err := s.store.DailyTasks(s.userParam(c))
	s.respondTasks(c, tasks, err)
}

func (s *Server) handleMonthlyTasks(c *gin.Context) {
	tasks, err := s.store.MonthlyTasks(s.userParam(c))
	s.respondTasks(c, tasks, err)
}

func (s *Server) handleHighestPriority(c *gin.Context) {
	task, err := s.store.HighestPriority(s.userParam(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleTasksByStatus(c *gin.Context) {
	tasks, err := s.store.TasksByStatus(s.userParam(c), c.Param("status"))
	s.respondTasks(c, tasks, err)
}

func (s *Server) handleUpcoming(c *gin.Context) {
	days := defaultUpcomingDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "days must be an integer")
			return
		}
		days = n
	}
	tasks, err := s.store.UpcomingTasks(s.userParam(c), s.today(), days)
	s.respondTasks(c, tasks, err)
}

func (s *Server) handleQuery(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		badRequest(c, "q query parameter required")
		return
	}
	if len(q) > maxMessageSize {
		badRequest(c, "query exceeds maximum size of 10KB")
		return
	}
	all, err := s.store.AllTasks(s.userParam(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	f := query.Extract(q, s.today())
	c.JSON(http.StatusOK, gin.H{
		"query":  q,
		"filter": f,
		"tasks":  f.Apply(all),
	})
}

func (s *Server) handleTasksForDate(c *gin.Context) {
	raw := c.DefaultQuery("date", "today")
	date, tasks, err := s.store.TasksForFlexibleDate(s.userParam(c), raw, s.today())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"input":          raw,
		"date":           date,
		"formatted_date": date.Display(),
		"tasks":          tasks,
	})
}

func (s *Server) handleTasksForRange(c *gin.Context) {
	raw := c.DefaultQuery("range", "this week")
	r, tasks, err := s.store.TasksForDateRange(s.userParam(c), raw, s.today())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"input": raw,
		"start": r.Start,
		"end":   r.End,
		"tasks": tasks,
	})
}

func (s *Server) respondTasks(c *gin.Context, tasks []store.Task, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}
