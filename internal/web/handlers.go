package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amirbrooks/donna/internal/dateparse"
	"github.com/amirbrooks/donna/internal/query"
	"github.com/amirbrooks/donna/internal/store"
)

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxChatBodySize)
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "request body too large"})
			return
		}
		badRequest(c, "invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		badRequest(c, "message is required")
		return
	}
	if len(req.Message) > maxMessageSize {
		badRequest(c, "message exceeds maximum size of 10KB")
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = s.defaultUser
	}

	reply, err := s.assistant.Respond(c.Request.Context(), userID, req.Message, s.today())
	if err != nil {
		s.fail(c, err)
		return
	}
	if _, err := s.history.Record(userID, req.Message, reply.Response, reply.Source); err != nil {
		s.log.Warn("failed to record chat history", "request_id", c.GetString("request_id"), "user", userID, "err", err)
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, s.assistant.Models())
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	exchanges, err := s.history.Recent(s.userParam(c), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled":   s.history.Enabled(),
		"exchanges": exchanges,
	})
}

func (s *Server) handleParseDate(c *gin.Context) {
	input := strings.TrimSpace(c.Query("input"))
	if input == "" {
		badRequest(c, "input query parameter required")
		return
	}
	check := query.ValidateAndDescribe(input, s.today())
	d := dateparse.MustParseISO(check.ParsedDate)
	c.JSON(http.StatusOK, gin.H{
		"original_input": check.OriginalInput,
		"parsed_date":    check.ParsedDate,
		"formatted_date": d.Display(),
		"is_valid":       check.IsValid,
		"rule":           check.Rule,
		"matched":        check.Matched,
	})
}

func (s *Server) handleParseRange(c *gin.Context) {
	input := strings.TrimSpace(c.Query("input"))
	if input == "" {
		badRequest(c, "input query parameter required")
		return
	}
	r := dateparse.ParseRange(input, s.today())
	c.JSON(http.StatusOK, gin.H{
		"original_input": input,
		"start":          r.Start,
		"end":            r.End,
		"single_day":     r.IsSingleDay(),
	})
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.store.ListUsers()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) handleCurrentUser(c *gin.Context) {
	user, err := s.store.GetUser(s.defaultUser)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type loginRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Photo  string `json:"photo"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	user, err := s.store.EnsureUser(store.User{ID: req.UserID, Name: req.Name, AvatarURL: req.Photo})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful", "user": user})
}

func (s *Server) handleSpeechToText(c *gin.Context) {
	if s.transcriber == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "speech-to-text is not configured"})
		return
	}
	header, err := c.FormFile("audio")
	if err != nil {
		badRequest(c, "audio file is required")
		return
	}
	if header.Size > maxAudioSize {
		badRequest(c, "audio file exceeds maximum size of 25MB")
		return
	}
	f, err := header.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, err)
		return
	}
	if len(audio) == 0 {
		badRequest(c, "audio file is empty")
		return
	}
	out, err := s.transcriber.Transcribe(c.Request.Context(), header.Filename, audio)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type ttsRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

func (s *Server) handleTextToSpeech(c *gin.Context) {
	if s.synthesizer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "text-to-speech is not configured"})
		return
	}
	var req ttsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(c, "text cannot be empty")
		return
	}
	if req.VoiceID == "" {
		req.VoiceID = "en"
	}
	audio, err := s.synthesizer.Synthesize(c.Request.Context(), req.Text, req.VoiceID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=speech.wav")
	c.Data(http.StatusOK, audio.ContentType, audio.Data)
}
