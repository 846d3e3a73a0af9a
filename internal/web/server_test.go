package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/amirbrooks/donna/internal/assistant"
	"github.com/amirbrooks/donna/internal/dateparse"
	"github.com/amirbrooks/donna/internal/history"
	"github.com/amirbrooks/donna/internal/speech"
	"github.com/amirbrooks/donna/internal/store"
)

var ref = dateparse.MustParseISO("2025-05-29")

type mockTranscriber struct{}

func (mockTranscriber) Transcribe(_ context.Context, _ string, audio []byte) (speech.Transcript, error) {
	return speech.Transcript{Text: "heard " + string(audio), Language: "en"}, nil
}

type mockSynthesizer struct{}

func (mockSynthesizer) Synthesize(_ context.Context, text, voiceID string) (speech.Audio, error) {
	return speech.Audio{Data: []byte(speech.Language(voiceID) + ":" + text), ContentType: "audio/wav"}, nil
}

func setupTestServer(t *testing.T, withSpeech bool) (*Server, *store.Workspace) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ws, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := ws.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := ws.EnsureUser(store.User{ID: "user_001", Name: "Your Name"}); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	for _, in := range []store.TaskInput{
		{Title: "Finish report", DueDate: "2025-05-29", Priority: "high", Status: "pending", Frequency: "one-time"},
		{Title: "Team standup", DueDate: "2025-05-29", Priority: "medium", Status: "pending", Frequency: "daily"},
		{Title: "Pay rent", DueDate: "2025-06-01", Priority: "medium", Status: "pending", Frequency: "monthly"},
		{Title: "Old invoice", DueDate: "2025-05-20", Priority: "high", Status: "completed", Frequency: "one-time"},
	} {
		if _, err := ws.SetTask("user_001", in); err != nil {
			t.Fatalf("set %q: %v", in.Title, err)
		}
	}

	hist, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := Deps{
		Store:       ws,
		Assistant:   assistant.New(ws, nil, logger),
		History:     hist,
		Logger:      logger,
		DefaultUser: "user_001",
		Today:       func() dateparse.Date { return ref },
	}
	if withSpeech {
		deps.Transcriber = mockTranscriber{}
		deps.Synthesizer = mockSynthesizer{}
	}
	return NewServer(deps), ws
}

func do(t *testing.T, s *Server, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func doJSON(t *testing.T, s *Server, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return do(t, s, method, target, bytes.NewReader(b), "application/json")
}

func decodeTasks(t *testing.T, w *httptest.ResponseRecorder) []store.Task {
	t.Helper()
	var tasks []store.Task
	if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode tasks: %v\n%s", err, w.Body.String())
	}
	return tasks
}

func titles(tasks []store.Task) string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return strings.Join(out, ",")
}

func TestRequestIDHeader(t *testing.T) {
	s, _ := setupTestServer(t, false)
	w := do(t, s, http.MethodGet, "/api/v1/models", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/models", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected incoming request id to be echoed, got %q", got)
	}
}

func TestChatRecordsHistory(t *testing.T) {
	s, _ := setupTestServer(t, false)
	w := doJSON(t, s, http.MethodPost, "/api/v1/chat", map[string]string{"message": "What's on today?"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var reply assistant.Reply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reply.Success || reply.Source != assistant.SourceShortcut || !strings.Contains(reply.Response, "Finish report") {
		t.Fatalf("unexpected reply %+v", reply)
	}

	w = do(t, s, http.MethodGet, "/api/v1/chat/history/user_001?limit=5", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var hist struct {
		Enabled   bool               `json:"enabled"`
		Exchanges []history.Exchange `json:"exchanges"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !hist.Enabled || len(hist.Exchanges) != 1 || hist.Exchanges[0].Message != "What's on today?" {
		t.Fatalf("unexpected history %+v", hist)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	s, _ := setupTestServer(t, false)
	w := doJSON(t, s, http.MethodPost, "/api/v1/chat", map[string]string{"message": "  "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["success"] != false || body["error"] != "message is required" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestChatBoundsMessageSize(t *testing.T) {
	s, _ := setupTestServer(t, false)
	w := doJSON(t, s, http.MethodPost, "/api/v1/chat", map[string]string{"message": strings.Repeat("a", maxMessageSize+1)})
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "10KB") {
		t.Fatalf("expected 400 for an oversized message, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/chat", map[string]string{"message": strings.Repeat("a", maxChatBodySize)})
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for an oversized body, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	s, _ := setupTestServer(t, false)
	if w := do(t, s, http.MethodGet, "/api/v1/chat/history/user_001?limit=abc", nil, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTaskRoutes(t *testing.T) {
	s, _ := setupTestServer(t, false)
	cases := []struct {
		target string
		want   string
	}{
		{"/api/v1/tasks/user_001", "Finish report,Team standup,Pay rent,Old invoice"},
		{"/api/v1/tasks/user_001?priority=high", "Finish report,Old invoice"},
		{"/api/v1/tasks/daily/user_001", "Team standup"},
		{"/api/v1/tasks/monthly/user_001", "Pay rent"},
		{"/api/v1/tasks/status/user_001/completed", "Old invoice"},
		{"/api/v1/tasks/upcoming/user_001?days=2", "Finish report,Team standup"},
		{"/api/v1/tasks/upcoming/user_001", "Finish report,Team standup,Pay rent"},
		{"/api/v1/tasks/nobody", ""},
	}
	for _, tc := range cases {
		w := do(t, s, http.MethodGet, tc.target, nil, "")
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d: %s", tc.target, w.Code, w.Body.String())
			continue
		}
		if got := titles(decodeTasks(t, w)); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.target, tc.want, got)
		}
	}
}

func TestHighestPriorityRoute(t *testing.T) {
	s, _ := setupTestServer(t, false)
	w := do(t, s, http.MethodGet, "/api/v1/tasks/priority/user_001", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Finish report") {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, s, http.MethodGet, "/api/v1/tasks/priority/nobody", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a user without tasks, got %d", w.Code)
	}
}

func TestTaskLifecycle(t *testing.T) {
	s, ws := setupTestServer(t, false)

	w := doJSON(t, s, http.MethodPost, "/api/v1/tasks/user_001", store.TaskInput{
		Title: "Book flights", DueDate: "2025-06-10", Priority: "medium", Status: "pending", Frequency: "one-time",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/tasks/user_001", store.TaskInput{Title: "Missing fields"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an incomplete task, got %d", w.Code)
	}

	title := url.PathEscape("Book flights")
	w = do(t, s, http.MethodPut, "/api/v1/tasks/user_001/"+title+"?status=completed", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	task, err := ws.GetTask("user_001", "Book flights")
	if err != nil || task.Status != store.StatusCompleted {
		t.Fatalf("expected completed task, got %+v, %v", task, err)
	}

	w = do(t, s, http.MethodGet, "/api/v1/tasks/user_001/"+title, nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"completed"`) {
		t.Fatalf("unexpected get %d: %s", w.Code, w.Body.String())
	}

	if w := do(t, s, http.MethodPut, "/api/v1/tasks/user_001/"+title, nil, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without status, got %d", w.Code)
	}
	if w := do(t, s, http.MethodPut, "/api/v1/tasks/user_001/Nope?status=pending", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing task, got %d", w.Code)
	}

	if w := do(t, s, http.MethodDelete, "/api/v1/tasks/user_001/"+title, nil, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", w.Code)
	}
	if w := do(t, s, http.MethodDelete, "/api/v1/tasks/user_001/"+title, nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestQueryDateAndRangeRoutes(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := do(t, s, http.MethodGet, "/api/v1/tasks/query/user_001?q="+url.QueryEscape("high priority tasks this week"), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var q struct {
		Tasks []store.Task `json:"tasks"`
	}
	json.Unmarshal(w.Body.Bytes(), &q)
	if got := titles(q.Tasks); got != "Finish report" {
		t.Errorf("expected only Finish report, got %q", got)
	}

	w = do(t, s, http.MethodGet, "/api/v1/tasks/date/user_001?date=today", nil, "")
	var d struct {
		Date          string       `json:"date"`
		FormattedDate string       `json:"formatted_date"`
		Tasks         []store.Task `json:"tasks"`
	}
	json.Unmarshal(w.Body.Bytes(), &d)
	if d.Date != "2025-05-29" || d.FormattedDate != "May 29, 2025" || titles(d.Tasks) != "Finish report,Team standup" {
		t.Errorf("unexpected date response %+v", d)
	}

	w = do(t, s, http.MethodGet, "/api/v1/tasks/range/user_001?range="+url.QueryEscape("this week"), nil, "")
	var r struct {
		Start string       `json:"start"`
		End   string       `json:"end"`
		Tasks []store.Task `json:"tasks"`
	}
	json.Unmarshal(w.Body.Bytes(), &r)
	if r.Start != "2025-05-26" || r.End != "2025-06-01" || titles(r.Tasks) != "Finish report,Team standup,Pay rent" {
		t.Errorf("unexpected range response %+v", r)
	}

	if w := do(t, s, http.MethodGet, "/api/v1/tasks/query/user_001", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", w.Code)
	}
}

func TestDateRoutes(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := do(t, s, http.MethodGet, "/api/v1/dates/parse?input="+url.QueryEscape("13/05/2025"), nil, "")
	var p map[string]any
	json.Unmarshal(w.Body.Bytes(), &p)
	if p["parsed_date"] != "2025-05-13" || p["rule"] != dateparse.RuleSlashDate || p["is_valid"] != true || p["formatted_date"] != "May 13, 2025" {
		t.Errorf("unexpected parse response %v", p)
	}

	w = do(t, s, http.MethodGet, "/api/v1/dates/parse?input=gibberish", nil, "")
	json.Unmarshal(w.Body.Bytes(), &p)
	if p["parsed_date"] != "2025-05-29" || p["matched"] != false || p["is_valid"] != true {
		t.Errorf("expected fallback to the reference date, got %v", p)
	}

	w = do(t, s, http.MethodGet, "/api/v1/dates/range?input="+url.QueryEscape("next month"), nil, "")
	json.Unmarshal(w.Body.Bytes(), &p)
	if p["start"] != "2025-06-01" || p["end"] != "2025-06-30" || p["single_day"] != false {
		t.Errorf("unexpected range response %v", p)
	}

	if w := do(t, s, http.MethodGet, "/api/v1/dates/parse", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without input, got %d", w.Code)
	}
}

func TestUserRoutes(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := do(t, s, http.MethodGet, "/api/v1/users/me", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"Your Name"`) {
		t.Fatalf("unexpected me response %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/users/login", map[string]string{"userId": "jane", "name": "Jane Smith", "photo": "/static/user2.png"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Login successful") {
		t.Fatalf("unexpected login response %d: %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, s, http.MethodPost, "/api/v1/users/login", map[string]string{"name": "No Id"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a user id, got %d", w.Code)
	}

	w = do(t, s, http.MethodGet, "/api/v1/users", nil, "")
	var users []store.User
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %+v", users)
	}
}

func TestSpeechRoutes(t *testing.T) {
	s, _ := setupTestServer(t, true)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("audio", "clip.wav")
	part.Write([]byte("hello"))
	mw.Close()
	w := do(t, s, http.MethodPost, "/api/v1/speech-to-text", &body, mw.FormDataContentType())
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "heard hello") {
		t.Fatalf("unexpected stt response %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/text-to-speech", map[string]string{"text": "Hola", "voice_id": "es-ES"})
	if w.Code != http.StatusOK || w.Body.String() != "es:Hola" || w.Header().Get("Content-Type") != "audio/wav" {
		t.Fatalf("unexpected tts response %d %q %q", w.Code, w.Body.String(), w.Header().Get("Content-Type"))
	}

	if w := doJSON(t, s, http.MethodPost, "/api/v1/text-to-speech", map[string]string{"text": ""}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty text, got %d", w.Code)
	}
}

func TestSpeechRoutesWithoutServices(t *testing.T) {
	s, _ := setupTestServer(t, false)
	w := doJSON(t, s, http.MethodPost, "/api/v1/text-to-speech", map[string]string{"text": "hi"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrInvalid, http.StatusBadRequest},
		{store.ErrConflict, http.StatusConflict},
		{&store.MatchConflictError{}, http.StatusConflict},
		{speech.ErrNotConfigured, http.StatusServiceUnavailable},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v): expected %d, got %d", tc.err, tc.want, got)
		}
	}
}
