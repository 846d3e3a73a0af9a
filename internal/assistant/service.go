// Package assistant answers chat messages about a user's tasks. Date
// questions and filter questions are answered from the task store directly;
// anything else goes to a language model, with canned replies when the model
// is missing or failing.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amirbrooks/donna/internal/dateparse"
	"github.com/amirbrooks/donna/internal/query"
	"github.com/amirbrooks/donna/internal/store"
)

// Reply sources.
const (
	SourceShortcut = "shortcut"
	SourceQuery    = "query"
	SourceSchedule = "schedule"
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

var ErrEmptyMessage = errors.New("message is required")

// Tasks is the part of the task store the assistant reads.
type Tasks interface {
	AllTasks(userID string) ([]store.Task, error)
	UpcomingTasks(userID string, ref dateparse.Date, days int) ([]store.Task, error)
	TasksForFlexibleDate(userID, raw string, ref dateparse.Date) (dateparse.Date, []store.Task, error)
	TasksForDateRange(userID, raw string, ref dateparse.Date) (dateparse.Range, []store.Task, error)
	RenderToday(userID string, ref dateparse.Date, format string) (string, error)
	RenderWeek(userID string, ref dateparse.Date, format string) (string, error)
	RenderContext(userID string, ref dateparse.Date) (string, error)
}

type Reply struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Source   string `json:"source"`
}

type ModelInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Status   string `json:"status"`
}

type Service struct {
	tasks Tasks
	llm   LLM
	log   *slog.Logger
	now   func() time.Time
	pick  func(n int) int
}

// New builds a Service. llm may be nil, which keeps every reply local.
func New(tasks Tasks, llm LLM, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		tasks: tasks,
		llm:   llm,
		log:   log,
		now:   time.Now,
		pick:  rand.Intn,
	}
}

// Models reports the configured model and whether it can be reached.
func (s *Service) Models() ModelInfo {
	info := ModelInfo{Provider: "openai", Model: openaiModel, Status: "offline"}
	if s.llm != nil {
		info.Model = s.llm.Model()
		if s.llmReady() {
			info.Status = "online"
		}
	}
	return info
}

func (s *Service) llmReady() bool {
	if s.llm == nil {
		return false
	}
	if c, ok := s.llm.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}

// Respond answers message for userID with ref as "today".
func (s *Service) Respond(ctx context.Context, userID, message string, ref dateparse.Date) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}
	lower := strings.ToLower(message)

	if text, ok, err := s.answerFilterQuery(userID, lower, ref); err != nil || ok {
		return reply(text, SourceQuery), err
	}
	if text, ok, err := s.answerDateShortcut(userID, lower, ref); err != nil || ok {
		return reply(text, SourceShortcut), err
	}
	if text, ok, err := s.answerSchedule(userID, lower, ref); err != nil || ok {
		return reply(text, SourceSchedule), err
	}

	if s.llmReady() {
		taskContext := ""
		if containsAny(lower, taskContextWords) {
			c, err := s.tasks.RenderContext(userID, ref)
			if err != nil {
				return Reply{}, err
			}
			taskContext = c
		}
		prompt, kind := buildSystemPrompt(lower, taskContext)
		s.log.Info("calling language model", "user", userID, "prompt", string(kind), "model", s.llm.Model())
		text, err := s.llm.Complete(ctx, []Message{
			{Role: "system", Content: prompt},
			{Role: "user", Content: message},
		})
		if err == nil && strings.TrimSpace(text) != "" {
			return reply(text, SourceLLM), nil
		}
		if err != nil {
			s.log.Warn("language model failed, using fallback", "user", userID, "err", err)
		}
	}

	text, err := s.fallback(userID, lower, ref)
	return reply(text, SourceFallback), err
}

func reply(text, source string) Reply {
	return Reply{Success: true, Response: text, Source: source}
}

// taskWords mark a message as being about tasks rather than small talk.
var taskWords = []string{"task", "todo", "to-do", "schedule", "things", "items", "anything", "what's due", "due"}

// answerFilterQuery handles "high priority tasks this week" style questions:
// a priority, status or frequency keyword together with a task word.
func (s *Service) answerFilterQuery(userID, lower string, ref dateparse.Date) (string, bool, error) {
	f := query.Extract(lower, ref)
	if f.Priority == "" && f.Status == "" && f.Frequency == "" {
		return "", false, nil
	}
	if !containsAny(lower, taskWords) {
		return "", false, nil
	}
	all, err := s.tasks.AllTasks(userID)
	if err != nil {
		return "", false, err
	}
	matches := f.Apply(all)
	label := describeFilter(f)
	if len(matches) == 0 {
		return fmt.Sprintf("📋 No %s found.", label), true, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Your %s (%d):\n", label, len(matches))
	for _, t := range matches {
		fmt.Fprintf(&b, "• %s (Priority: %s, Due: %s, Status: %s)\n", t.Title, t.Priority, dueOrNone(t.DueDate), t.Status)
	}
	return strings.TrimRight(b.String(), "\n"), true, nil
}

func describeFilter(f query.Filter) string {
	var parts []string
	if f.Status != "" {
		parts = append(parts, f.Status)
	}
	if f.Priority != "" {
		parts = append(parts, f.Priority+" priority")
	}
	if f.Frequency != "" {
		parts = append(parts, f.Frequency)
	}
	parts = append(parts, "tasks")
	if f.DatePhrase != "" {
		parts = append(parts, f.DatePhrase)
	}
	return strings.Join(parts, " ")
}

func dueOrNone(due string) string {
	if due == "" {
		return "none"
	}
	return due
}

type shortcut struct {
	re *regexp.Regexp
	// answer returns ok=false to pass the message on to later stages.
	answer func(s *Service, userID string, m []string, ref dateparse.Date) (text string, ok bool, err error)
}

// shortcuts is tried in order; the first pattern that answers wins.
var shortcuts = []shortcut{
	{regexp.MustCompile(`\btoday\b`), func(s *Service, userID string, _ []string, ref dateparse.Date) (string, bool, error) {
		text, err := s.tasks.RenderToday(userID, ref, store.FormatChat)
		return text, true, err
	}},
	{regexp.MustCompile(`\b(tomorrow|next day)\b`), func(s *Service, userID string, _ []string, ref dateparse.Date) (string, bool, error) {
		_, tasks, err := s.tasks.TasksForFlexibleDate(userID, "tomorrow", ref)
		return store.RenderDay("tomorrow", tasks, store.FormatChat), true, err
	}},
	{regexp.MustCompile(`next (\d+)(?: |-)days?`), func(s *Service, userID string, m []string, ref dateparse.Date) (string, bool, error) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return "", false, nil
		}
		if _, ok := ref.AddDaysChecked(n); !ok {
			return "", false, nil
		}
		_, tasks, err := s.tasks.TasksForDateRange(userID, fmt.Sprintf("next %d days", n), ref)
		return store.RenderRange(fmt.Sprintf("the next %d days", n), tasks, store.FormatChat), true, err
	}},
	{regexp.MustCompile(`\b(this|next) week\b`), func(s *Service, userID string, m []string, ref dateparse.Date) (string, bool, error) {
		phrase := m[1] + " week"
		_, tasks, err := s.tasks.TasksForDateRange(userID, phrase, ref)
		return store.RenderRange(phrase, tasks, store.FormatChat), true, err
	}},
}

// explicitDateRules are the parser rules that identify a concrete calendar
// date inside a sentence.
var explicitDateRules = map[string]bool{
	dateparse.RuleISO:          true,
	dateparse.RuleMonthDayYear: true,
	dateparse.RuleDayMonthYear: true,
	dateparse.RuleSlashDate:    true,
	dateparse.RuleDashDate:     true,
	dateparse.RuleInDays:       true,
}

func (s *Service) answerDateShortcut(userID, lower string, ref dateparse.Date) (string, bool, error) {
	for _, sc := range shortcuts {
		m := sc.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if text, ok, err := sc.answer(s, userID, m, ref); ok || err != nil {
			return text, true, err
		}
	}
	res := dateparse.Parse(lower, ref)
	if !res.Matched || !explicitDateRules[res.Rule] {
		return "", false, nil
	}
	_, tasks, err := s.tasks.TasksForFlexibleDate(userID, res.Date.String(), ref)
	return store.RenderDay(res.Date.Display(), tasks, store.FormatChat), true, err
}

func (s *Service) answerSchedule(userID, lower string, ref dateparse.Date) (string, bool, error) {
	if !strings.Contains(lower, "schedule") && !strings.Contains(lower, "show me my tasks") {
		return "", false, nil
	}
	if strings.Contains(lower, "week") || strings.Contains(lower, "organize") {
		text, err := s.tasks.RenderWeek(userID, ref, store.FormatChat)
		return text, true, err
	}
	text, err := s.tasks.RenderContext(userID, ref)
	return text, true, err
}
