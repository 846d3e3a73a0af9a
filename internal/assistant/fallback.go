package assistant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/amirbrooks/donna/internal/dateparse"
	"github.com/amirbrooks/donna/internal/store"
)

var (
	dateTimeWords = []string{"date", "time", "when"}
	taskListWords = []string{"schedule", "tasks", "meetings", "todo", "to-do"}
	wellBeing     = []string{"how are you", "how do you feel", "what's up"}
	helpRequest   = []string{"help", "assist", "support", "what can you do", "capabilities"}
	createWords   = []string{"create", "add", "new"}

	greetingRe = regexp.MustCompile(`\b(hi|hello|hey|greetings|good morning|good afternoon|good evening)\b`)
)

var greetings = []string{
	"Hello! I'm DONNA, your AI productivity assistant. 🤖",
	"Hi there! I'm DONNA, ready to help you manage your tasks and schedule. 📋",
	"Hey! I'm DONNA, your personal AI assistant for task management. ✨",
	"Greetings! I'm DONNA, here to help you stay organized and productive. 🚀",
}

var wellBeingReplies = []string{
	"I'm functioning perfectly and ready to help you be more productive! 💪",
	"I'm doing great and excited to help you organize your day! ⚡",
	"I'm operating at full capacity and looking forward to helping you tackle your tasks! 🎯",
	"I'm excellent, thank you for asking! How can I help make your day more organized? 📊",
}

const helpText = `🤖 I'm DONNA, your AI assistant! Here's how I can help:

📋 **Task Management:**
• Create, update, and delete tasks
• Set priorities and due dates
• Track task progress and status

📅 **Schedule Organization:**
• View today's tasks and schedule
• Show upcoming tasks and deadlines
• Manage recurring tasks

💡 **Just ask me things like:**
• "Show me my tasks"
• "What's my schedule today?"
• "High priority tasks this week"
• "What's due on 2025-06-15?"

How would you like to get started?`

const createHint = "🆕 I can help you create a new task! Please tell me:\n" +
	"• Task title\n• Due date (optional)\n• Priority level (high/medium/low)\n• Any description or notes\n\n" +
	"For example: 'Create a high priority task: Review presentation by Friday'"

const defaultReply = `🤖 I'm DONNA, your AI productivity assistant!

I can help you with:
📋 Managing your tasks and to-do lists
📅 Organizing your schedule and deadlines

Try asking me:
• "Show me my tasks"
• "What's my schedule today?"
• "What can you do?"

What would you like to work on?`

const fallbackUpcomingLimit = 5

// fallback answers without a language model. The first matching category wins.
func (s *Service) fallback(userID, lower string, ref dateparse.Date) (string, error) {
	switch {
	case containsAny(lower, dateTimeWords):
		now := s.now()
		return fmt.Sprintf("📅 Today's date is %s\n🕐 Current time is %s",
			ref.Display(), now.Format("03:04 PM")), nil
	case containsAny(lower, taskListWords):
		if strings.Contains(lower, "upcoming") {
			return s.upcomingReply(userID, ref)
		}
		return s.tasks.RenderContext(userID, ref)
	case greetingRe.MatchString(lower):
		return greetings[s.pick(len(greetings))] + "\n\nHow can I help you today?", nil
	case containsAny(lower, wellBeing):
		return wellBeingReplies[s.pick(len(wellBeingReplies))], nil
	case containsAny(lower, helpRequest):
		return helpText, nil
	case containsAny(lower, createWords):
		return createHint, nil
	}
	return defaultReply, nil
}

func (s *Service) upcomingReply(userID string, ref dateparse.Date) (string, error) {
	tasks, err := s.tasks.UpcomingTasks(userID, ref, 7)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "📈 You don't have any upcoming tasks in the next 7 days.", nil
	}
	lines := []string{"📈 Here are your upcoming tasks:"}
	for i, t := range tasks {
		if i == fallbackUpcomingLimit {
			lines = append(lines, fmt.Sprintf("... and %d more tasks", len(tasks)-fallbackUpcomingLimit))
			break
		}
		lines = append(lines, fmt.Sprintf("%s %s (Due: %s)", priorityEmoji(t.Priority), t.Title, t.DueDate))
	}
	return strings.Join(lines, "\n"), nil
}

func priorityEmoji(priority string) string {
	switch priority {
	case store.PriorityHigh:
		return "🔴"
	case store.PriorityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}
