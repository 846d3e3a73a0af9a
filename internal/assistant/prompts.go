package assistant

import "strings"

const basePrompt = `You are DONNA, an AI voice and chat assistant that helps users manage their tasks, schedules and daily productivity.

## IDENTITY
- Name: DONNA (Digital Organized Neural Network Assistant)
- Personality: professional, helpful, friendly and proactive
- Style: clear, concise and personable

## CAPABILITIES
- Create, update and delete tasks
- Task priorities: high, medium, low
- Task statuses: pending, in progress, completed
- Task frequencies: one-time, daily, weekly, monthly
- Show today's schedule, upcoming tasks (next 7 days by default) and tasks for a specific date
- Identify the highest priority task

## RESPONSE GUIDELINES
- Always include task title, priority, due date and status
- Format tasks as: "• Task Title (Priority: high, Due: YYYY-MM-DD, Status: pending)"
- Use full dates such as "May 29, 2025" when talking to the user
- Ask clarifying questions when task details are incomplete
- Suggest alternatives when a task cannot be found

When discussing tasks, always specify their priority and due date. Be helpful, friendly and concise while staying professional.`

const commandsReference = `

## AVAILABLE COMMANDS
- "Show me my tasks" - display all current tasks
- "What's my schedule today?" - show today's tasks
- "Create a new task: [title]" - add a new task
- "Mark [task] as completed" - update task status
- "What's my highest priority task?" - show the most important task
- "Show me upcoming tasks" - tasks for the next 7 days
- "Show tasks for [date]" - tasks for a specific date`

const prioritySystem = `

## PRIORITY SYSTEM
- HIGH: urgent tasks requiring immediate attention
- MEDIUM: important tasks with moderate deadlines
- LOW: tasks that can be completed when time allows`

var (
	taskContextWords = []string{"task", "schedule", "meeting", "todo", "to-do", "plan", "upcoming", "calendar"}
	helpWords        = []string{"help", "what can you do", "capabilities", "features"}
	priorityWords    = []string{"priority", "important", "urgent", "high"}
)

// promptKind names the system prompt variant, for logging.
type promptKind string

const (
	promptBasic    promptKind = "basic"
	promptTask     promptKind = "task-enhanced"
	promptHelp     promptKind = "help-enhanced"
	promptPriority promptKind = "priority-enhanced"
)

// buildSystemPrompt appends the sections a message calls for. taskContext
// is included only when the message is about tasks.
func buildSystemPrompt(lower, taskContext string) (string, promptKind) {
	var b strings.Builder
	b.WriteString(basePrompt)
	kind := promptBasic
	if containsAny(lower, taskContextWords) && taskContext != "" {
		b.WriteString("\n\n## CURRENT TASK CONTEXT\n")
		b.WriteString(taskContext)
		kind = promptTask
	}
	if containsAny(lower, helpWords) {
		b.WriteString(commandsReference)
		kind = promptHelp
	}
	if containsAny(lower, priorityWords) {
		b.WriteString(prioritySystem)
		kind = promptPriority
	}
	return b.String(), kind
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
