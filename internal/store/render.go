package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/amirbrooks/donna/internal/dateparse"
)

// RenderToday lists the tasks due on ref plus the daily recurring ones.
// A free day shows the next few upcoming tasks instead.
func (w *Workspace) RenderToday(userID string, ref dateparse.Date, format string) (string, error) {
	dueToday, err := w.TodayTasks(userID, ref)
	if err != nil {
		return "", err
	}
	daily, err := w.DailyTasks(userID)
	if err != nil {
		return "", err
	}
	daily = withoutTasks(daily, dueToday)

	var b strings.Builder
	b.WriteString(heading("📅", "Today's Schedule - "+ref.Display(), format))
	b.WriteString("\n\n")

	if len(dueToday)+len(daily) == 0 {
		b.WriteString(heading("✨", "No tasks scheduled for today!", format))
		b.WriteString("\nYou have a free day to focus on other priorities or take a break.\n")
		upcoming, err := w.UpcomingTasks(userID, ref, 3)
		if err != nil {
			return "", err
		}
		if len(upcoming) > 0 {
			b.WriteString("\n")
			b.WriteString(heading("🔮", "Coming up soon:", format))
			b.WriteString("\n")
			for _, t := range firstN(upcoming, 3) {
				fmt.Fprintf(&b, "  %s %s (due %s)\n", priorityMarker(t.Priority, format), cleanTaskTitle(t.Title), t.DueDate)
			}
		}
		return finish(b.String(), format), nil
	}

	if len(dueToday) > 0 {
		b.WriteString(heading("🗓️", "Scheduled for today:", format))
		b.WriteString("\n")
		for _, t := range dueToday {
			fmt.Fprintf(&b, "  %s %s %s\n", statusMarker(t.Status, format), priorityMarker(t.Priority, format), emphasize(cleanTaskTitle(t.Title), format))
			if t.Description != "" {
				fmt.Fprintf(&b, "      %s\n", t.Description)
			}
			fmt.Fprintf(&b, "      Priority: %s | Status: %s\n", strings.ToUpper(t.Priority), w.StatusName(t.Status))
		}
		b.WriteString("\n")
	}
	if len(daily) > 0 {
		b.WriteString(heading("🔄", "Daily recurring:", format))
		b.WriteString("\n")
		for _, t := range daily {
			fmt.Fprintf(&b, "  %s %s %s (priority %s)\n", statusMarker(t.Status, format), priorityMarker(t.Priority, format), emphasize(cleanTaskTitle(t.Title), format), strings.ToUpper(t.Priority))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s %d tasks for today\n", emphasize("Summary:", format), len(dueToday)+len(daily))
	return finish(b.String(), format), nil
}

// RenderWeek shows the seven days starting at ref. Daily recurring tasks
// appear on every day; each day is sorted by priority.
func (w *Workspace) RenderWeek(userID string, ref dateparse.Date, format string) (string, error) {
	all, err := w.AllTasks(userID)
	if err != nil {
		return "", err
	}
	daily := FilterTasks(all, func(t Task) bool { return !t.IsCompleted() && t.Frequency == FrequencyDaily })

	var b strings.Builder
	b.WriteString(heading("📅", "Your Week Ahead", format))
	b.WriteString("\n\n")

	wrote := false
	for i := 0; i < 7; i++ {
		day := ref.AddDays(i)
		key := day.String()
		dayTasks := FilterTasks(all, func(t Task) bool { return !t.IsCompleted() && t.DueDate == key })
		dayTasks = append(dayTasks, withoutTasks(daily, dayTasks)...)
		if len(dayTasks) == 0 {
			continue
		}
		wrote = true
		sortByPriority(dayTasks)
		label := fmt.Sprintf("%s, %s", day.Time().Weekday(), day.Time().Format("January 02"))
		b.WriteString(heading("📆", label, format))
		b.WriteString("\n")
		for _, t := range dayTasks {
			line := fmt.Sprintf("  %s %s", statusMarker(t.Status, format), priorityMarker(t.Priority, format))
			if isChatFormat(format) {
				line += " " + frequencyMarker(t.Frequency)
			}
			line += " " + emphasize(cleanTaskTitle(t.Title), format)
			if !isChatFormat(format) && t.Frequency == FrequencyDaily {
				line += " (daily)"
			}
			b.WriteString(line + "\n")
			if t.Description != "" && t.Frequency != FrequencyDaily {
				fmt.Fprintf(&b, "      %s\n", truncate(t.Description, 60))
			}
		}
		b.WriteString("\n")
	}
	if !wrote {
		b.WriteString(heading("✨", "No scheduled tasks for the next 7 days!", format))
		b.WriteString("\nA good time to plan new goals or focus on long-term projects.\n\n")
	}

	highs := FilterTasks(all, func(t Task) bool { return !t.IsCompleted() && t.Priority == PriorityHigh })
	if len(highs) > 0 {
		b.WriteString(heading("🚨", "High priority items needing attention:", format))
		b.WriteString("\n")
		for _, t := range firstN(highs, 3) {
			fmt.Fprintf(&b, "  %s %s (due %s)\n", priorityMarker(t.Priority, format), emphasize(cleanTaskTitle(t.Title), format), t.DueDate)
		}
	}
	return finish(b.String(), format), nil
}

// RenderRange groups tasks by due date under a title such as "this week".
func RenderRange(label string, tasks []Task, format string) string {
	if len(tasks) == 0 {
		return withIcon("📅", "No tasks found for "+label+".", format)
	}
	byDate := map[string][]Task{}
	for _, t := range tasks {
		byDate[t.DueDate] = append(byDate[t.DueDate], t)
	}
	keys := make([]string, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(withIcon("📅", "Your schedule for "+label+":", format) + "\n")
	for _, key := range keys {
		b.WriteString("\n" + withIcon("📆", key+":", format) + "\n")
		for _, t := range byDate[key] {
			fmt.Fprintf(&b, "  %s %s %s\n", statusMarker(t.Status, format), priorityMarker(t.Priority, format), cleanTaskTitle(t.Title))
			if t.Description != "" {
				fmt.Fprintf(&b, "    %s\n", t.Description)
			}
		}
	}
	return finish(b.String(), format)
}

// RenderDay lists the tasks of a single day with priority and status.
func RenderDay(label string, tasks []Task, format string) string {
	if len(tasks) == 0 {
		return withIcon("📅", "No tasks found for "+label+".", format)
	}
	var b strings.Builder
	b.WriteString(withIcon("📅", "Tasks for "+label+":", format) + "\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "%s %s %s\n", statusMarker(t.Status, format), priorityMarker(t.Priority, format), cleanTaskTitle(t.Title))
		if t.Description != "" {
			fmt.Fprintf(&b, "  %s\n", t.Description)
		}
		fmt.Fprintf(&b, "  Priority: %s | Status: %s\n", t.Priority, t.Status)
	}
	return finish(b.String(), format)
}

// RenderList prints one line per task, the way "ls" shows them.
func RenderList(tasks []Task, format string) string {
	if len(tasks) == 0 {
		return "(no tasks)"
	}
	var b strings.Builder
	for _, t := range tasks {
		due := ""
		if t.DueDate != "" {
			due = " (due " + t.DueDate + ")"
		}
		freq := ""
		if t.Frequency != "" && t.Frequency != FrequencyOneTime {
			freq = " [" + t.Frequency + "]"
		}
		fmt.Fprintf(&b, "%s %s %s%s%s\n", statusMarker(t.Status, format), priorityMarker(t.Priority, format), cleanTaskTitle(t.Title), due, freq)
	}
	return finish(b.String(), format)
}

// RenderContext summarizes a user's workload for a language model prompt.
func (w *Workspace) RenderContext(userID string, ref dateparse.Date) (string, error) {
	const format = FormatChat
	all, err := w.AllTasks(userID)
	if err != nil {
		return "", err
	}
	var lines []string
	lines = append(lines, "📅 Today's Date: "+ref.Display())

	today, err := w.TodayTasks(userID, ref)
	if err != nil {
		return "", err
	}
	if len(today) > 0 {
		lines = append(lines, fmt.Sprintf("\n📋 TODAY'S TASKS (%d tasks):", len(today)))
		for _, t := range today {
			lines = append(lines, fmt.Sprintf("  %s %s %s", statusMarker(t.Status, format), priorityMarker(t.Priority, format), t.Title))
			if t.Description != "" {
				lines = append(lines, "      Description: "+t.Description)
			}
			lines = append(lines, fmt.Sprintf("      Priority: %s | Status: %s", t.Priority, t.Status))
		}
	} else {
		lines = append(lines, "\n📋 TODAY'S TASKS: No tasks scheduled for today")
	}

	if top, err := w.HighestPriority(userID); err == nil {
		lines = append(lines, "\n🚨 HIGHEST PRIORITY TASK:")
		lines = append(lines, "   "+top.Title)
		lines = append(lines, fmt.Sprintf("   Due: %s | Status: %s", top.DueDate, top.Status))
	}

	upcoming, err := w.UpcomingTasks(userID, ref, 7)
	if err != nil {
		return "", err
	}
	if len(upcoming) > 0 {
		lines = append(lines, fmt.Sprintf("\n📈 UPCOMING TASKS (Next 7 days - %d tasks):", len(upcoming)))
		for _, t := range firstN(upcoming, 5) {
			lines = append(lines, fmt.Sprintf("  %s %s (Due: %s)", priorityMarker(t.Priority, format), t.Title, t.DueDate))
		}
		if len(upcoming) > 5 {
			lines = append(lines, fmt.Sprintf("  ... and %d more tasks", len(upcoming)-5))
		}
	} else {
		lines = append(lines, "\n📈 UPCOMING TASKS: No upcoming tasks in the next 7 days")
	}

	daily := FilterTasks(all, func(t Task) bool { return !t.IsCompleted() && t.Frequency == FrequencyDaily })
	if len(daily) > 0 {
		lines = append(lines, fmt.Sprintf("\n🔄 DAILY RECURRING TASKS (%d tasks):", len(daily)))
		for _, t := range daily {
			lines = append(lines, fmt.Sprintf("  %s %s (Priority: %s)", priorityMarker(t.Priority, format), t.Title, t.Priority))
		}
	}

	if len(all) > 0 {
		counts := map[string]int{}
		for _, t := range all {
			counts[t.Status]++
		}
		lines = append(lines, "\n📊 TASK SUMMARY:")
		lines = append(lines, fmt.Sprintf("   Total Tasks: %d", len(all)))
		lines = append(lines, fmt.Sprintf("   Completed: %d | In Progress: %d | Pending: %d",
			counts[StatusCompleted], counts[StatusInProgress], counts[StatusPending]))
	}
	return strings.Join(lines, "\n"), nil
}

func (t *Task) RenderHuman() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s\n", t.Title))
	b.WriteString(fmt.Sprintf("ID: %s\n", t.ID))
	b.WriteString(fmt.Sprintf("Status: %s\n", t.Status))
	b.WriteString(fmt.Sprintf("Priority: %s\n", t.Priority))
	b.WriteString(fmt.Sprintf("Frequency: %s\n", t.Frequency))
	if t.DueDate != "" {
		b.WriteString(fmt.Sprintf("Due: %s\n", t.DueDate))
	}
	if t.Description != "" {
		b.WriteString(fmt.Sprintf("Description: %s\n", t.Description))
	}
	if strings.TrimSpace(t.Notes) != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(t.Notes, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func withIcon(icon, text, format string) string {
	if isChatFormat(format) {
		return icon + " " + text
	}
	return text
}

// sortByPriority is stable so equal priorities keep store order.
func sortByPriority(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return PriorityRank(tasks[i].Priority) > PriorityRank(tasks[j].Priority)
	})
}

func withoutTasks(tasks, exclude []Task) []Task {
	seen := make(map[string]bool, len(exclude))
	for _, t := range exclude {
		seen[t.ID] = true
	}
	return FilterTasks(tasks, func(t Task) bool { return !seen[t.ID] })
}

func firstN(tasks []Task, n int) []Task {
	if len(tasks) <= n {
		return tasks
	}
	return tasks[:n]
}
