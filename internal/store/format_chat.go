package store

import (
	"strings"
)

// Output formats accepted by the renderers.
const (
	FormatPlain = "plain"
	FormatChat  = "chat"
)

const chatMaxChars = 3800

func isChatFormat(format string) bool {
	return strings.ToLower(strings.TrimSpace(format)) == FormatChat
}

func trimChatOutput(s string) string {
	s = strings.TrimRight(s, "\n")
	runes := []rune(s)
	if len(runes) <= chatMaxChars {
		return s
	}
	suffix := "\n… (truncated)"
	limit := chatMaxChars - len([]rune(suffix))
	return string(runes[:limit]) + suffix
}

func finish(s, format string) string {
	if isChatFormat(format) {
		return trimChatOutput(s)
	}
	return strings.TrimRight(s, "\n")
}

func priorityMarker(priority, format string) string {
	if isChatFormat(format) {
		switch NormalizePriority(priority) {
		case PriorityHigh:
			return "🔴"
		case PriorityMedium:
			return "🟡"
		default:
			return "🟢"
		}
	}
	switch NormalizePriority(priority) {
	case PriorityHigh:
		return "[H]"
	case PriorityMedium:
		return "[M]"
	case PriorityLow:
		return "[L]"
	default:
		return "[?]"
	}
}

func statusMarker(status, format string) string {
	if isChatFormat(format) {
		switch NormalizeStatus(status) {
		case StatusCompleted:
			return "✅"
		case StatusInProgress:
			return "🔄"
		default:
			return "⏳"
		}
	}
	switch NormalizeStatus(status) {
	case StatusCompleted:
		return "✓"
	case StatusInProgress:
		return "~"
	default:
		return "·"
	}
}

func frequencyMarker(frequency string) string {
	if frequency == FrequencyDaily {
		return "🔄"
	}
	return "📋"
}

// heading marks a section title; chat replies render Markdown bold.
func heading(icon, text, format string) string {
	if isChatFormat(format) {
		return icon + " **" + text + "**"
	}
	return text
}

func emphasize(text, format string) string {
	if isChatFormat(format) {
		return "**" + text + "**"
	}
	return text
}

func cleanTaskTitle(title string) string {
	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.TrimSpace(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
