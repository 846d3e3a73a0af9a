// Package query narrows a task list with the constraints found in a free-form
// question such as "high priority tasks this week".
//
// A question is read in four fixed stages: date, priority, status and
// frequency. Each stage takes the first keyword it recognizes and filters the
// output of the previous stage, so the result is the conjunction of every
// constraint found, in the original task order.
package query

import (
	"strings"

	"github.com/amirbrooks/donna/internal/dateparse"
	"github.com/amirbrooks/donna/internal/store"
)

// dateKeywords is scanned in order; the first substring hit wins.
var dateKeywords = []string{
	"today",
	"tomorrow",
	"yesterday",
	"this week",
	"next week",
	"this month",
	"next month",
	"end of month",
}

type keyword struct {
	phrase string
	value  string
}

var priorityKeywords = []keyword{
	{"high priority", store.PriorityHigh},
	{"high", store.PriorityHigh},
	{"medium priority", store.PriorityMedium},
	{"medium", store.PriorityMedium},
	{"low priority", store.PriorityLow},
	{"low", store.PriorityLow},
}

var statusKeywords = []keyword{
	{"completed", store.StatusCompleted},
	{"pending", store.StatusPending},
	{"in progress", store.StatusInProgress},
}

var frequencyKeywords = []keyword{
	{"daily", store.FrequencyDaily},
	{"weekly", store.FrequencyWeekly},
	{"monthly", store.FrequencyMonthly},
}

// Filter is the set of constraints read from one question. Empty fields
// impose nothing.
type Filter struct {
	DatePhrase string           `json:"date_phrase,omitempty"`
	Date       *dateparse.Date  `json:"date,omitempty"`
	Range      *dateparse.Range `json:"range,omitempty"`
	Priority   string           `json:"priority,omitempty"`
	Status     string           `json:"status,omitempty"`
	Frequency  string           `json:"frequency,omitempty"`
}

// IsEmpty reports whether the question carried no recognizable constraint.
func (f Filter) IsEmpty() bool {
	return f.Date == nil && f.Range == nil && f.Priority == "" && f.Status == "" && f.Frequency == ""
}

// Extract reads the constraints of q relative to ref.
func Extract(q string, ref dateparse.Date) Filter {
	lower := strings.ToLower(q)
	var f Filter
	for _, phrase := range dateKeywords {
		if !strings.Contains(lower, phrase) {
			continue
		}
		f.DatePhrase = phrase
		if dateparse.IsRangePhrase(phrase) {
			r := dateparse.ParseRange(phrase, ref)
			f.Range = &r
		} else {
			d := dateparse.ParseDate(phrase, ref)
			f.Date = &d
		}
		break
	}
	f.Priority = firstHit(lower, priorityKeywords)
	f.Status = firstHit(lower, statusKeywords)
	f.Frequency = firstHit(lower, frequencyKeywords)
	return f
}

func firstHit(lower string, table []keyword) string {
	for _, k := range table {
		if strings.Contains(lower, k.phrase) {
			return k.value
		}
	}
	return ""
}

// Apply keeps the tasks that satisfy every constraint of f, in order.
// A task without a due date never satisfies a date constraint.
func (f Filter) Apply(tasks []store.Task) []store.Task {
	out := tasks
	switch {
	case f.Range != nil:
		r := *f.Range
		out = store.FilterTasks(out, func(t store.Task) bool { return r.Contains(t.DueDate) })
	case f.Date != nil:
		want := f.Date.String()
		out = store.FilterTasks(out, func(t store.Task) bool { return t.DueDate == want })
	}
	if f.Priority != "" {
		out = store.FilterTasks(out, func(t store.Task) bool { return t.Priority == f.Priority })
	}
	if f.Status != "" {
		out = store.FilterTasks(out, func(t store.Task) bool { return t.Status == f.Status })
	}
	if f.Frequency != "" {
		out = store.FilterTasks(out, func(t store.Task) bool { return t.Frequency == f.Frequency })
	}
	if out == nil {
		return []store.Task{}
	}
	return out
}

// Resolve filters tasks by every constraint found in q.
func Resolve(q string, tasks []store.Task, ref dateparse.Date) []store.Task {
	return Extract(q, ref).Apply(tasks)
}

// OnExactDate keeps the tasks due on the day raw describes.
func OnExactDate(tasks []store.Task, raw string, ref dateparse.Date) []store.Task {
	want := dateparse.ParseDate(raw, ref).String()
	return store.FilterTasks(tasks, func(t store.Task) bool { return t.DueDate == want })
}

// InRange keeps the tasks due inside the range raw describes, bounds included.
func InRange(tasks []store.Task, raw string, ref dateparse.Date) []store.Task {
	r := dateparse.ParseRange(raw, ref)
	return store.FilterTasks(tasks, func(t store.Task) bool { return r.Contains(t.DueDate) })
}

// DateCheck echoes how a raw expression was read. IsValid is always true:
// unparseable input resolves to the reference date rather than failing.
type DateCheck struct {
	OriginalInput string `json:"original_input"`
	ParsedDate    string `json:"parsed_date"`
	IsValid       bool   `json:"is_valid"`
	Rule          string `json:"rule"`
	Matched       bool   `json:"matched"`
}

func ValidateAndDescribe(raw string, ref dateparse.Date) DateCheck {
	res := dateparse.Parse(raw, ref)
	return DateCheck{
		OriginalInput: raw,
		ParsedDate:    res.Date.String(),
		IsValid:       true,
		Rule:          res.Rule,
		Matched:       res.Matched,
	}
}
