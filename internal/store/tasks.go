package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/amirbrooks/donna/internal/dateparse"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in progress"
	StatusCompleted  = "completed"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"

	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyOneTime = "one-time"
)

// maxUpcomingDays bounds UpcomingTasks windows to ten years.
const maxUpcomingDays = 3660

type TaskMeta struct {
	Schema      int        `yaml:"schema" json:"-"`
	ID          string     `yaml:"id" json:"id"`
	User        string     `yaml:"user" json:"user"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description,omitempty" json:"description"`
	DueDate     string     `yaml:"due_date" json:"due_date"`
	Priority    string     `yaml:"priority" json:"priority"`
	Status      string     `yaml:"status" json:"status"`
	Frequency   string     `yaml:"frequency" json:"frequency"`
	CreatedAt   *time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Task is one Markdown file: YAML frontmatter plus a free-form notes body.
type Task struct {
	TaskMeta
	Path  string `json:"-"`
	Notes string `json:"notes,omitempty"`
}

// TaskInput carries the writable fields of a task. SetTask requires every
// field except Description; CreateTask fills the gaps first.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	Priority    string `json:"priority"`
	Frequency   string `json:"frequency"`
	Status      string `json:"status"`
}

type ListFilter struct {
	Status    string
	Priority  string
	Frequency string
	Search    string
}

// PriorityRank orders priorities high=3, medium=2, low=1. Unknown values rank 0.
func PriorityRank(p string) int {
	switch NormalizePriority(p) {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func NormalizePriority(p string) string {
	p = strings.TrimSpace(strings.ToLower(p))
	switch p {
	case "high", "h", "urgent", "u":
		return PriorityHigh
	case "medium", "med", "m", "normal", "n":
		return PriorityMedium
	case "low", "l":
		return PriorityLow
	default:
		return p
	}
}

func NormalizeStatus(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "pending", "todo", "open":
		return StatusPending
	case "in progress", "in-progress", "in_progress", "inprogress", "doing", "started":
		return StatusInProgress
	case "completed", "complete", "done", "finished":
		return StatusCompleted
	default:
		return s
	}
}

func NormalizeFrequency(f string) string {
	f = strings.TrimSpace(strings.ToLower(f))
	switch f {
	case "daily", "weekly", "monthly":
		return f
	case "one-time", "one time", "onetime", "once", "none":
		return FrequencyOneTime
	default:
		return f
	}
}

func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// AllTasks lists a user's tasks in creation order. An unknown user has no tasks.
func (w *Workspace) AllTasks(userID string) ([]Task, error) {
	return w.ListTasks(userID, ListFilter{})
}

func (w *Workspace) ListTasks(userID string, f ListFilter) ([]Task, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalid)
	}
	status := NormalizeStatus(f.Status)
	priority := NormalizePriority(f.Priority)
	frequency := NormalizeFrequency(f.Frequency)
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := []Task{}
	if !w.ownsDir(userID) {
		return out, nil
	}
	for _, s := range w.cfg.Statuses {
		if status != "" && s.ID != status {
			continue
		}
		dir := filepath.Join(w.userDir(userID), s.Dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".md") {
				continue
			}
			t, err := readTaskFile(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			// the directory is authoritative for status
			t.Status = s.ID
			t.User = userID
			if priority != "" && t.Priority != priority {
				continue
			}
			if frequency != "" && t.Frequency != frequency {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(t.Title), search) &&
				!strings.Contains(strings.ToLower(t.Description), search) {
				continue
			}
			out = append(out, *t)
		}
	}
	sortByCreation(out)
	return out, nil
}

func sortByCreation(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
}

// GetTask finds a task by exact title.
func (w *Workspace) GetTask(userID, title string) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	tasks, err := w.AllTasks(userID)
	if err != nil {
		return nil, err
	}
	var hits []Task
	for _, t := range tasks {
		if t.Title == title {
			hits = append(hits, t)
		}
	}
	switch len(hits) {
	case 0:
		return nil, fmt.Errorf("%w: task %q", ErrNotFound, title)
	case 1:
		return &hits[0], nil
	default:
		return nil, &MatchConflictError{Reason: "duplicate title", Matches: hits}
	}
}

// FindTask resolves a loose selector: exact title, then id prefix, then a
// case-insensitive title substring. More than one hit at a level is a conflict.
func (w *Workspace) FindTask(userID, selector string) (*Task, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("%w: selector is required", ErrInvalid)
	}
	tasks, err := w.AllTasks(userID)
	if err != nil {
		return nil, err
	}
	levels := []struct {
		reason string
		match  func(Task) bool
	}{
		{"title", func(t Task) bool { return t.Title == selector }},
		{"id prefix", func(t Task) bool {
			return strings.HasPrefix(strings.ToUpper(t.ID), strings.ToUpper(selector))
		}},
		{"title contains", func(t Task) bool {
			return strings.Contains(strings.ToLower(t.Title), strings.ToLower(selector))
		}},
	}
	for _, level := range levels {
		hits := FilterTasks(tasks, level.match)
		if len(hits) == 1 {
			return &hits[0], nil
		}
		if len(hits) > 1 {
			return nil, &MatchConflictError{Reason: level.reason, Matches: hits}
		}
	}
	return nil, fmt.Errorf("%w: task %q", ErrNotFound, selector)
}

// SetTask stores in, replacing the task with the same title if one exists.
func (w *Workspace) SetTask(userID string, in TaskInput) (*Task, error) {
	in, err := validateInput(in)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.ensureUserLocked(User{ID: userID}); err != nil {
		return nil, err
	}

	existing, err := w.GetTask(userID, in.Title)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := timeNow()
	var task *Task
	oldPath := ""
	if existing != nil {
		task = existing
		oldPath = existing.Path
		task.UpdatedAt = &now
	} else {
		task = &Task{TaskMeta: TaskMeta{
			Schema:    1,
			ID:        "tsk_" + newULID(),
			User:      strings.TrimSpace(userID),
			CreatedAt: &now,
		}}
	}
	task.Title = in.Title
	task.Description = in.Description
	task.DueDate = in.DueDate
	task.Priority = in.Priority
	task.Frequency = in.Frequency
	if err := w.placeTask(task, in.Status, now); err != nil {
		return nil, err
	}
	if err := writeTaskFile(task); err != nil {
		return nil, err
	}
	if oldPath != "" && oldPath != task.Path {
		if err := os.Remove(oldPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return task, nil
}

// CreateTask applies defaults (due on ref, medium priority, one-time,
// pending) and then stores the task like SetTask.
func (w *Workspace) CreateTask(userID string, in TaskInput, ref dateparse.Date) (*Task, error) {
	if strings.TrimSpace(in.DueDate) == "" {
		in.DueDate = ref.String()
	}
	if strings.TrimSpace(in.Priority) == "" {
		in.Priority = PriorityMedium
	}
	if strings.TrimSpace(in.Frequency) == "" {
		in.Frequency = FrequencyOneTime
	}
	if strings.TrimSpace(in.Status) == "" {
		in.Status = StatusPending
	}
	return w.SetTask(userID, in)
}

func validateInput(in TaskInput) (TaskInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.DueDate = strings.TrimSpace(in.DueDate)
	in.Priority = NormalizePriority(in.Priority)
	in.Frequency = NormalizeFrequency(in.Frequency)
	in.Status = NormalizeStatus(in.Status)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"title", in.Title},
		{"due_date", in.DueDate},
		{"priority", in.Priority},
		{"frequency", in.Frequency},
		{"status", in.Status},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return in, fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	if _, ok := dateparse.ParseISO(in.DueDate); !ok {
		return in, fmt.Errorf("%w: due_date %q is not YYYY-MM-DD", ErrInvalid, in.DueDate)
	}
	if PriorityRank(in.Priority) == 0 {
		return in, fmt.Errorf("%w: unknown priority %q", ErrInvalid, in.Priority)
	}
	switch in.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyOneTime:
	default:
		return in, fmt.Errorf("%w: unknown frequency %q", ErrInvalid, in.Frequency)
	}
	switch in.Status {
	case StatusPending, StatusInProgress, StatusCompleted:
	default:
		return in, fmt.Errorf("%w: unknown status %q", ErrInvalid, in.Status)
	}
	return in, nil
}

// placeTask sets status fields and the file path for status.
func (w *Workspace) placeTask(task *Task, status string, now time.Time) error {
	s, ok := w.statusByID(status)
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}
	if task.Status != s.ID {
		if s.ID == StatusCompleted {
			task.CompletedAt = &now
		} else {
			task.CompletedAt = nil
		}
	}
	task.Status = s.ID
	filename := fmt.Sprintf("%s__%s.md", task.ID, slugify(task.Title))
	task.Path = filepath.Join(w.userDir(task.User), s.Dir, filename)
	return nil
}

// UpdateStatus moves the task file into the directory for status.
func (w *Workspace) UpdateStatus(userID, title, status string) (*Task, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	task, err := w.GetTask(userID, title)
	if err != nil {
		return nil, err
	}
	now := timeNow()
	oldPath := task.Path
	if err := w.placeTask(task, status, now); err != nil {
		return nil, err
	}
	task.UpdatedAt = &now
	if err := os.MkdirAll(filepath.Dir(task.Path), 0o755); err != nil {
		return nil, err
	}
	if oldPath != task.Path {
		if err := os.Rename(oldPath, task.Path); err != nil {
			return nil, err
		}
	}
	if err := writeTaskFile(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (w *Workspace) DeleteTask(userID, title string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	task, err := w.GetTask(userID, title)
	if err != nil {
		return err
	}
	return os.Remove(task.Path)
}

// AddNote appends a timestamped line to the task's notes.
func (w *Workspace) AddNote(userID, title, note string) (*Task, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, fmt.Errorf("%w: note is required", ErrInvalid)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	task, err := w.GetTask(userID, title)
	if err != nil {
		return nil, err
	}
	now := timeNow()
	task.UpdatedAt = &now
	entry := fmt.Sprintf("- %s: %s\n", now.Format(time.RFC3339), note)
	if task.Notes == "" {
		task.Notes = "## Notes\n\n" + entry
	} else {
		task.Notes = strings.TrimRight(task.Notes, "\n") + "\n" + entry
	}
	if err := writeTaskFile(task); err != nil {
		return nil, err
	}
	return task, nil
}

// FilterTasks keeps the tasks matching keep, in order.
func FilterTasks(tasks []Task, keep func(Task) bool) []Task {
	out := []Task{}
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (w *Workspace) filtered(userID string, keep func(Task) bool) ([]Task, error) {
	tasks, err := w.AllTasks(userID)
	if err != nil {
		return nil, err
	}
	return FilterTasks(tasks, keep), nil
}

// TasksForDate lists open tasks due on date (YYYY-MM-DD).
func (w *Workspace) TasksForDate(userID, date string) ([]Task, error) {
	date = strings.TrimSpace(date)
	return w.filtered(userID, func(t Task) bool {
		return !t.IsCompleted() && t.DueDate != "" && t.DueDate == date
	})
}

func (w *Workspace) TodayTasks(userID string, ref dateparse.Date) ([]Task, error) {
	return w.TasksForDate(userID, ref.String())
}

func (w *Workspace) HasTasksForDate(userID, date string) (bool, error) {
	tasks, err := w.TasksForDate(userID, date)
	if err != nil {
		return false, err
	}
	return len(tasks) > 0, nil
}

func (w *Workspace) DailyTasks(userID string) ([]Task, error) {
	return w.tasksWithFrequency(userID, FrequencyDaily)
}

func (w *Workspace) MonthlyTasks(userID string) ([]Task, error) {
	return w.tasksWithFrequency(userID, FrequencyMonthly)
}

func (w *Workspace) tasksWithFrequency(userID, frequency string) ([]Task, error) {
	return w.filtered(userID, func(t Task) bool {
		return !t.IsCompleted() && t.Frequency == frequency
	})
}

// HighestPriority returns the first open task of the highest priority.
func (w *Workspace) HighestPriority(userID string) (*Task, error) {
	tasks, err := w.AllTasks(userID)
	if err != nil {
		return nil, err
	}
	var best *Task
	for i := range tasks {
		if tasks[i].IsCompleted() {
			continue
		}
		if best == nil || PriorityRank(tasks[i].Priority) > PriorityRank(best.Priority) {
			best = &tasks[i]
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no open tasks", ErrNotFound)
	}
	return best, nil
}

func (w *Workspace) TasksByStatus(userID, status string) ([]Task, error) {
	status = NormalizeStatus(status)
	if _, ok := w.statusByID(status); !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}
	return w.ListTasks(userID, ListFilter{Status: status})
}

// TasksByDateRange lists tasks due within [start, end], completed included.
func (w *Workspace) TasksByDateRange(userID, start, end string) ([]Task, error) {
	r, err := canonicalRange(start, end)
	if err != nil {
		return nil, err
	}
	return w.filtered(userID, func(t Task) bool { return r.Contains(t.DueDate) })
}

func canonicalRange(start, end string) (dateparse.Range, error) {
	s, ok := dateparse.ParseISO(start)
	if !ok {
		return dateparse.Range{}, fmt.Errorf("%w: start %q is not YYYY-MM-DD", ErrInvalid, start)
	}
	e, ok := dateparse.ParseISO(end)
	if !ok {
		return dateparse.Range{}, fmt.Errorf("%w: end %q is not YYYY-MM-DD", ErrInvalid, end)
	}
	if s.After(e) {
		return dateparse.Range{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalid, s, e)
	}
	return dateparse.Range{Start: s, End: e}, nil
}

// UpcomingTasks lists open tasks due from ref through ref+days. The window
// stops at dateparse.LastDate.
func (w *Workspace) UpcomingTasks(userID string, ref dateparse.Date, days int) ([]Task, error) {
	if days < 0 || days > maxUpcomingDays {
		return nil, fmt.Errorf("%w: days must be between 0 and %d", ErrInvalid, maxUpcomingDays)
	}
	end, ok := ref.AddDaysChecked(days)
	if !ok {
		end = dateparse.LastDate
	}
	r := dateparse.Range{Start: ref, End: end}
	return w.openInRange(userID, r)
}

// TasksForFlexibleDate parses raw ("tomorrow", "1st June 2025") and lists
// the open tasks due that day.
func (w *Workspace) TasksForFlexibleDate(userID, raw string, ref dateparse.Date) (dateparse.Date, []Task, error) {
	d := dateparse.ParseDate(raw, ref)
	tasks, err := w.TasksForDate(userID, d.String())
	return d, tasks, err
}

// TasksForDateRange parses raw ("this week", "next 5 days") and lists the
// open tasks due inside the range.
func (w *Workspace) TasksForDateRange(userID, raw string, ref dateparse.Date) (dateparse.Range, []Task, error) {
	r := dateparse.ParseRange(raw, ref)
	tasks, err := w.openInRange(userID, r)
	return r, tasks, err
}

func (w *Workspace) openInRange(userID string, r dateparse.Range) ([]Task, error) {
	return w.filtered(userID, func(t Task) bool {
		return !t.IsCompleted() && r.Contains(t.DueDate)
	})
}

// walkTaskFiles visits every task file under the user directories.
func (w *Workspace) walkTaskFiles(fn func(path string, t *Task)) {
	root := filepath.Join(w.Root, "users")
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d == nil || d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		t, err := readTaskFile(path)
		if err != nil {
			return nil
		}
		w.reconcileTaskFromPath(t)
		fn(path, t)
		return nil
	})
}

// FindByID looks a task up by id prefix across all users.
func (w *Workspace) FindByID(prefix string) (*Task, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalid)
	}
	var hits []Task
	w.walkTaskFiles(func(_ string, t *Task) {
		if strings.HasPrefix(strings.ToUpper(t.ID), prefix) {
			hits = append(hits, *t)
		}
	})
	switch len(hits) {
	case 0:
		return nil, fmt.Errorf("%w: task id %q", ErrNotFound, prefix)
	case 1:
		return &hits[0], nil
	default:
		sortByCreation(hits)
		return nil, &MatchConflictError{Reason: "id prefix", Matches: hits}
	}
}

// reconcileTaskFromPath trusts the directory layout over frontmatter for
// user and status.
func (w *Workspace) reconcileTaskFromPath(t *Task) {
	rel, err := filepath.Rel(filepath.Join(w.Root, "users"), t.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	if len(parts) < 3 {
		return
	}
	if u, err := readUser(filepath.Join(w.Root, "users", parts[0], "user.json")); err == nil {
		t.User = u.ID
	}
	if id, ok := w.statusIDByDir(parts[1]); ok {
		t.Status = id
	}
}
