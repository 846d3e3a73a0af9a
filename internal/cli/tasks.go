package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amirbrooks/donna/internal/store"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the task store and the configured users",
		Args:  exactArgs(0, "init"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ws.Init(); err != nil {
				return err
			}
			if err := a.ensureUsers(); err != nil {
				return err
			}
			a.info("Initialized donna store at:", a.ws.Root)
			return nil
		},
	}
}

// ensureUsers creates the users listed in the config.
func (a *app) ensureUsers() error {
	for _, u := range a.cfg.Users {
		if _, err := a.ws.EnsureUser(store.User{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL, Status: u.Status}); err != nil {
			return err
		}
	}
	return nil
}

func newAddCmd(a *app) *cobra.Command {
	var in store.TaskInput
	var due string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task, or replace the task with the same title",
		Long: `Add a task. --due accepts "tomorrow", "in 3 days", "2025-06-15",
"June 15, 2025", "15/06/2025" and most other English date phrases.
Missing fields default to: due today, medium priority, one-time, pending.`,
		Args: minArgs(1, `add "<title>" [--due ...] [--priority ...]`),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = strings.TrimSpace(strings.Join(args, " "))
			if strings.TrimSpace(due) != "" {
				d, ok := resolveDue(due, a.ref)
				if !ok {
					return usagef("cannot understand --due %q", due)
				}
				in.DueDate = d.String()
			}
			task, err := a.ws.CreateTask(a.user(), in, a.ref)
			if err != nil {
				return err
			}
			if a.gf.JSON {
				return a.emitJSON("task", map[string]any{"task": task})
			}
			a.println(task.ID, "["+task.Priority+"]", task.Title, "(due "+task.DueDate+")")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&due, "due", "", "Due date expression")
	f.StringVar(&in.Priority, "priority", "", "Priority (high|medium|low)")
	f.StringVar(&in.Frequency, "frequency", "", "Frequency (one-time|daily|weekly|monthly)")
	f.StringVar(&in.Status, "status", "", "Status (pending|in progress|completed)")
	f.StringVar(&in.Description, "desc", "", "Description")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var f store.ListFilter
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks in creation order",
		Args:    exactArgs(0, "ls [--status ...] [--priority ...] [--frequency ...]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.ws.ListTasks(a.user(), f)
			if err != nil {
				return err
			}
			if a.gf.JSON {
				return a.emitJSON("tasks", map[string]any{"tasks": tasks})
			}
			a.println(store.RenderList(tasks, store.FormatPlain))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Status, "status", "", "Only this status")
	fl.StringVar(&f.Priority, "priority", "", "Only this priority")
	fl.StringVar(&f.Frequency, "frequency", "", "Only this frequency")
	fl.StringVar(&f.Search, "search", "", "Title or description contains")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <title-or-id>",
		Short: "Show one task with its notes",
		Args:  minArgs(1, "show <title-or-id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := a.findTask(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if a.gf.JSON {
				return a.emitJSON("task", map[string]any{"task": task})
			}
			a.println(strings.TrimRight(task.RenderHuman(), "\n"))
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <title-or-id> <status>",
		Short: "Move a task to pending, in progress or completed",
		Args:  exactArgs(2, `status "<title-or-id>" <pending|in-progress|completed>`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.moveTask(args[0], args[1])
		},
	}
}

func newDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done <title-or-id>",
		Short: "Mark a task completed",
		Args:  minArgs(1, "done <title-or-id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.moveTask(strings.Join(args, " "), store.StatusCompleted)
		},
	}
}

// findTask resolves selector among the current user's tasks. A miss on
// something shaped like a task id is retried across every user.
func (a *app) findTask(selector string) (*store.Task, error) {
	task, err := a.ws.FindTask(a.user(), selector)
	if errors.Is(err, store.ErrNotFound) && looksLikeTaskID(selector) {
		return a.ws.FindByID(selector)
	}
	return task, err
}

func looksLikeTaskID(selector string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(selector)), "tsk_")
}

func (a *app) moveTask(selector, status string) error {
	task, err := a.findTask(selector)
	if err != nil {
		return err
	}
	task, err = a.ws.UpdateStatus(task.User, task.Title, status)
	if err != nil {
		return err
	}
	if a.gf.JSON {
		return a.emitJSON("task", map[string]any{"task": task})
	}
	a.println(task.ID, "->", task.Status)
	return nil
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <title-or-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    minArgs(1, "rm <title-or-id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := a.findTask(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := a.ws.DeleteTask(task.User, task.Title); err != nil {
				return err
			}
			if a.gf.JSON {
				return a.emitJSON("deleted", map[string]any{"deleted": task.ID})
			}
			a.info("Deleted", task.ID, task.Title)
			return nil
		},
	}
}

func newNoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "note <title-or-id> <text...>",
		Short: "Append a timestamped note to a task",
		Args:  minArgs(2, `note "<title-or-id>" <text...>`),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := a.findTask(args[0])
			if err != nil {
				return err
			}
			task, err = a.ws.AddNote(task.User, task.Title, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if a.gf.JSON {
				return a.emitJSON("task", map[string]any{"task": task})
			}
			a.info("Noted", task.ID)
			return nil
		},
	}
}
