package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amirbrooks/donna/internal/assistant"
	"github.com/amirbrooks/donna/internal/dateparse"
	"github.com/amirbrooks/donna/internal/history"
	"github.com/amirbrooks/donna/internal/query"
	"github.com/amirbrooks/donna/internal/store"
)

func newTodayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Today's schedule with daily recurring tasks",
		Args:  exactArgs(0, "today"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.gf.JSON {
				tasks, err := a.ws.TodayTasks(a.user(), a.ref)
				if err != nil {
					return err
				}
				daily, err := a.ws.DailyTasks(a.user())
				if err != nil {
					return err
				}
				return a.emitJSON("today", map[string]any{"date": a.ref, "tasks": tasks, "daily": daily})
			}
			out, err := a.ws.RenderToday(a.user(), a.ref, a.gf.Format)
			if err != nil {
				return err
			}
			a.println(out)
			return nil
		},
	}
}

func newWeekCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "The next seven days, day by day",
		Args:  exactArgs(0, "week"),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.ws.RenderWeek(a.user(), a.ref, a.gf.Format)
			if err != nil {
				return err
			}
			a.println(out)
			return nil
		},
	}
}

func newUpcomingCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Open tasks due between today and today+days",
		Args:  exactArgs(0, "upcoming [--days N]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.ws.UpcomingTasks(a.user(), a.ref, days)
			if err != nil {
				return err
			}
			if a.gf.JSON {
				return a.emitJSON("upcoming", map[string]any{"days": days, "tasks": tasks})
			}
			a.println(store.RenderList(tasks, store.FormatPlain))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Window length in days")
	return cmd
}

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question...>",
		Short: `Filter tasks by a question such as "high priority tasks this week"`,
		Args:  minArgs(1, `ask "<question>"`),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			all, err := a.ws.AllTasks(a.user())
			if err != nil {
				return err
			}
			f := query.Extract(q, a.ref)
			tasks := f.Apply(all)
			if a.gf.JSON {
				return a.emitJSON("ask", map[string]any{"query": q, "filter": f, "tasks": tasks})
			}
			if f.IsEmpty() {
				a.info("(no date, priority, status or frequency found; showing all tasks)")
			}
			a.println(store.RenderList(tasks, store.FormatPlain))
			return nil
		},
	}
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message...>",
		Short: "Ask the assistant",
		Args:  minArgs(1, `chat "<message>"`),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			svc := assistant.New(a.ws, a.newLLM(), a.log)
			reply, err := svc.Respond(cmd.Context(), a.user(), message, a.ref)
			if err != nil {
				return err
			}

			hist, err := a.openHistory()
			if err != nil {
				a.log.Warn("chat history unavailable", "err", err)
			} else {
				defer hist.Close()
				if _, err := hist.Record(a.user(), message, reply.Response, reply.Source); err != nil {
					a.log.Warn("failed to record chat history", "err", err)
				}
			}

			if a.gf.JSON {
				return a.emitJSON("chat", reply)
			}
			a.println(reply.Response)
			return nil
		},
	}
}

func (a *app) newLLM() assistant.LLM {
	return assistant.NewOpenAIClient(assistant.OpenAIOptions{
		APIKey:     a.cfg.OpenAI.APIKey,
		BaseURL:    a.cfg.OpenAI.BaseURL,
		Model:      a.cfg.OpenAI.Model,
		MaxRetries: a.cfg.OpenAI.MaxRetries,
		Timeout:    a.cfg.OpenAI.Timeout,
	})
}

func (a *app) openHistory() (*history.Log, error) {
	if !a.cfg.History.Enabled {
		return history.Open("")
	}
	return history.Open(a.cfg.History.Path)
}

func newDateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "date <expression...>",
		Short: "Show how a date expression is read",
		Args:  minArgs(1, `date "<expression>"`),
		RunE: func(cmd *cobra.Command, args []string) error {
			check := query.ValidateAndDescribe(strings.Join(args, " "), a.ref)
			if a.gf.JSON {
				return a.emitJSON("date", check)
			}
			d := dateparse.MustParseISO(check.ParsedDate)
			a.println(fmt.Sprintf("%s (%s) rule=%s", check.ParsedDate, d.Display(), check.Rule))
			return nil
		},
	}
}

func newRangeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "range <expression...>",
		Short: "Show the span of days a range expression covers",
		Args:  minArgs(1, `range "<expression>"`),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			r := dateparse.ParseRange(input, a.ref)
			if a.gf.JSON {
				return a.emitJSON("range", map[string]any{"input": input, "start": r.Start, "end": r.End})
			}
			a.println(fmt.Sprintf("%s .. %s (%d days)", r.Start, r.End, len(r.Days())))
			return nil
		},
	}
}
