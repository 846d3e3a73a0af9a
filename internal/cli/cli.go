// Package cli implements the donna command line.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amirbrooks/donna/internal/config"
	"github.com/amirbrooks/donna/internal/dateparse"
	"github.com/amirbrooks/donna/internal/store"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitConflict = 4
	ExitInternal = 10
)

type GlobalFlags struct {
	Root       string
	ConfigFile string
	EnvFile    string
	User       string
	Today      string
	Format     string
	JSON       bool
	ExportDir  string
	Quiet      bool
}

// app carries what every command needs once flags and config are loaded.
type app struct {
	gf     GlobalFlags
	cfg    *config.Config
	ws     *store.Workspace
	log    *slog.Logger
	ref    dateparse.Date
	stdout io.Writer
	stderr io.Writer
}

// usageError marks errors that should exit with ExitUsage.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteC()
	if err == nil {
		return ExitOK
	}
	name := "donna"
	if cmd != nil && cmd != root {
		name = cmd.Name()
	}
	fmt.Fprintln(stderr, name+":", err)
	return exitCode(err)
}

func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ue), errors.Is(err, store.ErrInvalid):
		return ExitUsage
	case errors.Is(err, store.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrConflict):
		return ExitConflict
	default:
		return ExitInternal
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "donna",
		Short: "donna - a personal task assistant",
		Long: `donna keeps per-user tasks as Markdown files, answers date and filter
questions about them, and serves the same features over an HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unknown command %q", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return usagef("a command is required")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.gf.Root, "root", "", "Task store directory (default from config)")
	pf.StringVar(&a.gf.ConfigFile, "config", "", "Config file (YAML)")
	pf.StringVar(&a.gf.EnvFile, "env-file", "", ".env file to load")
	pf.StringVar(&a.gf.User, "user", "", "User id (default from config)")
	pf.StringVar(&a.gf.Today, "today", "", "Reference date YYYY-MM-DD (default: the local date)")
	pf.StringVar(&a.gf.Format, "format", store.FormatPlain, "Output style for schedules (plain|chat)")
	pf.BoolVar(&a.gf.JSON, "json", false, "Print JSON")
	pf.StringVar(&a.gf.ExportDir, "export-dir", "", "With --json, write a file here instead of stdout")
	pf.BoolVarP(&a.gf.Quiet, "quiet", "q", false, "Suppress informational output")

	root.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newStatusCmd(a),
		newDoneCmd(a),
		newRemoveCmd(a),
		newNoteCmd(a),
		newTodayCmd(a),
		newWeekCmd(a),
		newUpcomingCmd(a),
		newAskCmd(a),
		newChatCmd(a),
		newDateCmd(a),
		newRangeCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(config.Options{ConfigFile: a.gf.ConfigFile, EnvFile: a.gf.EnvFile, Root: a.gf.Root})
	if err != nil {
		return usagef("%v", err)
	}
	a.cfg = cfg
	a.log = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	switch a.gf.Format {
	case store.FormatPlain, store.FormatChat:
	default:
		return usagef("invalid --format %q (use plain|chat)", a.gf.Format)
	}

	a.ref = dateparse.Today()
	if a.gf.Today != "" {
		d, ok := dateparse.ParseISO(a.gf.Today)
		if !ok {
			return usagef("invalid --today %q (use YYYY-MM-DD)", a.gf.Today)
		}
		a.ref = d
	}

	ws, err := store.Open(cfg.Root)
	if err != nil {
		return err
	}
	a.ws = ws
	return nil
}

func (a *app) user() string {
	if u := strings.TrimSpace(a.gf.User); u != "" {
		return u
	}
	return a.cfg.DefaultUser
}

func (a *app) println(args ...any) {
	fmt.Fprintln(a.stdout, args...)
}

func (a *app) info(args ...any) {
	if !a.gf.Quiet {
		fmt.Fprintln(a.stdout, args...)
	}
}

// emitJSON prints payload, or writes it under --export-dir when set.
func (a *app) emitJSON(base string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	if strings.TrimSpace(a.gf.ExportDir) == "" {
		fmt.Fprintln(a.stdout, string(data))
		return nil
	}
	path, err := writeExportFile(a.gf.ExportDir, base, "json", data)
	if err != nil {
		return err
	}
	a.info("Wrote JSON to:", path)
	return nil
}

func writeExportFile(dir, base, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ts := time.Now().UTC().Format("20060102-150405")
	name := fmt.Sprintf("%s-%s.%s", base, ts, ext)
	path := filepath.Join(dir, name)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			break
		}
		name = fmt.Sprintf("%s-%s-%d.%s", base, ts, i, ext)
		path = filepath.Join(dir, name)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".tmp-%d", time.Now().UTC().UnixNano()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: donna %s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: donna %s", usage)
		}
		return nil
	}
}
