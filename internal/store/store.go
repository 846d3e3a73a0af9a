package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	timeNow     = func() time.Time { return time.Now().UTC() }
)

// MatchConflictError provides details when a selector matches multiple tasks.
// It still satisfies errors.Is(err, ErrConflict).
type MatchConflictError struct {
	Reason  string
	Matches []Task
}

func (e *MatchConflictError) Error() string {
	if e == nil || strings.TrimSpace(e.Reason) == "" {
		return "conflict"
	}
	return "conflict: " + e.Reason
}

func (e *MatchConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Workspace is a task docstore rooted at a directory. Each user owns a
// directory of Markdown task files split into one subdirectory per status.
type Workspace struct {
	Root string
	cfg  Config
	mu   sync.Mutex
}

type Config struct {
	Schema   int         `json:"schema"`
	Statuses []StatusDef `json:"statuses"`
}

type StatusDef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Dir  string `json:"dir"`
}

type User struct {
	Schema    int       `json:"schema"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open opens a workspace rooted at root. It does not create files until Init is called.
func Open(root string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("%w: store root is required", ErrInvalid)
	}
	ws := &Workspace{Root: expandHome(root)}
	if err := ws.loadOrDefaultConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return ws, nil
}

func (w *Workspace) Init() error {
	if err := os.MkdirAll(filepath.Join(w.Root, "users"), 0o755); err != nil {
		return err
	}
	return w.ensureConfig()
}

func (w *Workspace) ensureConfig() error {
	cfgPath := filepath.Join(w.Root, "config.json")
	if _, err := os.Stat(cfgPath); err == nil {
		return w.loadOrDefaultConfig()
	}
	w.cfg = defaultConfig()
	b, _ := json.MarshalIndent(w.cfg, "", "  ")
	return atomicWriteFile(cfgPath, b, 0o644)
}

func defaultConfig() Config {
	return Config{
		Schema: 1,
		Statuses: []StatusDef{
			{ID: StatusPending, Name: "Pending", Dir: "00-pending"},
			{ID: StatusInProgress, Name: "In progress", Dir: "01-in-progress"},
			{ID: StatusCompleted, Name: "Completed", Dir: "02-completed"},
		},
	}
}

func (w *Workspace) loadOrDefaultConfig() error {
	cfgPath := filepath.Join(w.Root, "config.json")
	b, err := os.ReadFile(cfgPath)
	if err != nil {
		w.cfg = defaultConfig()
		return err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return fmt.Errorf("%w: config.json: %v", ErrInvalid, err)
	}
	if cfg.Schema == 0 {
		cfg.Schema = 1
	}
	if len(cfg.Statuses) == 0 {
		cfg.Statuses = defaultConfig().Statuses
	}
	w.cfg = cfg
	return nil
}

// EnsureUser creates the user's directories and metadata if missing.
// Existing metadata is kept; non-empty fields of u are merged in.
func (w *Workspace) EnsureUser(u User) (*User, error) {
	id := strings.TrimSpace(u.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalid)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ensureUserLocked(u)
}

// ensureUserLocked refuses an id whose directory already belongs to a
// different id ("Alice" vs "alice").
func (w *Workspace) ensureUserLocked(u User) (*User, error) {
	id := strings.TrimSpace(u.ID)
	slug := slugify(id)
	userDir := w.userDir(id)
	metaPath := filepath.Join(userDir, "user.json")
	existing, err := readUser(metaPath)
	if err == nil && existing.ID != id {
		return nil, fmt.Errorf("%w: user id %q shares storage with %q", ErrConflict, id, existing.ID)
	}
	for _, s := range w.cfg.Statuses {
		if err := os.MkdirAll(filepath.Join(userDir, s.Dir), 0o755); err != nil {
			return nil, err
		}
	}

	if err == nil {
		changed := false
		if name := strings.TrimSpace(u.Name); name != "" && name != existing.Name {
			existing.Name, changed = name, true
		}
		if u.AvatarURL != "" && u.AvatarURL != existing.AvatarURL {
			existing.AvatarURL, changed = u.AvatarURL, true
		}
		if u.Status != "" && u.Status != existing.Status {
			existing.Status, changed = u.Status, true
		}
		if !changed {
			return existing, nil
		}
		existing.UpdatedAt = timeNow()
		return existing, writeUser(metaPath, existing)
	}

	now := timeNow()
	out := &User{
		Schema:    1,
		ID:        id,
		Name:      strings.TrimSpace(u.Name),
		Slug:      slug,
		AvatarURL: u.AvatarURL,
		Status:    u.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if out.Name == "" {
		out.Name = id
	}
	if out.Status == "" {
		out.Status = "online"
	}
	return out, writeUser(metaPath, out)
}

func (w *Workspace) GetUser(id string) (*User, error) {
	u, err := readUser(filepath.Join(w.userDir(id), "user.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: user %q", ErrNotFound, id)
		}
		return nil, err
	}
	if u.ID != strings.TrimSpace(id) {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, id)
	}
	return u, nil
}

// ownsDir reports whether userID's directory is free or belongs to userID.
func (w *Workspace) ownsDir(userID string) bool {
	u, err := readUser(filepath.Join(w.userDir(userID), "user.json"))
	return err != nil || u.ID == userID
}

func (w *Workspace) ListUsers() ([]User, error) {
	root := filepath.Join(w.Root, "users")
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []User{}, nil
		}
		return nil, err
	}
	out := []User{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		u, err := readUser(filepath.Join(root, e.Name(), "user.json"))
		if err != nil {
			// ignore broken user metadata
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func readUser(path string) (*User, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func writeUser(path string, u *User) error {
	b, _ := json.MarshalIndent(u, "", "  ")
	return atomicWriteFile(path, b, 0o644)
}

func (w *Workspace) userDir(userID string) string {
	return filepath.Join(w.Root, "users", slugify(userID))
}

func (w *Workspace) statusByID(id string) (StatusDef, bool) {
	id = NormalizeStatus(id)
	for _, s := range w.cfg.Statuses {
		if s.ID == id {
			return s, true
		}
	}
	return StatusDef{}, false
}

func (w *Workspace) statusIDByDir(dir string) (string, bool) {
	dir = strings.TrimSpace(dir)
	for _, s := range w.cfg.Statuses {
		if s.Dir == dir {
			return s.ID, true
		}
	}
	return "", false
}

// StatusName is the display name configured for a status id.
func (w *Workspace) StatusName(id string) string {
	if s, ok := w.statusByID(id); ok && strings.TrimSpace(s.Name) != "" {
		return s.Name
	}
	return id
}
