// Package history keeps a SQLite log of chat exchanges per user.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// Exchange is one user message and the reply it got.
type Exchange struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is a chat history store. A Log opened with an empty path is disabled:
// Record does nothing and Recent returns no exchanges.
type Log struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Log, error) {
	l := &Log{now: time.Now}
	path = strings.TrimSpace(path)
	if path == "" {
		return l, nil
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	l.db = db
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history: %w", err)
	}
	return l, nil
}

func (l *Log) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS exchanges (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			message TEXT NOT NULL,
			response TEXT NOT NULL,
			source TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_exchanges_user ON exchanges(user_id, created_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *Log) Enabled() bool {
	return l != nil && l.db != nil
}

func (l *Log) Close() error {
	if !l.Enabled() {
		return nil
	}
	return l.db.Close()
}

// Record stores an exchange and returns it with its id and timestamp set.
func (l *Log) Record(userID, message, response, source string) (*Exchange, error) {
	ex := &Exchange{
		ID:        uuid.New().String(),
		UserID:    userID,
		Message:   message,
		Response:  response,
		Source:    source,
		CreatedAt: l.now().UTC(),
	}
	if !l.Enabled() {
		return ex, nil
	}
	_, err := l.db.Exec(
		`INSERT INTO exchanges (id, user_id, message, response, source, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.UserID, ex.Message, ex.Response, ex.Source, ex.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record exchange: %w", err)
	}
	return ex, nil
}

// Recent returns the user's last limit exchanges, oldest first. limit is
// clamped to [1, MaxLimit]; zero or less means DefaultLimit.
func (l *Log) Recent(userID string, limit int) ([]Exchange, error) {
	out := []Exchange{}
	if !l.Enabled() {
		return out, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	rows, err := l.db.Query(
		`SELECT id, user_id, message, response, source, created_at FROM exchanges
		 WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ex Exchange
		var source sql.NullString
		if err := rows.Scan(&ex.ID, &ex.UserID, &ex.Message, &ex.Response, &source, &ex.CreatedAt); err != nil {
			return nil, err
		}
		ex.Source = source.String
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Clear deletes every exchange of the user.
func (l *Log) Clear(userID string) error {
	if !l.Enabled() {
		return nil
	}
	_, err := l.db.Exec(`DELETE FROM exchanges WHERE user_id = ?`, userID)
	return err
}
