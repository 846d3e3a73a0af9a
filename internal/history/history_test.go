package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	base := time.Date(2025, 5, 29, 9, 0, 0, 0, time.UTC)
	n := 0
	l.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLog(t)
	for i := 1; i <= 3; i++ {
		if _, err := l.Record("alice", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), "fallback"); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if _, err := l.Record("bob", "other", "reply", "llm"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := l.Recent("alice", 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 exchanges, got %d", len(got))
	}
	if got[0].Message != "q2" || got[1].Message != "q3" {
		t.Errorf("Expected the last two oldest first, got %q, %q", got[0].Message, got[1].Message)
	}
	if got[1].Response != "a3" || got[1].Source != "fallback" || got[1].ID == "" {
		t.Errorf("Unexpected exchange %+v", got[1])
	}
	if !got[0].CreatedAt.Before(got[1].CreatedAt) {
		t.Errorf("Expected increasing timestamps, got %v then %v", got[0].CreatedAt, got[1].CreatedAt)
	}

	all, err := l.Recent("alice", 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected default limit to return all 3, got %d", len(all))
	}
}

func TestRecentUnknownUserIsEmpty(t *testing.T) {
	l := openTestLog(t)
	got, err := l.Recent("nobody", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("Expected an empty non-nil slice, got %#v", got)
	}
}

func TestClear(t *testing.T) {
	l := openTestLog(t)
	l.Record("alice", "q", "a", "llm")
	l.Record("bob", "q", "a", "llm")
	if err := l.Clear("alice"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got, _ := l.Recent("alice", 10); len(got) != 0 {
		t.Errorf("Expected alice's history to be gone, got %d", len(got))
	}
	if got, _ := l.Recent("bob", 10); len(got) != 1 {
		t.Errorf("Expected bob's history to survive, got %d", len(got))
	}
}

func TestDisabledLog(t *testing.T) {
	l, err := Open("")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if l.Enabled() {
		t.Fatal("Expected empty path to disable the log")
	}
	ex, err := l.Record("alice", "q", "a", "llm")
	if err != nil || ex.ID == "" {
		t.Fatalf("Expected a no-op record with an id, got %+v, %v", ex, err)
	}
	got, err := l.Recent("alice", 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("Expected no history, got %v, %v", got, err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	l.Record("alice", "q", "a", "llm")
	l.Close()

	l, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer l.Close()
	if got, _ := l.Recent("alice", 5); len(got) != 1 {
		t.Fatalf("Expected history to persist, got %d", len(got))
	}
}
