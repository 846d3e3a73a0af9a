package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DONNA_ROOT", "DONNA_ADDR", "DONNA_DEFAULT_USER", "DONNA_LOG_LEVEL",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"SPEECH_TO_TEXT_SERVICE_URL", "TEXT_TO_SPEECH_SERVICE_URL",
		"DONNA_HISTORY_DB", "DONNA_HISTORY",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Addr != ":8000" {
		t.Errorf("Expected addr ':8000', got '%s'", cfg.Addr)
	}
	if cfg.OpenAI.Model != "gpt-3.5-turbo" {
		t.Errorf("Expected model 'gpt-3.5-turbo', got '%s'", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.MaxRetries != 3 || cfg.OpenAI.Timeout != 30*time.Second {
		t.Errorf("Unexpected OpenAI defaults %+v", cfg.OpenAI)
	}
	if !cfg.History.Enabled {
		t.Error("Expected history to be enabled by default")
	}
}

func TestLoadMergesFileEnvFileAndEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "donna.yaml")
	yamlContent := `root: ` + filepath.Join(dir, "store") + `
addr: ":9000"
openai:
  model: gpt-4o-mini
  timeout: 5s
users:
  - id: alice
    name: Alice
  - id: bob
    name: Bob
`
	if err := os.WriteFile(yamlPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("OPENAI_API_KEY=sk-from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("DONNA_ADDR", ":7000")
	// godotenv never overrides a variable that is already set, even to ""
	os.Unsetenv("OPENAI_API_KEY")

	cfg, err := Load(Options{ConfigFile: yamlPath, EnvFile: envPath})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("Expected environment to win for addr, got '%s'", cfg.Addr)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" || cfg.OpenAI.Timeout != 5*time.Second {
		t.Errorf("Expected file values for openai, got %+v", cfg.OpenAI)
	}
	if cfg.OpenAI.APIKey != "sk-from-dotenv" {
		t.Errorf("Expected api key from .env, got '%s'", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.MaxRetries != 3 {
		t.Errorf("Expected default retries to survive, got %d", cfg.OpenAI.MaxRetries)
	}
	if len(cfg.Users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(cfg.Users))
	}
	if u, ok := cfg.User("bob"); !ok || u.Name != "Bob" {
		t.Errorf("Expected bob to be configured, got %+v", u)
	}
	if cfg.History.Path != filepath.Join(dir, "store", "history.db") {
		t.Errorf("Expected history under root, got '%s'", cfg.History.Path)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	clearEnv(t)
	if _, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatal("Expected an error for a missing config file")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"DONNA_ROOT":                 "/srv/donna",
		"DONNA_DEFAULT_USER":         "alice",
		"TEXT_TO_SPEECH_SERVICE_URL": "http://tts:8001",
		"DONNA_HISTORY":              "false",
		"OPENAI_MODEL":               "   ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	if err := applyEnv(cfg, lookup); err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}
	if cfg.Root != "/srv/donna" || cfg.DefaultUser != "alice" || cfg.Speech.TTSURL != "http://tts:8001" {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if cfg.History.Enabled {
		t.Error("Expected DONNA_HISTORY=false to disable history")
	}
	if cfg.OpenAI.Model != "gpt-3.5-turbo" {
		t.Errorf("Expected blank values to be ignored, got '%s'", cfg.OpenAI.Model)
	}

	env["DONNA_HISTORY"] = "maybe"
	if err := applyEnv(cfg, lookup); err == nil {
		t.Error("Expected an error for a malformed DONNA_HISTORY")
	}
}

func TestFinalizeSeedsDefaultUser(t *testing.T) {
	cfg := Default()
	cfg.Root = "/srv/donna"
	cfg.finalize()
	if len(cfg.Users) != 1 || cfg.Users[0].ID != "user_001" {
		t.Fatalf("Expected the default user to be seeded, got %+v", cfg.Users)
	}
	if cfg.History.Path != "/srv/donna/history.db" {
		t.Errorf("Unexpected history path '%s'", cfg.History.Path)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
		"warning": slog.LevelWarn,
	}
	for in, want := range cases {
		cfg := &Config{LogLevel: in}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}
