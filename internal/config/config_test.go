package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.ReminderWindowDays != 3 {
		t.Errorf("expected reminder window 3, got %d", cfg.ReminderWindowDays)
	}
	if len(cfg.GeminiModels) != 3 || cfg.GeminiModels[2] != "gemini-2.5-flash" {
		t.Errorf("unexpected default model chain: %v", cfg.GeminiModels)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("GEMINI_MODELS", "a, b,,c")
	t.Setenv("REMINDER_WINDOW_DAYS", "not-a-number")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected 30s cache ttl, got %s", cfg.CacheTTL)
	}
	if len(cfg.GeminiModels) != 3 || cfg.GeminiModels[1] != "b" {
		t.Errorf("expected [a b c], got %v", cfg.GeminiModels)
	}
	if cfg.ReminderWindowDays != 3 {
		t.Errorf("expected fallback to 3 on bad input, got %d", cfg.ReminderWindowDays)
	}
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Mars/Olympus_Mons"}
	if cfg.Location() != time.UTC {
		t.Errorf("expected UTC fallback, got %s", cfg.Location())
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n" +
		"export DOTENV_A=plain # trailing\n" +
		"DOTENV_B=\"quoted # kept\"\n" +
		"DOTENV_C=from-file\n" +
		"not a pair\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOTENV_C", "from-env")
	t.Cleanup(func() {
		os.Unsetenv("DOTENV_A")
		os.Unsetenv("DOTENV_B")
	})

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := os.Getenv("DOTENV_A"); got != "plain" {
		t.Errorf("DOTENV_A = %q, want plain", got)
	}
	if got := os.Getenv("DOTENV_B"); got != "quoted # kept" {
		t.Errorf("DOTENV_B = %q, want %q", got, "quoted # kept")
	}
	if got := os.Getenv("DOTENV_C"); got != "from-env" {
		t.Errorf("DOTENV_C = %q, want from-env", got)
	}
}
