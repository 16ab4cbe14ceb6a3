package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.SQLitePath == "" {
		t.Errorf("store defaults wrong: %+v", cfg.Store)
	}
	if cfg.RateLimit.RPS != 10 || cfg.RateLimit.Burst != 20 {
		t.Errorf("rate limit defaults wrong: %+v", cfg.RateLimit)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
store:
  backend: postgres
  postgres_dsn: postgres://file-dsn
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("POSTGRES_DSN", "postgres://env-dsn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != BackendPostgres {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	if cfg.Store.PostgresDSN != "postgres://env-dsn" {
		t.Errorf("dsn = %q, want the env value to win", cfg.Store.PostgresDSN)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level = %q", cfg.Log.Level)
	}
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("store:\n  backend: postgres\n"), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for postgres without dsn")
	}
}

func TestNormalizeBackend(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", BackendSQLite},
		{"sqlite3", BackendSQLite},
		{"PG", BackendPostgres},
		{"postgresql", BackendPostgres},
		{"bolt", "bolt"},
	}
	for _, tt := range tests {
		if got := NormalizeBackend(tt.in); got != tt.want {
			t.Errorf("NormalizeBackend(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "default"},
		{"Alice", "alice"},
		{"My Project!", "my-project"},
		{"--x--", "x"},
	}
	for _, tt := range tests {
		if got := NormalizeID(tt.in); got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
