package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("APP_SECRETS_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg := FromEnv()
	if cfg.BackendURL != "http://localhost:8000" {
		t.Fatalf("expected default backend url, got %q", cfg.BackendURL)
	}
	if cfg.BackendTimeout != 60*time.Second {
		t.Fatalf("expected 60s backend timeout, got %s", cfg.BackendTimeout)
	}
	if cfg.SessionScope != SessionScopeBrowser {
		t.Fatalf("expected browser session scope, got %q", cfg.SessionScope)
	}
	if cfg.StoreDriver != StoreDriverSQLite || !cfg.StoreEnabled {
		t.Fatalf("expected enabled sqlite store, got driver=%q enabled=%v", cfg.StoreDriver, cfg.StoreEnabled)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_BACKEND_URL", "https://api.example.org/")
	t.Setenv("APP_BACKEND_TIMEOUT_SEC", "15")
	t.Setenv("APP_SESSION_SCOPE", "Persistent")
	t.Setenv("APP_SESSION_MAX_AGE_HOURS", "2")
	t.Setenv("APP_STORE_ENABLED", "false")
	t.Setenv("APP_MAX_DOWNLOAD_MB", "not-a-number")

	cfg := FromEnv()
	if cfg.BackendURL != "https://api.example.org" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BackendURL)
	}
	if cfg.BackendTimeout != 15*time.Second {
		t.Fatalf("expected 15s, got %s", cfg.BackendTimeout)
	}
	if cfg.SessionScope != SessionScopePersistent || cfg.SessionMaxAge != 2*time.Hour {
		t.Fatalf("unexpected session settings scope=%q max_age=%s", cfg.SessionScope, cfg.SessionMaxAge)
	}
	if cfg.StoreEnabled {
		t.Fatalf("expected store disabled")
	}
	if cfg.MaxDownloadBytes != 64<<20 {
		t.Fatalf("expected invalid value to fall back to default, got %d", cfg.MaxDownloadBytes)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "relative backend", mutate: func(c *Config) { c.BackendURL = "/api" }, wantErr: "APP_BACKEND_URL"},
		{name: "unknown scope", mutate: func(c *Config) { c.SessionScope = "tab" }, wantErr: "APP_SESSION_SCOPE"},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "postgres" }, wantErr: "APP_STORE_DRIVER"},
		{name: "disabled store ignores driver", mutate: func(c *Config) { c.StoreEnabled = false; c.StoreDriver = "postgres" }},
		{name: "archive without path", mutate: func(c *Config) { c.ArchivePath = " " }, wantErr: "APP_ARCHIVE_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				BackendURL:      "http://localhost:8000",
				SessionScope:    SessionScopeBrowser,
				StoreEnabled:    true,
				StoreDriver:     StoreDriverSQLite,
				StoreSQLitePath: "x.db",
				ArchiveEnabled:  true,
				ArchivePath:     "archive",
			}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyEnvDefaultsFromFile_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protein-ui.env")
	content := "# comment\nAPP_TEST_KEEP=file\nAPP_TEST_FILL=\"from file\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("APP_TEST_KEEP", "env")
	t.Setenv("APP_TEST_FILL", "")

	if err := applyEnvDefaultsFromFile(path); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := os.Getenv("APP_TEST_KEEP"); got != "env" {
		t.Fatalf("expected env value kept, got %q", got)
	}
	if got := os.Getenv("APP_TEST_FILL"); got != "from file" {
		t.Fatalf("expected file value applied, got %q", got)
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: 3306, DBName: "protein_ui", DBConnTimeout: 5 * time.Second, DBQueryTimeout: 5 * time.Second}
	dsn := cfg.MySQLDSN()
	if !strings.HasPrefix(dsn, "u:p@tcp(db:3306)/protein_ui?") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") || !strings.Contains(dsn, "charset=utf8mb4") {
		t.Fatalf("expected driver params in %q", dsn)
	}
}
