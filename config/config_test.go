package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BLOGDESK_CONFIG", "API_BASE_URL", "HTTP_TIMEOUT", "LOG_HTTP",
		"STORAGE_BACKEND", "STORAGE_PATH", "DASHBOARD_REFRESH", "RECENT_WINDOW",
	} {
		if old, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, old) })
		}
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:5000/api" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("Timeout = %s", cfg.API.Timeout)
	}
	if cfg.Storage.Backend != StorageFile {
		t.Errorf("Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Dashboard.Window != 5 {
		t.Errorf("Window = %d", cfg.Dashboard.Window)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "blogdesk.yaml")
	yamlDoc := "api:\n  base_url: https://blog.example.com/api/\n  timeout: 5s\nstorage:\n  backend: sqlite\ndashboard:\n  window: 3\n"
	if err := os.WriteFile(path, []byte(yamlDoc), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BLOGDESK_CONFIG", path)
	t.Setenv("HTTP_TIMEOUT", "2s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.BaseURL != "https://blog.example.com/api" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 2*time.Second {
		t.Errorf("Timeout = %s, env should win over file", cfg.API.Timeout)
	}
	if cfg.Storage.Backend != StorageSQLite {
		t.Errorf("Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Dashboard.Window != 3 {
		t.Errorf("Window = %d", cfg.Dashboard.Window)
	}
}

func TestLoadConfigCollectsAllErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "localhost:5000")
	t.Setenv("HTTP_TIMEOUT", "soon")
	t.Setenv("STORAGE_BACKEND", "postgres")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"API_BASE_URL", "HTTP_TIMEOUT", "STORAGE_BACKEND"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}
