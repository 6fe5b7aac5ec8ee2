// Package config provides configuration management for the blogdesk client.
// Values come from three layers, lowest precedence first: built-in defaults, an
// optional YAML file named by BLOGDESK_CONFIG, and environment variables (which a
// .env file loaded by main may populate). Every problem found while loading is
// collected and reported in a single error, so a misconfigured install shows all
// of its mistakes at once.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends understood by storage.Open.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// APIConfig holds settings for talking to the blog API server.
type APIConfig struct {
	BaseURL string        // e.g. http://localhost:5000/api, without trailing slash
	Timeout time.Duration // per-request timeout
	LogHTTP bool          // log every request/response line
}

// StorageConfig holds settings for the durable session storage.
type StorageConfig struct {
	Backend string // file, sqlite or memory
	Path    string // directory holding session.json / session.db
}

// DashboardConfig holds settings for the dashboard views.
type DashboardConfig struct {
	RefreshInterval time.Duration // watch mode tick
	Window          int           // size of the recent/popular lists
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	API       *APIConfig
	Storage   *StorageConfig
	Dashboard *DashboardConfig
}

// fileConfig mirrors the YAML file layout. Fields left empty keep the defaults.
type fileConfig struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
		LogHTTP *bool  `yaml:"log_http"`
	} `yaml:"api"`
	Storage struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`
	Dashboard struct {
		Refresh string `yaml:"refresh"`
		Window  int    `yaml:"window"`
	} `yaml:"dashboard"`
}

// defaults holds the string form of every setting before env overrides.
// Using strings keeps a single parse path for file and environment values.
type defaults map[string]string

// Helper function to get an optional environment variable with a default string value.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get an optional environment variable parsed as an int.
// Uses defaultValue if not set or if parsing fails. Appends an error if parsing fails.
func getOptionalEnvInt(key string, defaultValue string, errors *[]string) int {
	valueStr := getOptionalEnv(key, defaultValue)
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return 0
	}
	return valueInt
}

// Helper function to get an optional environment variable parsed as time.Duration.
// `time.ParseDuration` expects a string like "15s", "1m30s".
func getOptionalEnvDuration(key string, defaultValue string, errors *[]string) time.Duration {
	valueStr := getOptionalEnv(key, defaultValue)
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return 0
	}
	return valueDuration
}

// Helper function to get an optional environment variable parsed as a bool.
func getOptionalEnvBool(key string, defaultValue string, errors *[]string) bool {
	valueStr := getOptionalEnv(key, defaultValue)
	valueBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected boolean, got '%s': %v", key, valueStr, err))
		return false
	}
	return valueBool
}

func builtinDefaults() defaults {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return defaults{
		"API_BASE_URL":      "http://localhost:5000/api",
		"HTTP_TIMEOUT":      "15s",
		"LOG_HTTP":          "false",
		"STORAGE_BACKEND":   StorageFile,
		"STORAGE_PATH":      filepath.Join(home, ".blogdesk"),
		"DASHBOARD_REFRESH": "30s",
		"RECENT_WINDOW":     "5",
	}
}

// applyFile overlays the YAML file at path onto d.
func applyFile(path string, d defaults) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	set := func(key, value string) {
		if value != "" {
			d[key] = value
		}
	}
	set("API_BASE_URL", fc.API.BaseURL)
	set("HTTP_TIMEOUT", fc.API.Timeout)
	if fc.API.LogHTTP != nil {
		d["LOG_HTTP"] = strconv.FormatBool(*fc.API.LogHTTP)
	}
	set("STORAGE_BACKEND", fc.Storage.Backend)
	set("STORAGE_PATH", fc.Storage.Path)
	set("DASHBOARD_REFRESH", fc.Dashboard.Refresh)
	if fc.Dashboard.Window != 0 {
		d["RECENT_WINDOW"] = strconv.Itoa(fc.Dashboard.Window)
	}
	return nil
}

// LoadConfig creates and returns an AppConfig by reading and validating the
// config file (if any) and environment variables.
// It collects all errors encountered during loading and returns a single error if any exist.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	d := builtinDefaults()
	if path, ok := os.LookupEnv("BLOGDESK_CONFIG"); ok && path != "" {
		if err := applyFile(path, d); err != nil {
			errors = append(errors, err.Error())
		}
	}

	// API Configuration
	baseURL := strings.TrimRight(getOptionalEnv("API_BASE_URL", d["API_BASE_URL"]), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		errors = append(errors, fmt.Sprintf("invalid value for API_BASE_URL: must start with http:// or https://, got '%s'", baseURL))
	}
	timeout := getOptionalEnvDuration("HTTP_TIMEOUT", d["HTTP_TIMEOUT"], &errors)
	if timeout < 0 {
		errors = append(errors, fmt.Sprintf("HTTP_TIMEOUT must not be negative, got %s", timeout))
	}
	apiConfig := &APIConfig{
		BaseURL: baseURL,
		Timeout: timeout,
		LogHTTP: getOptionalEnvBool("LOG_HTTP", d["LOG_HTTP"], &errors),
	}

	// Storage Configuration
	backend := strings.ToLower(getOptionalEnv("STORAGE_BACKEND", d["STORAGE_BACKEND"]))
	switch backend {
	case StorageFile, StorageSQLite, StorageMemory:
	default:
		errors = append(errors, fmt.Sprintf("invalid value for STORAGE_BACKEND: expected file, sqlite or memory, got '%s'", backend))
	}
	storageConfig := &StorageConfig{
		Backend: backend,
		Path:    getOptionalEnv("STORAGE_PATH", d["STORAGE_PATH"]),
	}

	// Dashboard Configuration
	window := getOptionalEnvInt("RECENT_WINDOW", d["RECENT_WINDOW"], &errors)
	if window < 1 {
		errors = append(errors, fmt.Sprintf("RECENT_WINDOW must be at least 1, got %d", window))
	}
	dashboardConfig := &DashboardConfig{
		RefreshInterval: getOptionalEnvDuration("DASHBOARD_REFRESH", d["DASHBOARD_REFRESH"], &errors),
		Window:          window,
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return &AppConfig{
		API:       apiConfig,
		Storage:   storageConfig,
		Dashboard: dashboardConfig,
	}, nil
}
