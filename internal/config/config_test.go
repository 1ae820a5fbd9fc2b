package config

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{"GROQ_API_KEY": "gsk-test"})
	cfg, err := Load("duckask", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.Data.Dir != "data" {
		t.Fatalf("Data.Dir = %q", cfg.Data.Dir)
	}
	if cfg.Data.Source != DataSourceLocal {
		t.Fatalf("Data.Source = %q", cfg.Data.Source)
	}
	if cfg.Prompt.Path != "prompts/base_prompt.txt" {
		t.Fatalf("Prompt.Path = %q", cfg.Prompt.Path)
	}
	if cfg.AI.Model != "llama3-70b-8192" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.BaseURL != "https://api.groq.com/openai" {
		t.Fatalf("AI.BaseURL = %q", cfg.AI.BaseURL)
	}
	if cfg.AI.APIKey != "gsk-test" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.AI.Timeout != 0 {
		t.Fatalf("AI.Timeout = %s, want transport default", cfg.AI.Timeout)
	}
	if cfg.AI.Temperature != nil {
		t.Fatalf("AI.Temperature = %v, want unset", *cfg.AI.Temperature)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsAddr != "" {
		t.Fatalf("MetricsAddr = %q", cfg.Observability.MetricsAddr)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"DUCKASK_PROFILE":    "prod",
		"DUCKASK_AI_API_KEY": "k",
	})
	cfg, err := Load("duckask", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Observability.LogJSON {
		t.Fatal("LogJSON should default to true in prod")
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"DUCKASK_PROFILE":                "test",
		"DUCKASK_SERVICE_NAME":           "duckask-custom",
		"DUCKASK_DATA_DIR":               "/srv/data",
		"DUCKASK_DATA_SOURCE":            "S3",
		"DUCKASK_OBJECTSTORE_ENDPOINT":   "s3.example.com",
		"DUCKASK_OBJECTSTORE_BUCKET":     "datasets",
		"DUCKASK_OBJECTSTORE_REGION":     "eu-west-1",
		"DUCKASK_OBJECTSTORE_ACCESS_KEY": "abc",
		"DUCKASK_OBJECTSTORE_SECRET_KEY": "def",
		"DUCKASK_OBJECTSTORE_USE_SSL":    "true",
		"DUCKASK_OBJECTSTORE_PREFIX":     "hr",
		"DUCKASK_PROMPT_PATH":            "/etc/duckask/prompt.txt",
		"DUCKASK_AI_BASE_URL":            "https://api.example.com",
		"DUCKASK_AI_API_KEY":             "secret-key",
		"GROQ_API_KEY":                   "ignored",
		"DUCKASK_AI_MODEL":               "llama-3.3-70b-versatile",
		"DUCKASK_AI_TEMPERATURE":         "0.2",
		"DUCKASK_AI_TIMEOUT":             "21s",
		"DUCKASK_LOG_LEVEL":              "error",
		"DUCKASK_LOG_JSON":               "true",
		"DUCKASK_METRICS_ADDR":           ":9102",
	})
	cfg, err := Load("duckask", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "duckask-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.Data.Dir != "/srv/data" {
		t.Fatalf("Data.Dir = %q", cfg.Data.Dir)
	}
	if cfg.Data.Source != DataSourceS3 {
		t.Fatalf("Data.Source = %q", cfg.Data.Source)
	}
	if cfg.ObjectStore.Bucket != "datasets" || cfg.ObjectStore.Prefix != "hr" {
		t.Fatalf("ObjectStore = %#v", cfg.ObjectStore)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL = false, want true")
	}
	if cfg.Prompt.Path != "/etc/duckask/prompt.txt" {
		t.Fatalf("Prompt.Path = %q", cfg.Prompt.Path)
	}
	if cfg.AI.APIKey != "secret-key" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Temperature == nil || *cfg.AI.Temperature != 0.2 {
		t.Fatalf("AI.Temperature = %v", cfg.AI.Temperature)
	}
	if cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsAddr != ":9102" {
		t.Fatalf("MetricsAddr = %q", cfg.Observability.MetricsAddr)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	_, err := Load("duckask", mapLookup(map[string]string{}))
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Load() error = %v, want ErrMissingAPIKey", err)
	}

	_, err = Load("duckask", mapLookup(map[string]string{"DUCKASK_AI_API_KEY": "   "}))
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Load() error = %v, want ErrMissingAPIKey for blank key", err)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"DUCKASK_PROFILE": "oops"},
		{"DUCKASK_DATA_SOURCE": "ftp"},
		{"DUCKASK_DATA_SOURCE": "s3"},
		{"DUCKASK_AI_TIMEOUT": "NaN"},
		{"DUCKASK_AI_TEMPERATURE": "bad"},
		{"DUCKASK_OBJECTSTORE_USE_SSL": "not-bool"},
		{"DUCKASK_LOG_LEVEL": "verbose"},
	}
	for _, env := range tests {
		env["DUCKASK_AI_API_KEY"] = "k"
		_, err := Load("duckask", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func TestChainLookupPrefersEarlierSources(t *testing.T) {
	lookup := ChainLookup(
		mapLookup(map[string]string{"A": "env"}),
		nil,
		mapLookup(map[string]string{"A": "file", "B": "file"}),
	)
	if value, _ := lookup("A"); value != "env" {
		t.Fatalf("A = %q", value)
	}
	if value, _ := lookup("B"); value != "file" {
		t.Fatalf("B = %q", value)
	}
	if _, ok := lookup("C"); ok {
		t.Fatal("C should not resolve")
	}
}
