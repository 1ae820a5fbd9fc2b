package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

var ErrMissingAPIKey = errors.New("DUCKASK_AI_API_KEY (or GROQ_API_KEY) is not set")

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type DataSource string

const (
	DataSourceLocal DataSource = "local"
	DataSourceS3    DataSource = "s3"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	Data          DataConfig
	ObjectStore   ObjectStoreConfig
	Prompt        PromptConfig
	AI            AIConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type DataConfig struct {
	Dir    string
	Source DataSource
}

type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

type PromptConfig struct {
	Path string
}

type AIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Temperature is nil when unset so the server default applies.
	Temperature *float64
	Timeout     time.Duration
}

type ObservabilityConfig struct {
	LogLevel    slog.Level
	LogJSON     bool
	MetricsAddr string
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("DUCKASK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid DUCKASK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	var source string
	appliers := []func() error{
		func() error { return applyString(lookup, "DUCKASK_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "DUCKASK_DATA_DIR", &cfg.Data.Dir) },
		func() error { return applyString(lookup, "DUCKASK_DATA_SOURCE", &source) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey) },
		func() error { return applyBool(lookup, "DUCKASK_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error { return applyString(lookup, "DUCKASK_PROMPT_PATH", &cfg.Prompt.Path) },
		func() error { return applyString(lookup, "DUCKASK_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "GROQ_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "DUCKASK_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "DUCKASK_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyOptionalFloat(lookup, "DUCKASK_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyDuration(lookup, "DUCKASK_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyBool(lookup, "DUCKASK_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "DUCKASK_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyString(lookup, "DUCKASK_METRICS_ADDR", &cfg.Observability.MetricsAddr) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	if source != "" {
		cfg.Data.Source = DataSource(strings.ToLower(source))
	}
	if cfg.Data.Source != DataSourceLocal && cfg.Data.Source != DataSourceS3 {
		return Config{}, fmt.Errorf("invalid DUCKASK_DATA_SOURCE: %q", cfg.Data.Source)
	}
	if cfg.Data.Source == DataSourceS3 && cfg.ObjectStore.Bucket == "" {
		return Config{}, fmt.Errorf("object store bucket is required for data source %q", DataSourceS3)
	}
	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.Data.Dir == "" {
		return Config{}, fmt.Errorf("data directory is required")
	}
	if cfg.Prompt.Path == "" {
		return Config{}, fmt.Errorf("prompt path is required")
	}
	if cfg.AI.APIKey == "" {
		return Config{}, ErrMissingAPIKey
	}
	return cfg, nil
}

// ChainLookup returns the first value found across lookups, in order.
func ChainLookup(lookups ...LookupFunc) LookupFunc {
	return func(key string) (string, bool) {
		for _, lookup := range lookups {
			if lookup == nil {
				continue
			}
			if value, ok := lookup(key); ok {
				return value, true
			}
		}
		return "", false
	}
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "duckask"},
		Data: DataConfig{
			Dir:    "data",
			Source: DataSourceLocal,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint: "localhost:9000",
			Region:   "us-east-1",
			UseSSL:   false,
		},
		Prompt: PromptConfig{
			Path: "prompts/base_prompt.txt",
		},
		AI: AIConfig{
			BaseURL: "https://api.groq.com/openai",
			Model:   "llama3-70b-8192",
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelInfo,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileDev:
		cfg.Observability.LogLevel = slog.LevelDebug
	case ProfileTest:
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogJSON = true
		cfg.ObjectStore.UseSSL = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	if value := strings.TrimSpace(raw); value != "" {
		*dst = value
	}
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyOptionalFloat(lookup LookupFunc, key string, dst **float64) error {
	if _, ok := lookup(key); !ok {
		return nil
	}
	var value float64
	if err := applyFloat(lookup, key, &value); err != nil {
		return err
	}
	*dst = &value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
