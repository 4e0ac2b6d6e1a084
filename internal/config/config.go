package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerURL string
	LogLevel  string
	LogFormat string

	RequestTimeoutSeconds int
	UploadTimeoutSeconds  int
	RequestsPerSecond     float64
	RequestBurst          int

	RetryMaxAttempts      int
	RetryInitialBackoffMS int
	BreakerEnabled        bool

	SessionTTLHours int
	TokenPath       string

	MetricsAddr string

	OCRDefault      bool
	MaxUploadFiles  int
	MaxUploadSizeMB int
}

// fileConfig is the optional YAML overlay. Pointer fields distinguish "not
// set" from an explicit zero.
type fileConfig struct {
	ServerURL *string `yaml:"server_url"`
	LogLevel  *string `yaml:"log_level"`
	LogFormat *string `yaml:"log_format"`

	RequestTimeoutSeconds *int     `yaml:"request_timeout_seconds"`
	UploadTimeoutSeconds  *int     `yaml:"upload_timeout_seconds"`
	RequestsPerSecond     *float64 `yaml:"requests_per_second"`
	RequestBurst          *int     `yaml:"request_burst"`

	RetryMaxAttempts      *int  `yaml:"retry_max_attempts"`
	RetryInitialBackoffMS *int  `yaml:"retry_initial_backoff_ms"`
	BreakerEnabled        *bool `yaml:"breaker_enabled"`

	SessionTTLHours *int    `yaml:"session_ttl_hours"`
	TokenPath       *string `yaml:"token_path"`

	MetricsAddr *string `yaml:"metrics_addr"`

	OCRDefault      *bool `yaml:"ocr_default"`
	MaxUploadFiles  *int  `yaml:"max_upload_files"`
	MaxUploadSizeMB *int  `yaml:"max_upload_size_mb"`
}

// Load resolves configuration in three layers: built-in defaults, then the
// YAML file named by DOCCHAT_CONFIG (if any), then environment variables,
// which always win.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("DOCCHAT_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.ServerURL = mustEnv("DOCCHAT_SERVER_URL", cfg.ServerURL)
	cfg.LogLevel = mustEnv("DOCCHAT_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = mustEnv("DOCCHAT_LOG_FORMAT", cfg.LogFormat)

	cfg.RequestTimeoutSeconds = mustEnvInt("DOCCHAT_REQUEST_TIMEOUT_SECONDS", cfg.RequestTimeoutSeconds)
	cfg.UploadTimeoutSeconds = mustEnvInt("DOCCHAT_UPLOAD_TIMEOUT_SECONDS", cfg.UploadTimeoutSeconds)
	cfg.RequestsPerSecond = mustEnvFloat("DOCCHAT_REQUESTS_PER_SECOND", cfg.RequestsPerSecond)
	cfg.RequestBurst = mustEnvInt("DOCCHAT_REQUEST_BURST", cfg.RequestBurst)

	cfg.RetryMaxAttempts = mustEnvInt("DOCCHAT_RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	cfg.RetryInitialBackoffMS = mustEnvInt("DOCCHAT_RETRY_INITIAL_BACKOFF_MS", cfg.RetryInitialBackoffMS)
	cfg.BreakerEnabled = mustEnvBool("DOCCHAT_BREAKER_ENABLED", cfg.BreakerEnabled)

	cfg.SessionTTLHours = mustEnvInt("DOCCHAT_SESSION_TTL_HOURS", cfg.SessionTTLHours)
	cfg.TokenPath = mustEnv("DOCCHAT_TOKEN_PATH", cfg.TokenPath)

	cfg.MetricsAddr = mustEnv("DOCCHAT_METRICS_ADDR", cfg.MetricsAddr)

	cfg.OCRDefault = mustEnvBool("DOCCHAT_OCR_DEFAULT", cfg.OCRDefault)
	cfg.MaxUploadFiles = mustEnvInt("DOCCHAT_MAX_UPLOAD_FILES", cfg.MaxUploadFiles)
	cfg.MaxUploadSizeMB = mustEnvInt("DOCCHAT_MAX_UPLOAD_SIZE_MB", cfg.MaxUploadSizeMB)

	return cfg, nil
}

func defaults() Config {
	return Config{
		ServerURL: "http://localhost:8000",
		LogLevel:  "info",
		LogFormat: "text",

		RequestTimeoutSeconds: 30,
		UploadTimeoutSeconds:  300,
		RequestsPerSecond:     5,
		RequestBurst:          3,

		RetryMaxAttempts:      3,
		RetryInitialBackoffMS: 100,
		BreakerEnabled:        true,

		SessionTTLHours: 24,
		TokenPath:       defaultTokenPath(),

		MetricsAddr: "",

		OCRDefault:      false,
		MaxUploadFiles:  10,
		MaxUploadSizeMB: 50,
	}
}

func defaultTokenPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "docchat", "session.json")
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var overlay fileConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.ServerURL, overlay.ServerURL)
	setString(&cfg.LogLevel, overlay.LogLevel)
	setString(&cfg.LogFormat, overlay.LogFormat)

	setInt(&cfg.RequestTimeoutSeconds, overlay.RequestTimeoutSeconds)
	setInt(&cfg.UploadTimeoutSeconds, overlay.UploadTimeoutSeconds)
	setFloat(&cfg.RequestsPerSecond, overlay.RequestsPerSecond)
	setInt(&cfg.RequestBurst, overlay.RequestBurst)

	setInt(&cfg.RetryMaxAttempts, overlay.RetryMaxAttempts)
	setInt(&cfg.RetryInitialBackoffMS, overlay.RetryInitialBackoffMS)
	setBool(&cfg.BreakerEnabled, overlay.BreakerEnabled)

	setInt(&cfg.SessionTTLHours, overlay.SessionTTLHours)
	setString(&cfg.TokenPath, overlay.TokenPath)

	setString(&cfg.MetricsAddr, overlay.MetricsAddr)

	setBool(&cfg.OCRDefault, overlay.OCRDefault)
	setInt(&cfg.MaxUploadFiles, overlay.MaxUploadFiles)
	setInt(&cfg.MaxUploadSizeMB, overlay.MaxUploadSizeMB)
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
