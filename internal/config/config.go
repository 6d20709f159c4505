// Package config loads bot configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// TelegramConfig provides settings for the chat transport.
type TelegramConfig interface {
	GetTelegramBotToken() string
	GetTelegramMode() string
	GetTelegramWebhookURL() string
	GetTelegramWebhookSecret() string
	GetTelegramRatePerSecond() float64
}

// OpenAIConfig provides settings for the hosted assistant.
type OpenAIConfig interface {
	GetOpenAIAPIKey() string
	GetOpenAIAssistantID() string
	GetOpenAIBaseURL() string
	GetPollInterval() time.Duration
	GetPollMaxInterval() time.Duration
	GetRunTimeout() time.Duration
}

// StoreConfig selects the key-value backend for sessions and thread handles.
type StoreConfig interface {
	GetStoreBackend() string
	GetDatabaseURL() string
	GetRedisURL() string
}

// NotifyConfig provides settings for lead notifications.
type NotifyConfig interface {
	GetWorkingChatID() string
	GetNotifyWebhookURL() string
	GetNotifyWebhookToken() string
}

// BotConfig provides media shown on /start.
type BotConfig interface {
	GetLogoImageURL() string
	GetChecklistURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
}

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"

	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all application configuration values.
type Config struct {
	Env string

	HTTPAddr string

	TelegramBotToken      string
	TelegramMode          string
	TelegramWebhookURL    string
	TelegramWebhookSecret string
	TelegramRatePerSecond float64

	OpenAIAPIKey      string
	OpenAIAssistantID string
	OpenAIBaseURL     string
	PollInterval      time.Duration
	PollMaxInterval   time.Duration
	RunTimeout        time.Duration

	StoreBackend string
	DatabaseURL  string
	RedisURL     string

	WorkingChatID      string
	NotifyWebhookURL   string
	NotifyWebhookToken string

	LogoImageURL string
	ChecklistURL string
}

func (c *Config) GetTelegramBotToken() string       { return c.TelegramBotToken }
func (c *Config) GetTelegramMode() string           { return c.TelegramMode }
func (c *Config) GetTelegramWebhookURL() string     { return c.TelegramWebhookURL }
func (c *Config) GetTelegramWebhookSecret() string  { return c.TelegramWebhookSecret }
func (c *Config) GetTelegramRatePerSecond() float64 { return c.TelegramRatePerSecond }

func (c *Config) GetOpenAIAPIKey() string           { return c.OpenAIAPIKey }
func (c *Config) GetOpenAIAssistantID() string      { return c.OpenAIAssistantID }
func (c *Config) GetOpenAIBaseURL() string          { return c.OpenAIBaseURL }
func (c *Config) GetPollInterval() time.Duration    { return c.PollInterval }
func (c *Config) GetPollMaxInterval() time.Duration { return c.PollMaxInterval }
func (c *Config) GetRunTimeout() time.Duration      { return c.RunTimeout }

func (c *Config) GetStoreBackend() string { return c.StoreBackend }
func (c *Config) GetDatabaseURL() string  { return c.DatabaseURL }
func (c *Config) GetRedisURL() string     { return c.RedisURL }

func (c *Config) GetWorkingChatID() string      { return c.WorkingChatID }
func (c *Config) GetNotifyWebhookURL() string   { return c.NotifyWebhookURL }
func (c *Config) GetNotifyWebhookToken() string { return c.NotifyWebhookToken }

func (c *Config) GetLogoImageURL() string { return c.LogoImageURL }
func (c *Config) GetChecklistURL() string { return c.ChecklistURL }

func (c *Config) GetHTTPAddr() string { return c.HTTPAddr }

// Load reads configuration from .env and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Env:                   getEnv("APP_ENV", "production"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		TelegramBotToken:      strings.TrimSpace(getEnv("TELEGRAM_BOT_TOKEN", "")),
		TelegramMode:          strings.ToLower(getEnv("TELEGRAM_MODE", ModePolling)),
		TelegramWebhookURL:    getEnv("TELEGRAM_WEBHOOK_URL", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		OpenAIAPIKey:          strings.TrimSpace(getEnv("OPENAI_API_KEY", "")),
		OpenAIAssistantID:     strings.TrimSpace(getEnv("OPENAI_ASSISTANT_ID", "")),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		StoreBackend:          strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		WorkingChatID:         strings.TrimSpace(getEnv("WORKING_CHAT_ID", "")),
		NotifyWebhookURL:      getEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifyWebhookToken:    getEnv("NOTIFY_WEBHOOK_TOKEN", ""),
		LogoImageURL:          getEnv("LOGO_IMAGE_URL", ""),
		ChecklistURL:          getEnv("CHECKLIST_URL", ""),
	}

	var err error
	if cfg.TelegramRatePerSecond, err = parseFloat("TELEGRAM_RATE_PER_SEC", "25"); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = parseDuration("OPENAI_POLL_INTERVAL", "1s"); err != nil {
		return nil, err
	}
	if cfg.PollMaxInterval, err = parseDuration("OPENAI_POLL_MAX_INTERVAL", "8s"); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = parseDuration("OPENAI_RUN_TIMEOUT", "2m"); err != nil {
		return nil, err
	}
	if cfg.TelegramRatePerSecond < 0 {
		return nil, fmt.Errorf("TELEGRAM_RATE_PER_SEC must not be negative")
	}

	var missing []string
	if cfg.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if cfg.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if cfg.OpenAIAssistantID == "" {
		missing = append(missing, "OPENAI_ASSISTANT_ID")
	}
	if cfg.WorkingChatID == "" && cfg.NotifyWebhookURL == "" {
		missing = append(missing, "WORKING_CHAT_ID")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	switch cfg.TelegramMode {
	case ModePolling:
	case ModeWebhook:
		if cfg.TelegramWebhookURL == "" {
			return nil, fmt.Errorf("TELEGRAM_WEBHOOK_URL is required when TELEGRAM_MODE is webhook")
		}
	default:
		return nil, fmt.Errorf("unknown TELEGRAM_MODE %q", cfg.TelegramMode)
	}

	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is postgres")
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when STORE_BACKEND is redis")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.PollInterval <= 0 || cfg.RunTimeout <= 0 {
		return nil, fmt.Errorf("OPENAI_POLL_INTERVAL and OPENAI_RUN_TIMEOUT must be positive durations")
	}
	if cfg.PollMaxInterval < cfg.PollInterval {
		cfg.PollMaxInterval = cfg.PollInterval
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	value := getEnv(key, fallback)
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}

func parseFloat(key, fallback string) (float64, error) {
	value := getEnv(key, fallback)
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, value)
	}
	return f, nil
}
