// Package config загружает настройки бота из .env, YAML и переменных окружения.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	RunModeWebhook = "webhook"
	RunModePolling = "polling"

	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Config - корневая конфигурация бота.
type Config struct {
	BotToken        string          `yaml:"bot_token"        env:"BOT_TOKEN"        env-required:"true" validate:"required"`
	ChannelUsername string          `yaml:"channel_username" env:"CHANNEL_USERNAME" env-default:"@alexbullpogoda" validate:"required,startswith=@"`
	RunMode         string          `yaml:"run_mode"         env:"RUN_MODE"         env-default:"webhook" validate:"oneof=webhook polling"`
	LogLevel        string          `yaml:"log_level"        env:"LOG_LEVEL"        env-default:"info" validate:"oneof=debug info warn error"`
	Webhook         WebhookConfig   `yaml:"webhook"`
	Storage         StorageConfig   `yaml:"storage"`
	Redis           RedisConfig     `yaml:"redis"`
	OpenMeteo       OpenMeteoConfig `yaml:"open_meteo"`
	Scheduler       SchedulerConfig `yaml:"scheduler"`
}

// WebhookConfig - входящий HTTP: вебхук Telegram, health и метрики.
type WebhookConfig struct {
	Secret  string `yaml:"secret"   env:"WEBHOOK_SECRET" env-default:"secret123" validate:"required"`
	BaseURL string `yaml:"base_url" env:"BASE_URL" validate:"omitempty,url"`
	Port    int    `yaml:"port"     env:"PORT"           env-default:"10000" validate:"gt=0,lte=65535"`
}

// StorageConfig - где хранятся профили пользователей.
type StorageConfig struct {
	Driver   string `yaml:"driver"    env:"STORE_DRIVER" env-default:"json" validate:"oneof=json sqlite"`
	DataFile string `yaml:"data_file" env:"DATA_FILE"    env-default:"data.json" validate:"required"`
	DBPath   string `yaml:"db_path"   env:"DB_PATH"      env-default:"data/bot.db" validate:"required"`
}

// RedisConfig - общее хранилище сессий. Пустой URL означает хранение в памяти.
type RedisConfig struct {
	URL        string        `yaml:"url"         env:"REDIS_URL"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"24h"`
}

// OpenMeteoConfig - адреса и таймауты Open-Meteo.
type OpenMeteoConfig struct {
	GeocodeURL  string        `yaml:"geocode_url"  env:"GEOCODE_URL"      env-default:"https://geocoding-api.open-meteo.com/v1/search" validate:"url"`
	ForecastURL string        `yaml:"forecast_url" env:"FORECAST_URL"     env-default:"https://api.open-meteo.com/v1/forecast" validate:"url"`
	Language    string        `yaml:"language"     env:"GEOCODE_LANGUAGE" env-default:"ru" validate:"required"`
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT"     env-default:"15s"`
}

// SchedulerConfig - ежедневная рассылка.
type SchedulerConfig struct {
	JobTimeout time.Duration `yaml:"job_timeout" env:"SCHEDULE_JOB_TIMEOUT" env-default:"30s"`
}

// WebhookPath возвращает путь вебхука с секретом.
func (c *Config) WebhookPath() string {
	return "/webhook/" + c.Webhook.Secret
}

// WebhookURL возвращает полный адрес вебхука или "", если BASE_URL не задан.
func (c *Config) WebhookURL() string {
	if c.Webhook.BaseURL == "" {
		return ""
	}
	return strings.TrimRight(c.Webhook.BaseURL, "/") + c.WebhookPath()
}

// JoinURL возвращает ссылку на канал для кнопки подписки.
func (c *Config) JoinURL() string {
	return "https://t.me/" + strings.TrimPrefix(c.ChannelUsername, "@")
}

// Load читает .env (если есть), затем YAML по явному пути или CONFIG_PATH,
// иначе только переменные окружения.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.OpenMeteo.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid config: HTTP_TIMEOUT must be positive")
	}
	if c.Scheduler.JobTimeout <= 0 {
		return fmt.Errorf("invalid config: SCHEDULE_JOB_TIMEOUT must be positive")
	}
	return nil
}
