package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"flowershop/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Cache      CacheConfig      `yaml:"cache"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Shop       ShopConfig       `yaml:"shop"`
	Geocoder   GeocoderConfig   `yaml:"geocoder"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken    string        `yaml:"bot_token"`
	ChannelID   string        `yaml:"channel_id"`
	SendTimeout time.Duration `yaml:"send_timeout"`
	FanoutDelay time.Duration `yaml:"fanout_delay"`
	Debug       bool          `yaml:"debug"`
}

// Enabled reports whether a real bot token is configured.
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.BotToken != "YOUR_BOT_TOKEN_HERE"
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type CacheConfig struct {
	ShopsTTL    time.Duration `yaml:"shops_ttl"`
	FeaturedTTL time.Duration `yaml:"featured_ttl"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// Submissions limits consultation and order posts per client address within Window.
	Submissions int           `yaml:"submissions"`
	Window      time.Duration `yaml:"window"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type ShopConfig struct {
	Timezone         string           `yaml:"timezone"`
	MapCenter        models.MapCenter `yaml:"map_center"`
	CatalogPageSize  int              `yaml:"catalog_page_size"`
	LoadMoreSize     int              `yaml:"load_more_size"`
	ReminderSchedule string           `yaml:"reminder_schedule"`
}

// Location resolves the configured timezone, falling back to local time.
func (c ShopConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type GeocoderConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен: в контейнере переменные приходят из окружения
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Backup.Enabled && c.Backup.StoragePath == "" {
		return errors.New("backup storage path is required when backups are enabled")
	}

	if c.Shop.Timezone != "" {
		if _, err := time.LoadLocation(c.Shop.Timezone); err != nil {
			return fmt.Errorf("invalid shop timezone %q: %w", c.Shop.Timezone, err)
		}
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

// ValidateAPIKeys rejects empty and duplicate admin keys.
func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if strings.TrimSpace(k.Key) == "" {
			return fmt.Errorf("api key '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for client '%s'", k.Name)
		}
		seen[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.RateLimit.Submissions == 0 {
		c.API.RateLimit.Submissions = models.RateLimitSubmissions
	}
	if c.API.RateLimit.Window == 0 {
		c.API.RateLimit.Window = models.RateLimitWindow
	}

	if c.Telegram.SendTimeout == 0 {
		c.Telegram.SendTimeout = models.DefaultSendTimeout
	}
	if c.Telegram.FanoutDelay == 0 {
		c.Telegram.FanoutDelay = models.DefaultFanoutDelay
	}

	if c.Cache.ShopsTTL == 0 {
		c.Cache.ShopsTTL = models.ShopsCacheTTL
	}
	if c.Cache.FeaturedTTL == 0 {
		c.Cache.FeaturedTTL = models.FeaturedCacheTTL
	}
	if c.Cache.SessionTTL == 0 {
		c.Cache.SessionTTL = models.DefaultSessionTTL
	}

	if c.Backup.Schedule == "" {
		c.Backup.Schedule = "@daily"
	}

	// Магазин
	if c.Shop.CatalogPageSize == 0 {
		c.Shop.CatalogPageSize = models.CatalogPageSize
	}
	if c.Shop.LoadMoreSize == 0 {
		c.Shop.LoadMoreSize = models.LoadMoreSize
	}
	if c.Shop.ReminderSchedule == "" {
		c.Shop.ReminderSchedule = "@every 5m"
	}
	if c.Shop.MapCenter.Lat == 0 && c.Shop.MapCenter.Lng == 0 {
		// центр Красноярска
		c.Shop.MapCenter = models.MapCenter{Lat: 56.0096, Lng: 92.8726}
	}

	if c.Geocoder.BaseURL == "" {
		c.Geocoder.BaseURL = "https://geocode-maps.yandex.ru/1.x/"
	}
	if c.Geocoder.Timeout == 0 {
		c.Geocoder.Timeout = 5 * time.Second
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "./exports"
	}
}
