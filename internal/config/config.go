package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type DBConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	Schema   string
	MaxConns int32
}

// DSN returns DATABASE_URL when set, otherwise a URL assembled from parts.
func (d DBConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type WhatsAppConfig struct {
	BaseURL      string
	APIKey       string
	WebhookURL   string
	ProxyURL     string
	IgnoreGroups bool
	Timeout      time.Duration
}

type MediaConfig struct {
	BaseURL  string
	APIKey   string
	MaxBytes int64
}

type LogConfig struct {
	Level      string
	File       string
	FileEnable bool
}

type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

type AppConfig struct {
	Port             int
	Env              string
	JWTSecret        string
	TokenTTL         time.Duration
	SessionSecret    string
	BroadcastWorkers int

	DB       DBConfig
	WhatsApp WhatsAppConfig
	Media    MediaConfig
	Log      LogConfig
	Admin    AdminSeed
}

func (c *AppConfig) IsProduction() bool { return c.Env == "production" }

// Load reads .env (when present) and the process environment.
func Load() (*AppConfig, error) {
	// A missing .env is fine, the real environment still applies.
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the config from any key lookup function.
func FromLookup(lookup func(string) (string, bool)) (*AppConfig, error) {
	get := func(key string, def any) any {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &AppConfig{
		Port:             cast.ToInt(get("PORT", 3000)),
		Env:              cast.ToString(get("APP_ENV", "development")),
		JWTSecret:        cast.ToString(get("JWT_SECRET", "")),
		TokenTTL:         cast.ToDuration(get("JWT_TTL", "5h")),
		BroadcastWorkers: cast.ToInt(get("BROADCAST_WORKERS", 8)),
		DB: DBConfig{
			URL:      cast.ToString(get("DATABASE_URL", "")),
			Host:     cast.ToString(get("DB_HOST", "localhost")),
			Port:     cast.ToInt(get("DB_PORT", 5432)),
			User:     cast.ToString(get("DB_USER", "postgres")),
			Password: cast.ToString(get("DB_PASSWORD", "")),
			Name:     cast.ToString(get("DB_NAME", "postgres")),
			SSLMode:  cast.ToString(get("DB_SSLMODE", "disable")),
			Schema:   cast.ToString(get("DB_SCHEMA", "conexbot")),
			MaxConns: cast.ToInt32(get("DB_MAX_CONNS", 20)),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:      strings.TrimRight(cast.ToString(get("WHATSAPP_API_URL", "")), "/"),
			APIKey:       cast.ToString(get("WHATSAPP_API_KEY", "")),
			WebhookURL:   cast.ToString(get("WHATSAPP_WEBHOOK_URL", "")),
			ProxyURL:     cast.ToString(get("WHATSAPP_PROXY_URL", "")),
			IgnoreGroups: cast.ToBool(get("WHATSAPP_IGNORE_GROUPS", true)),
			Timeout:      cast.ToDuration(get("WHATSAPP_API_TIMEOUT", "30s")),
		},
		Media: MediaConfig{
			BaseURL:  strings.TrimRight(cast.ToString(get("MEDIA_API_URL", "")), "/"),
			APIKey:   cast.ToString(get("MEDIA_API_KEY", "")),
			MaxBytes: cast.ToInt64(get("MEDIA_MAX_BYTES", 16<<20)),
		},
		Log: LogConfig{
			Level:      cast.ToString(get("LOG_LEVEL", "")),
			File:       cast.ToString(get("LOG_FILE", "logs/conexbot.log")),
			FileEnable: cast.ToBool(get("LOG_FILE_ENABLE", false)),
		},
		Admin: AdminSeed{
			Name:     cast.ToString(get("ADMIN_NAME", "Administrator")),
			Email:    cast.ToString(get("ADMIN_EMAIL", "")),
			Password: cast.ToString(get("ADMIN_PASSWORD", "")),
		},
	}
	cfg.SessionSecret = cast.ToString(get("SESSION_SECRET", cfg.JWTSecret))

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 5 * time.Hour
	}
	if cfg.WhatsApp.Timeout <= 0 {
		cfg.WhatsApp.Timeout = 30 * time.Second
	}
	if cfg.BroadcastWorkers <= 0 {
		cfg.BroadcastWorkers = 8
	}
	return cfg, nil
}
