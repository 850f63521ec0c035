// Package config loads the runtime configuration of SilvaSentinel from the
// environment (optionally seeded from a .env file).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string   `env:"HTTP_ADDR" env-default:":8080"`
	Env         string   `env:"APP_ENV" env-default:"development"`
	LogLevel    string   `env:"LOG_LEVEL" env-default:"info"`
	CORSOrigins []string `env:"CORS_ORIGINS" env-separator:"," env-default:"*"`

	Database    DatabaseConfig
	Redis       RedisConfig
	Session     SessionConfig
	Evidence    EvidenceConfig
	Telegram    TelegramConfig
	INaturalist INaturalistConfig
}

type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" env-default:"postgres"`
	Host       string `env:"DB_HOST" env-default:"localhost"`
	Port       int    `env:"DB_PORT" env-default:"5432"`
	User       string `env:"DB_USER" env-default:"silva"`
	Password   string `env:"DB_PASSWORD" env-default:"silva"`
	Name       string `env:"DB_NAME" env-default:"silvasentinel"`
	SSLMode    string `env:"DB_SSLMODE" env-default:"disable"`
	SQLitePath string `env:"SQLITE_PATH" env-default:"silvasentinel.db"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// An empty Addr disables every Redis-backed feature.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:""`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type SessionConfig struct {
	Secret       string        `env:"JWT_SECRET" env-default:"change-me"`
	TTL          time.Duration `env:"SESSION_TTL" env-default:"12h"`
	RememberTTL  time.Duration `env:"SESSION_REMEMBER_TTL" env-default:"168h"`
	SecureCookie bool          `env:"SESSION_SECURE_COOKIE" env-default:"false"`
}

type EvidenceConfig struct {
	Backend    string `env:"EVIDENCE_BACKEND" env-default:"local"`
	MediaRoot  string `env:"MEDIA_ROOT" env-default:"media"`
	S3Bucket   string `env:"S3_BUCKET"`
	S3Region   string `env:"S3_REGION" env-default:"us-east-1"`
	S3Endpoint string `env:"S3_ENDPOINT"`
	S3Key      string `env:"S3_ACCESS_KEY"`
	S3Secret   string `env:"S3_SECRET_KEY"`
}

type TelegramConfig struct {
	Token       string `env:"TELEGRAM_BOT_TOKEN"`
	StaffChatID int64  `env:"TELEGRAM_STAFF_CHAT_ID" env-default:"0"`
}

// Enabled reports whether staff notifications can be sent.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.StaffChatID != 0
}

type INaturalistConfig struct {
	BaseURL string        `env:"INATURALIST_URL" env-default:"https://api.inaturalist.org/v1/observations"`
	PlaceID int           `env:"INATURALIST_PLACE_ID" env-default:"6793"`
	Timeout time.Duration `env:"INATURALIST_TIMEOUT" env-default:"10s"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	switch cfg.Evidence.Backend {
	case "local":
	case "s3":
		if cfg.Evidence.S3Bucket == "" {
			return nil, fmt.Errorf("EVIDENCE_BACKEND=s3 requires S3_BUCKET")
		}
	default:
		return nil, fmt.Errorf("unsupported EVIDENCE_BACKEND %q", cfg.Evidence.Backend)
	}
	return &cfg, nil
}
