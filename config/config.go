package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB       DBConfig
	Telegram TelegramConfig
	Backend  BackendConfig
	Sync     SyncConfig
	HTTP     HTTPConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Log      LogConfig
	// AutoMigrate applies embedded migrations on startup.
	AutoMigrate bool
}

// DBConfig is optional: an empty Host disables Postgres.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func (c DBConfig) Enabled() bool { return c.Host != "" }

func (c DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

type TelegramConfig struct {
	Token   string
	Login   string // operator password
	AdminID int64  // super admin chat id, always allowed
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SyncConfig struct {
	Interval time.Duration
}

type HTTPConfig struct {
	Addr string // empty disables the read-only API
}

type RedisConfig struct {
	Addr      string
	MarkerTTL time.Duration
}

type KafkaConfig struct {
	Broker string
	Topic  string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	adminID, err := getEnvInt64("ADMIN_ID", 0)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvDuration("API_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	interval, err := getEnvDuration("POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	markerTTL, err := getEnvDuration("REDIS_MARKER_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "food_admin"),
		},
		Telegram: TelegramConfig{
			Token:   getEnv("TOKEN", ""),
			Login:   getEnv("LOGIN", ""),
			AdminID: adminID,
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000"), "/"),
			Timeout: timeout,
		},
		Sync:        SyncConfig{Interval: interval},
		HTTP:        HTTPConfig{Addr: getEnv("HTTP_ADDR", "")},
		Redis:       RedisConfig{Addr: getEnv("REDIS_ADDR", ""), MarkerTTL: markerTTL},
		Kafka:       KafkaConfig{Broker: getEnv("KAFKA_BROKER", ""), Topic: getEnv("KAFKA_TOPIC", "order-status-events")},
		Log:         LogConfig{Level: getEnv("LOG_LEVEL", "info"), Format: getEnv("LOG_FORMAT", "text")},
		AutoMigrate: getEnvBool("AUTO_MIGRATE"),
	}, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getEnvInt64(key string, def int64) (int64, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

// getEnvDuration accepts Go durations ("5s") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		v = strconv.Itoa(secs) + "s"
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

// getEnvBool treats "1" and "true" (any case) as set.
func getEnvBool(key string) bool {
	v := getEnv(key, "")
	return v == "1" || strings.EqualFold(v, "true")
}
