package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPAddr         string
	MySQLDSN         string
	MySQLMaxOpen     int
	MySQLMaxIdle     int
	RedisAddr        string
	RedisPoolSize    int
	OperationTimeout time.Duration
	LogLevel         string
}

// Load reads configuration from the environment, with a best-effort .env
// file for local development.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		MySQLDSN:         getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/backoffice?parseTime=true"),
		MySQLMaxOpen:     getEnvInt("MYSQL_MAX_OPEN", 50),
		MySQLMaxIdle:     getEnvInt("MYSQL_MAX_IDLE", 25),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPoolSize:    getEnvInt("REDIS_POOL_SIZE", 100),
		OperationTimeout: getEnvDuration("OPERATION_TIMEOUT", 5*time.Second),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
}

// NewLogger builds the process logger: JSON output, level from config.
func NewLogger(cfg Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
