// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config collects the environment-driven settings shared by the binaries.
// Empty RedisAddr or DatabaseURL disables that backend.
type Config struct {
	Port     string
	LogLevel logrus.Level

	RedisAddr      string
	RedisDB        int
	HistorianQueue string

	DatabaseURL string

	WinningScore int
	ThinkDelay   time.Duration
	TokenExpiry  time.Duration

	HistorianBatchSize  int
	HistorianFlush      time.Duration
	HistorianInactivity time.Duration
}

// Load reads the process environment. Unparseable values fall back to defaults.
func Load() Config {
	level, err := logrus.ParseLevel(GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	return Config{
		Port:                GetEnv("PORT", "8080"),
		LogLevel:            level,
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisDB:             GetEnvInt("REDIS_DB", 0),
		HistorianQueue:      GetEnv("HISTORIAN_QUEUE_NAME", "pitch_actions"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		WinningScore:        GetEnvInt("WINNING_SCORE", 11),
		ThinkDelay:          time.Duration(GetEnvInt("THINK_DELAY_MS", 1000)) * time.Millisecond,
		TokenExpiry:         ParseExpiry(os.Getenv("TOKEN_EXPIRE_TIME"), 24*time.Hour),
		HistorianBatchSize:  GetEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:      time.Duration(GetEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		HistorianInactivity: time.Duration(GetEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second, // default 10 min
	}
}

// GetEnv reads an environment variable or returns def.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt parses an environment variable as an integer, else returns def.
func GetEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// ParseExpiry understands Go durations ("36h") plus a day suffix ("7d").
// "never" and "0" return 0, meaning tokens do not expire. Anything else
// unparseable yields def.
func ParseExpiry(s string, def time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return def
	case "never", "0":
		return 0
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return def
		}
		return time.Duration(days) * 24 * time.Hour
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
