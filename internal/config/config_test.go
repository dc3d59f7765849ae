package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseExpiry(t *testing.T) {
	def := 24 * time.Hour
	cases := map[string]time.Duration{
		"":      def,
		"never": 0,
		"0":     0,
		"7d":    7 * 24 * time.Hour,
		"36h":   36 * time.Hour,
		"90m":   90 * time.Minute,
		"-3d":   def,
		"soon":  def,
		" 2d ":  48 * time.Hour,
		"-5s":   def,
		"abcd":  def,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseExpiry(in, def), "%q", in)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "REDIS_ADDR", "DATABASE_URL", "WINNING_SCORE", "THINK_DELAY_MS", "TOKEN_EXPIRE_TIME"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 11, cfg.WinningScore)
	assert.Equal(t, time.Second, cfg.ThinkDelay)
	assert.Equal(t, 24*time.Hour, cfg.TokenExpiry)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WINNING_SCORE", "21")
	t.Setenv("THINK_DELAY_MS", "250")
	t.Setenv("TOKEN_EXPIRE_TIME", "never")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 21, cfg.WinningScore)
	assert.Equal(t, 250*time.Millisecond, cfg.ThinkDelay)
	assert.Zero(t, cfg.TokenExpiry)
	assert.Zero(t, cfg.RedisDB)
}
