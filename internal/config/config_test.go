package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("KEV_CACHE_TTL", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DefaultKEVTTL, cfg.KEVCacheTTL)
	assert.Equal(t, DefaultKEVFeedURL, cfg.KEVFeedURL)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.AllowedOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KEV_CACHE_TTL", "30m")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SCORING_API_URL", "http://scoring:8000/")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := FromEnv()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 30*time.Minute, cfg.KEVCacheTTL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "http://scoring:8000", cfg.ScoringAPIURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("KEV_CACHE_TTL", "soon")
	t.Setenv("REDIS_DB", "one")

	cfg := FromEnv()

	assert.Equal(t, DefaultKEVTTL, cfg.KEVCacheTTL)
	assert.Equal(t, 0, cfg.RedisDB)
}
