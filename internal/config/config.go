package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultKEVFeedURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"
	DefaultKEVTTL     = 6 * time.Hour
)

type Config struct {
	DBDSN         string
	ServerPort    string
	SessionSecret string

	AdminUsername string
	AdminPassword string

	LogLevel  string
	LogFormat string
	LogFile   string

	KEVFeedURL  string
	KEVCacheTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ScoringAPIURL string
	NATSURL       string

	AllowedOrigins []string
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := FromEnv()

	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN is not set")
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET is not set")
	}

	return cfg
}

// FromEnv reads the environment without enforcing required keys.
func FromEnv() *Config {
	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin@ctem.local"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "Admin123!"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		LogFile:       os.Getenv("LOG_FILE"),
		KEVFeedURL:    getEnv("KEV_FEED_URL", DefaultKEVFeedURL),
		KEVCacheTTL:   getDuration("KEV_CACHE_TTL", DefaultKEVTTL),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		ScoringAPIURL: strings.TrimRight(os.Getenv("SCORING_API_URL"), "/"),
		NATSURL:       os.Getenv("NATS_URL"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS",
			"http://localhost:3000,http://127.0.0.1:3000")),
	}

	return cfg
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("invalid %s=%q, using %s", key, raw, def)
		return def
	}
	return d
}

func getInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
