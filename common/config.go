package common

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	SqliteDB        string
	SessionSecret   string
	CacheDir        string
	CacheMaxAge     time.Duration
	MaxCommentDepth int
	SiteTitle       string
	SiteURL         string
	GinMode         string
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not read .env: %v", err)
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		SqliteDB:        getEnv("SQLITE_DB", "pressroom.db"),
		SessionSecret:   getEnv("SESSION_SECRET", ""),
		CacheDir:        getEnv("CACHE_DIR", "cache"),
		CacheMaxAge:     getDuration("CACHE_MAX_AGE", 5*time.Minute),
		MaxCommentDepth: getInt("MAX_COMMENT_DEPTH", 8),
		SiteTitle:       getEnv("SITE_TITLE", "Pressroom"),
		SiteURL:         getEnv("SITE_URL", "http://localhost:8080"),
		GinMode:         getEnv("GIN_MODE", "debug"),
	}
}

// URL joins path onto the public site address.
func (c *Config) URL(path string) string {
	return strings.TrimRight(c.SiteURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("%s=%q is not a number, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("%s=%q is not a duration, using %s", key, v, fallback)
		return fallback
	}
	return d
}
