package utils

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at startup from the environment (optionally seeded by .env).
type Config struct {
	AppEnv         string
	Port           int
	DatabaseURL    string
	GatewayToken   string
	AllowedOrigins []string

	RedisAddr    string
	LockTTL      time.Duration
	StoreTimeout time.Duration

	Snapshot SnapshotConfig
}

// SnapshotConfig configures the S3-compatible bucket used by the snapshot worker.
// The worker is disabled when Bucket is empty.
type SnapshotConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	AccessKeySecret string
	Interval        time.Duration
}

func (c SnapshotConfig) Enabled() bool { return c.Bucket != "" }

func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := Config{
		AppEnv:         EnvString("APP_ENV", "dev"),
		Port:           EnvInt("PORT", 5200),
		DatabaseURL:    EnvString("DATABASE_URL", ""),
		GatewayToken:   EnvString("GAME_SERVICE_TOKEN", ""),
		AllowedOrigins: EnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RedisAddr:      EnvString("REDIS_ADDR", ""),
		LockTTL:        time.Duration(EnvInt("LOCK_TTL_SECONDS", 15)) * time.Second,
		StoreTimeout:   time.Duration(EnvInt("STORE_TIMEOUT_SECONDS", 5)) * time.Second,
		Snapshot: SnapshotConfig{
			Bucket:          EnvString("SNAPSHOT_BUCKET", ""),
			Endpoint:        EnvString("SNAPSHOT_ENDPOINT", ""),
			Region:          EnvString("SNAPSHOT_REGION", "auto"),
			AccessKeyID:     EnvString("SNAPSHOT_ACCESS_KEY_ID", ""),
			AccessKeySecret: EnvString("SNAPSHOT_ACCESS_KEY_SECRET", ""),
			Interval:        time.Duration(EnvInt("SNAPSHOT_INTERVAL_MINUTES", 1440)) * time.Minute,
		},
	}

	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.GatewayToken == "" {
		return cfg, fmt.Errorf("GAME_SERVICE_TOKEN environment variable not set")
	}
	if cfg.LockTTL <= 0 || cfg.StoreTimeout <= 0 {
		return cfg, fmt.Errorf("LOCK_TTL_SECONDS and STORE_TIMEOUT_SECONDS must be positive")
	}
	// A completion may run for StoreTimeout while holding the lock.
	if cfg.LockTTL <= cfg.StoreTimeout {
		return cfg, fmt.Errorf("LOCK_TTL_SECONDS (%d) must be greater than STORE_TIMEOUT_SECONDS (%d)",
			int(cfg.LockTTL.Seconds()), int(cfg.StoreTimeout.Seconds()))
	}
	return cfg, nil
}

func EnvString(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func EnvInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// EnvList splits a comma-separated variable, trimming spaces and dropping empties.
func EnvList(name string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
