package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies WORTHHUB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known WORTHHUB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Signer ──
	setStr(&cfg.Signer.PrivateKey, "WORTHHUB_SIGNER_PRIVATE_KEY")
	setStr(&cfg.Signer.EncryptedKeyPath, "WORTHHUB_SIGNER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Signer.KeyPassword, "WORTHHUB_SIGNER_KEY_PASSWORD")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "WORTHHUB_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "WORTHHUB_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "WORTHHUB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "WORTHHUB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "WORTHHUB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "WORTHHUB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "WORTHHUB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "WORTHHUB_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "WORTHHUB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "WORTHHUB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "WORTHHUB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "WORTHHUB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "WORTHHUB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "WORTHHUB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "WORTHHUB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "WORTHHUB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "WORTHHUB_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "WORTHHUB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "WORTHHUB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "WORTHHUB_S3_REGION")
	setStr(&cfg.S3.Bucket, "WORTHHUB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "WORTHHUB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "WORTHHUB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "WORTHHUB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "WORTHHUB_S3_FORCE_PATH_STYLE")

	// ── Topic ──
	setUint64(&cfg.Topic.EscrowReserve, "WORTHHUB_TOPIC_ESCROW_RESERVE")
	setDuration(&cfg.Topic.LockTTL, "WORTHHUB_TOPIC_LOCK_TTL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "WORTHHUB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "WORTHHUB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "WORTHHUB_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "WORTHHUB_SERVER_API_KEY")
	setBool(&cfg.Server.RequireSignedInstructions, "WORTHHUB_SERVER_REQUIRE_SIGNED_INSTRUCTIONS")
	setInt(&cfg.Server.RateLimit, "WORTHHUB_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "WORTHHUB_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "WORTHHUB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "WORTHHUB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "WORTHHUB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.WebhookURL, "WORTHHUB_NOTIFY_WEBHOOK_URL")
	setStr(&cfg.Notify.WebhookSecret, "WORTHHUB_NOTIFY_WEBHOOK_SECRET")
	setStringSlice(&cfg.Notify.Events, "WORTHHUB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "WORTHHUB_MODE")
	setStr(&cfg.LogLevel, "WORTHHUB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
