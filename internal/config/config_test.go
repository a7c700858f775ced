package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate on defaults: %v", err)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "cluster"
	cfg.LogLevel = "verbose"
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""
	cfg.Redis.Addr = ""
	cfg.Topic.EscrowReserve = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate returned nil for broken config")
	}
	for _, want := range []string{
		`unknown mode "cluster"`,
		`unknown log_level "verbose"`,
		"postgres: host",
		"postgres: database",
		"redis: addr",
		"escrow_reserve",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate error missing %q:\n%v", want, err)
		}
	}
}

func TestValidateLiteModeSkipsStores(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "lite"
	cfg.Postgres = PostgresConfig{}
	cfg.Redis = RedisConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("lite mode should not require postgres/redis: %v", err)
	}
}

func TestValidateCrossFieldRules(t *testing.T) {
	cfg := Defaults()
	cfg.Signer.EncryptedKeyPath = "/keys/operator.enc"
	cfg.Notify.WebhookSecret = "s3cret"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate returned nil")
	}
	if !strings.Contains(err.Error(), "key_password") {
		t.Errorf("missing key_password error: %v", err)
	}
	if !strings.Contains(err.Error(), "webhook_url") {
		t.Errorf("missing webhook_url error: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WORTHHUB_MODE", "lite")
	t.Setenv("WORTHHUB_LOG_LEVEL", "debug")
	t.Setenv("WORTHHUB_DATABASE_URL", "postgres://app@db:5432/worthhub")
	t.Setenv("WORTHHUB_REDIS_ADDR", "redis:6379")
	t.Setenv("WORTHHUB_SERVER_PORT", "9100")
	t.Setenv("WORTHHUB_SERVER_RATE_LIMIT", "50")
	t.Setenv("WORTHHUB_TOPIC_LOCK_TTL", "30s")
	t.Setenv("WORTHHUB_TOPIC_ESCROW_RESERVE", "123456")
	t.Setenv("WORTHHUB_S3_ENABLED", "true")
	t.Setenv("WORTHHUB_NOTIFY_EVENTS", "topic.settled,topic.finalized")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Mode != "lite" {
		t.Errorf("Mode = %q, want lite", cfg.Mode)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Postgres.DSN != "postgres://app@db:5432/worthhub" {
		t.Errorf("Postgres.DSN = %q", cfg.Postgres.DSN)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Server.RateLimit != 50 {
		t.Errorf("Server.RateLimit = %d, want 50", cfg.Server.RateLimit)
	}
	if cfg.Topic.LockTTL.Duration != 30*time.Second {
		t.Errorf("Topic.LockTTL = %v, want 30s", cfg.Topic.LockTTL.Duration)
	}
	if cfg.Topic.EscrowReserve != 123456 {
		t.Errorf("Topic.EscrowReserve = %d, want 123456", cfg.Topic.EscrowReserve)
	}
	if !cfg.S3.Enabled {
		t.Error("S3.Enabled = false, want true")
	}
	if len(cfg.Notify.Events) != 2 || cfg.Notify.Events[0] != "topic.settled" {
		t.Errorf("Notify.Events = %v", cfg.Notify.Events)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Signer.PrivateKey = "deadbeef"
	cfg.Postgres.Password = "pgpass"
	cfg.Redis.Password = "rdpass"
	cfg.Server.APIKey = "apikey"
	cfg.Notify.WebhookSecret = "whsecret"

	red := RedactedConfig(&cfg)
	for name, got := range map[string]string{
		"signer.private_key":    red.Signer.PrivateKey,
		"postgres.password":     red.Postgres.Password,
		"redis.password":        red.Redis.Password,
		"server.api_key":        red.Server.APIKey,
		"notify.webhook_secret": red.Notify.WebhookSecret,
	} {
		if got != "***" {
			t.Errorf("%s = %q, want ***", name, got)
		}
	}
	if cfg.Postgres.Password != "pgpass" {
		t.Error("RedactedConfig mutated the original")
	}
}
