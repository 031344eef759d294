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
// built-in defaults, applies STAKEVAULT_* environment variable overrides, and
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

// applyEnvOverrides reads well-known STAKEVAULT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Ledger ──
	setStr(&cfg.Ledger.StakeToken, "STAKEVAULT_LEDGER_STAKE_TOKEN")
	setStr(&cfg.Ledger.RewardToken, "STAKEVAULT_LEDGER_REWARD_TOKEN")
	setStr(&cfg.Ledger.ServiceOwner, "STAKEVAULT_LEDGER_SERVICE_OWNER")
	setStr(&cfg.Ledger.SimCustody, "STAKEVAULT_LEDGER_SIM_CUSTODY")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "STAKEVAULT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "STAKEVAULT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "STAKEVAULT_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "STAKEVAULT_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "STAKEVAULT_CHAIN_CHAIN_ID")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "STAKEVAULT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "STAKEVAULT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "STAKEVAULT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "STAKEVAULT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "STAKEVAULT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "STAKEVAULT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "STAKEVAULT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "STAKEVAULT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "STAKEVAULT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "STAKEVAULT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "STAKEVAULT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "STAKEVAULT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "STAKEVAULT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "STAKEVAULT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "STAKEVAULT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "STAKEVAULT_REDIS_TLS_ENABLED")
	setInt64(&cfg.Redis.StreamMaxLen, "STAKEVAULT_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "STAKEVAULT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "STAKEVAULT_S3_REGION")
	setStr(&cfg.S3.Bucket, "STAKEVAULT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "STAKEVAULT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "STAKEVAULT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "STAKEVAULT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "STAKEVAULT_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "STAKEVAULT_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "STAKEVAULT_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "STAKEVAULT_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "STAKEVAULT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "STAKEVAULT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "STAKEVAULT_SERVER_CORS_ORIGINS")
	setStringSlice(&cfg.Server.APIKeys, "STAKEVAULT_SERVER_API_KEYS")
	setStringSlice(&cfg.Server.AdminKeys, "STAKEVAULT_SERVER_ADMIN_KEYS")
	setInt64(&cfg.Server.RateLimitPerMin, "STAKEVAULT_SERVER_RATE_LIMIT_PER_MIN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "STAKEVAULT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "STAKEVAULT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "STAKEVAULT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "STAKEVAULT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "STAKEVAULT_MODE")
	setStr(&cfg.LogLevel, "STAKEVAULT_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
