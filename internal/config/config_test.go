package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validSim returns a minimal valid sim-mode config.
func validSim() Config {
	cfg := Defaults()
	cfg.Ledger.StakeToken = "0x00000000000000000000000000000000000000a1"
	cfg.Ledger.RewardToken = "0x00000000000000000000000000000000000000a2"
	cfg.Ledger.ServiceOwner = "0x00000000000000000000000000000000000000d0"
	return cfg
}

func TestValidateSimMode(t *testing.T) {
	cfg := validSim()
	require.NoError(t, cfg.Validate())

	// Sim mode needs no wallet, postgres or redis.
	cfg.Postgres.Host = ""
	cfg.Redis.Addr = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsDefaults(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stake_token")
	assert.Contains(t, err.Error(), "reward_token")
	assert.Contains(t, err.Error(), "service_owner")
}

func TestValidateServerModeRequiresWallet(t *testing.T) {
	cfg := validSim()
	cfg.Mode = "server"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet")

	cfg.Wallet.PrivateKey = "deadbeef"
	assert.NoError(t, cfg.Validate())

	// Encrypted key path needs a password.
	cfg.Wallet.PrivateKey = ""
	cfg.Wallet.EncryptedKeyPath = "/etc/stakevault/key.json"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := validSim()
	cfg.Mode = "turbo"
	cfg.LogLevel = "loud"
	cfg.Server.Port = 99999
	cfg.Ledger.StakeToken = "0x0000000000000000000000000000000000000000"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "unknown log_level")
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "stake_token")
}

func TestValidateArchive(t *testing.T) {
	cfg := validSim()
	cfg.Archive.Enabled = true
	cfg.Archive.RetentionDays = 0
	cfg.Archive.Interval = duration{time.Second}
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention_days")
	assert.Contains(t, err.Error(), "interval")
	assert.Contains(t, err.Error(), "bucket")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STAKEVAULT_MODE", "server")
	t.Setenv("STAKEVAULT_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("STAKEVAULT_SERVER_PORT", "9100")
	t.Setenv("STAKEVAULT_SERVER_API_KEYS", "k1, k2,")
	t.Setenv("STAKEVAULT_ARCHIVE_INTERVAL", "6h")
	t.Setenv("STAKEVAULT_POSTGRES_RUN_MIGRATIONS", "false")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, 6*time.Hour, cfg.Archive.Interval.Duration)
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validSim()
	cfg.Wallet.PrivateKey = "secret-key"
	cfg.Postgres.Password = "pgpass"
	cfg.Redis.Password = "redispass"
	cfg.S3.SecretKey = "s3secret"
	cfg.Server.APIKeys = []string{"k1", "k2"}

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Wallet.PrivateKey)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, []string{"***"}, red.Server.APIKeys)

	// The original is untouched.
	assert.Equal(t, "secret-key", cfg.Wallet.PrivateKey)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
}
