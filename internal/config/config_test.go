package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := Load()

		assert.Equal(t, "0.0.0.0", cfg.ServerHost)
		assert.Equal(t, 8080, cfg.ServerPort)
		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, 25, cfg.DBMaxOpenConnections)
		assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "fieldvault-kdf-salt", cfg.EncryptionKDFSalt)
		assert.Equal(t, 90, cfg.KeyExpiryDays)
		assert.Equal(t, 500, cfg.ReencryptBatchSize)
		assert.Equal(t, 2, cfg.ReencryptWorkers)
		assert.True(t, cfg.RateLimitEnabled)
		assert.False(t, cfg.CORSEnabled)
		assert.True(t, cfg.MetricsEnabled)
		assert.Equal(t, "fieldvault", cfg.MetricsNamespace)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("DB_DRIVER", "mysql")
		t.Setenv("ENCRYPTION_MASTER_SECRET", "super-secret")
		t.Setenv("KEY_EXPIRY_DAYS", "30")
		t.Setenv("RATE_LIMIT_ENABLED", "false")

		cfg := Load()

		assert.Equal(t, 9090, cfg.ServerPort)
		assert.Equal(t, "mysql", cfg.DBDriver)
		assert.Equal(t, "super-secret", cfg.EncryptionMasterSecret)
		assert.Equal(t, 30, cfg.KeyExpiryDays)
		assert.False(t, cfg.RateLimitEnabled)
	})
}

func TestConfig_GetGinMode(t *testing.T) {
	assert.Equal(t, "debug", (&Config{LogLevel: "debug"}).GetGinMode())
	assert.Equal(t, "release", (&Config{LogLevel: "info"}).GetGinMode())
	assert.Equal(t, "release", (&Config{}).GetGinMode())
}
