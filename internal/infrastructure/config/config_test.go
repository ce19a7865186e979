package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFromMap(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "LOCAL", cfg.EnvType)
	assert.Equal(t, "auto", cfg.DBMigrationMode)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.LedgerAllowCredit)
	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
}

func TestLoadConfigPrefixOverrides(t *testing.T) {
	cfg, err := LoadConfigFromMap(map[string]string{
		"ENV_TYPE":          "server",
		"DB_HOST":           "plain-host",
		"SERVER_DB_HOST":    "server-host",
		"LOCAL_DB_HOST":     "local-host",
		"CACHE_TTL":         "90s",
		"SERVER_REDIS_PORT": "6390",
	})
	require.NoError(t, err)

	assert.Equal(t, "SERVER", cfg.EnvType)
	assert.Equal(t, "server-host", cfg.DBHost)
	assert.Equal(t, "6390", cfg.RedisPort)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
}

func TestLoadConfigUnknownEnvType(t *testing.T) {
	cfg, err := LoadConfigFromMap(map[string]string{
		"ENV_TYPE":      "staging",
		"LOCAL_DB_NAME": "local_db",
	})
	require.NoError(t, err)

	assert.Equal(t, "LOCAL", cfg.EnvType)
	assert.Equal(t, "local_db", cfg.DBName)
}

func TestLoadConfigInvalidValue(t *testing.T) {
	_, err := LoadConfigFromMap(map[string]string{"REDIS_DB": "not-a-number"})
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=Local&allowNativePasswords=true", cfg.GetDSN())
}

func TestLoadConfigCORSOrigins(t *testing.T) {
	cfg, err := LoadConfigFromMap(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)

	cfg, err = LoadConfigFromMap(map[string]string{"CORS_ALLOW_ORIGINS": "https://a.example,https://b.example"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
}
