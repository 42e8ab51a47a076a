package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "skillcourt", cfg.DynamoDBTable)
	assert.Equal(t, "GSI1", cfg.IndexName)
	assert.Equal(t, "dynamodb", cfg.StoreBackend)
	assert.Equal(t, 512, cfg.CacheMaxEntries)
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("TABLE_NAME", "skillcourt-staging")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("CACHE_TTL_SECONDS", "60")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "skillcourt-staging", cfg.DynamoDBTable)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, int64(60), int64(cfg.CacheTTL.Seconds()))
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_BACKEND")
}

func TestValidateProductionRequiresDynamoDB(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("STORE_BACKEND", "memory")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "production")
}
