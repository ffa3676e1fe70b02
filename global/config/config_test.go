package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "0123456789abcdef0123")
	path := writeConfig(t, `
app:
  node_id: gw-7
  port: 9090
auth:
  jwt_secret: ${TEST_JWT_SECRET}
chat:
  typing_ttl: 2s
`)

	cfg := NewDefaultConfig()
	require.NoError(t, Load(path, cfg))

	assert.Equal(t, "gw-7", cfg.App.NodeID)
	assert.Equal(t, ":9090", cfg.App.Address())
	assert.Equal(t, "0123456789abcdef0123", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Second, cfg.Chat.TypingTTL)
	// untouched sections keep defaults
	assert.Equal(t, 256, cfg.Chat.SendQueue)
	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, 54*time.Second, cfg.Chat.PingPeriod())
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	path := writeConfig(t, "app:\n  node_id: gw-1\n")
	err := Load(path, NewDefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth")
}

func TestValidateOptionalSections(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.JWTSecret = "0123456789abcdef"
	require.NoError(t, cfg.Validate())

	cfg.Nats.Enabled = true
	assert.Error(t, cfg.Validate(), "nats enabled without servers")
	cfg.Nats.Servers = []string{"nats://127.0.0.1:4222"}
	assert.NoError(t, cfg.Validate())

	cfg.Store.Driver = StoreDriverMongo
	assert.Error(t, cfg.Validate(), "mongo driver without uri")
	cfg.Mongo.Uri = "mongodb://localhost:27017"
	assert.NoError(t, cfg.Validate())

	cfg.Store.Driver = "sqlite"
	assert.Error(t, cfg.Validate())
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.JWTSecret = "0123456789abcdef"
	assert.NoError(t, LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"), cfg))
}
