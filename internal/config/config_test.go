package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("AUTH_API_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "task-portal", cfg.App.Name)
	assert.Equal(t, StorageRedis, cfg.Storage.Driver)
	assert.Equal(t, "http://localhost:5000/api/auth", cfg.Backend.AuthURL)
	assert.Equal(t, 300, cfg.Recovery.OTPWindow)
	assert.Equal(t, 60, cfg.Recovery.ResendCooldown)
	assert.Equal(t, 3, cfg.Recovery.RedirectDelay)
	assert.Equal(t, time.Second, cfg.Recovery.Unit())
	assert.True(t, cfg.Session.LogoutOnUnauthorized)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("AUTH_API_URL", "https://tasks.example.com/api/auth/")
	t.Setenv("RECOVERY_UNIT_MILLIS", "250")
	t.Setenv("BACKEND_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "https://tasks.example.com/api/auth", cfg.Backend.AuthURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Recovery.Unit())
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout())
}

func TestLoadRejectsBadStorage(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "etcd")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("REDIS_DB", "two")
	_, err := Load()
	require.Error(t, err)
}
