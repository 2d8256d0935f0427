package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMemoryDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreMemory)
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("RATE_LIMIT_SEND_PER_MIN", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 5, cfg.SendMessageRatePerMin)
	assert.Equal(t, 10, cfg.CreateThreadRatePerMin)
}

func TestLoadFirestoreNeedsProject(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreFirestore)
	t.Setenv("FIREBASE_PROJECT_ID", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestMemoryDriverRejectedInProduction(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreMemory)
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()
	assert.Error(t, err)
}

func TestBadIntFallsBackToDefault(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreMemory)
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("RATE_LIMIT_CREATE_PER_MIN", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.CreateThreadRatePerMin)
}
