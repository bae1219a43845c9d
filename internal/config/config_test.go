package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("STORE_TIMEOUT", "")
	cfg := Load()

	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, ImageStoreLocal, cfg.ImageStore)
	require.NoError(t, cfg.Validate())
}

func TestLoad_DurationFormats(t *testing.T) {
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("CATEGORY_CACHE_TTL", "30")
	cfg := Load()

	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 30*time.Second, cfg.CategoryCacheTTL)
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "soon")
	assert.Equal(t, 7*24*time.Hour, Load().JWTExpiry)
}

func TestValidate_UnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	assert.ErrorContains(t, Load().Validate(), "STORE_DRIVER")
}

func TestValidate_UnknownImageStore(t *testing.T) {
	t.Setenv("IMAGE_STORE", "ftp")
	assert.ErrorContains(t, Load().Validate(), "IMAGE_STORE")
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("NOTIFY_EMAIL", "true")
	t.Setenv("NOTIFY_SMS", "nope")
	cfg := Load()
	assert.True(t, cfg.NotifyEmail)
	assert.False(t, cfg.NotifySMS)
}
