package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ava", cfg.AppName)
	assert.Equal(t, time.Second, cfg.Provisioning.RedirectDelay)
	assert.Equal(t, 24*time.Hour, cfg.Session.DraftTTL)
	assert.Equal(t, "postgres://ava:pw@localhost:5432/ava?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PROVISIONING_REDIRECT_DELAY", "250ms")
	t.Setenv("SESSION_TTL", "3600")
	t.Setenv("APP_PUBLIC_URL", "https://ava.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Provisioning.RedirectDelay)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "https://ava.example.com", cfg.PublicURL)
}

func TestLoad_RequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidate_RejectsNegativeDelay(t *testing.T) {
	cfg := &Config{
		Environment:  "development",
		JWT:          JWTConfig{AccessTTL: time.Minute},
		Session:      SessionConfig{TTL: time.Hour},
		Provisioning: ProvisioningConfig{RedirectDelay: -time.Second},
	}

	assert.Error(t, cfg.Validate())
}
