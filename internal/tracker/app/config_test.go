package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PIQ_TOKEN_TTL", "")
	t.Setenv("PIQ_UPLOAD_MAX_BYTES", "")

	cfg := LoadConfig()
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
	require.Equal(t, int64(10<<20), cfg.UploadMaxBytes)
	require.Equal(t, 7*24*time.Hour, cfg.InviteTTL)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PIQ_TOKEN_TTL", "90m")
	t.Setenv("PIQ_INVITE_TTL", "30")
	t.Setenv("PIQ_ADMIN_SIGNUP_KEY", "k")
	t.Setenv("SHUTDOWN_GRACE_PERIOD", "garbage")

	cfg := LoadConfig()
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 90*time.Minute, cfg.TokenTTL)
	require.Equal(t, 30*time.Minute, cfg.InviteTTL)
	require.Equal(t, "k", cfg.AdminSignupKey)
	require.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
}

func TestNewBootstrapsAdmin(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Issuer:               "progressiq-test",
		DatabaseFile:         dir + "/piq.db",
		PepperFile:           dir + "/pepper",
		UploadDir:            dir + "/uploads",
		UploadMaxBytes:       1 << 16,
		TokenTTL:             time.Hour,
		InviteTTL:            time.Hour,
		AdminEmail:           "Root@Example.com",
		AdminUsername:        "root",
		AdminPassword:        "password123",
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "json",
		Port:                 0,
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}

	application, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, application.Handler())

	acct, err := application.db.Accounts().GetAccountByEmail(t.Context(), "root@example.com")
	require.NoError(t, err)
	require.Equal(t, "root", acct.Username)

	require.NoError(t, application.db.Close())
}
