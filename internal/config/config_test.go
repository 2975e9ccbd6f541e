package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret32 = strings.Repeat("s", 32)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "DATABASE_URL", "HTTP_LISTEN_ADDR", "LOG_LEVEL", "CORS_ORIGINS", "DEV_MODE",
		"SESSION_SECRET", "TOKEN_ENCRYPTION_KEY", "TIKTOK_CLIENT_KEY", "TIKTOK_CLIENT_SECRET",
		"TIKTOK_REDIRECT_URI", "TIKTOK_SCOPES", "TIKTOK_AUTH_URL", "TIKTOK_API_BASE_URL",
		"STATUS_POLL_INTERVAL", "STATUS_POLL_MAX_ATTEMPTS", "TEMPORAL_ADDRESS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func validConfig() *Config {
	cfg := defaults()
	cfg.DatabaseURL = "postgres://localhost/connect"
	cfg.SessionSecret = secret32
	cfg.TokenEncryptionKey = secret32
	cfg.TikTok.ClientKey = "key"
	cfg.TikTok.ClientSecret = "secret"
	cfg.TikTok.RedirectURI = "https://app.example.com/api/auth/tiktok/callback"
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultAuthURL, cfg.TikTok.AuthURL)
	assert.Equal(t, DefaultAPIBaseURL, cfg.TikTok.APIBaseURL)
	assert.Contains(t, cfg.TikTok.Scopes, "video.publish")
	assert.Equal(t, 10*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 60, cfg.Poll.MaxAttempts)
	assert.False(t, cfg.TemporalEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://db:5432/connect")
	t.Setenv("TIKTOK_CLIENT_KEY", "ck")
	t.Setenv("TIKTOK_SCOPES", "user.info.basic, video.publish")
	t.Setenv("CORS_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("STATUS_POLL_INTERVAL", "5s")
	t.Setenv("STATUS_POLL_MAX_ATTEMPTS", "12")
	t.Setenv("TEMPORAL_ADDRESS", "temporal:7233")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://db:5432/connect", cfg.DatabaseURL)
	assert.Equal(t, "ck", cfg.TikTok.ClientKey)
	assert.Equal(t, []string{"user.info.basic", "video.publish"}, cfg.TikTok.Scopes)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 12, cfg.Poll.MaxAttempts)
	assert.True(t, cfg.TemporalEnabled())
	assert.True(t, cfg.DevMode)
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATUS_POLL_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATUS_POLL_INTERVAL")
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: postgres://file/connect
log_level: debug
tiktok:
  client_key: file-key
  redirect_uri: https://file.example.com/cb
poll:
  max_attempts: 30
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TIKTOK_CLIENT_KEY", "env-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://file/connect", cfg.DatabaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "env-key", cfg.TikTok.ClientKey)
	assert.Equal(t, "https://file.example.com/cb", cfg.TikTok.RedirectURI)
	assert.Equal(t, 30, cfg.Poll.MaxAttempts)
	// Untouched nested defaults survive the overlay.
	assert.Equal(t, DefaultAPIBaseURL, cfg.TikTok.APIBaseURL)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestValidate_ConnectAPI_MissingFields(t *testing.T) {
	cfg := defaults()
	err := cfg.Validate("connect-api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "TIKTOK_CLIENT_KEY")
	assert.Contains(t, err.Error(), "TIKTOK_CLIENT_SECRET")
	assert.Contains(t, err.Error(), "TIKTOK_REDIRECT_URI")
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestValidate_Worker_RequiresTemporal(t *testing.T) {
	cfg := validConfig()
	err := cfg.Validate("worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPORAL_ADDRESS")

	cfg.Temporal.Address = "localhost:7233"
	assert.NoError(t, cfg.Validate("worker"))
}

func TestValidate_ShortSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.SessionSecret = "short"
	err := cfg.Validate("connect-api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET must be at least 32 bytes")

	cfg = validConfig()
	cfg.TokenEncryptionKey = "short"
	err = cfg.Validate("connect-api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_ENCRYPTION_KEY")
}

func TestValidate_TLSMismatchedCertKey(t *testing.T) {
	cfg := validConfig()
	cfg.Temporal.TLSCert = "/path/to/cert.pem"

	err := cfg.Validate("connect-api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
}

func TestValidate_AllPresent(t *testing.T) {
	assert.NoError(t, validConfig().Validate("connect-api"))
}

func TestTemporalTLS_NoConfig(t *testing.T) {
	tlsCfg, err := validConfig().TemporalTLS()
	require.NoError(t, err)
	assert.Nil(t, tlsCfg)
}

func TestTemporalTLS_MissingCertFile(t *testing.T) {
	cfg := validConfig()
	cfg.Temporal.TLSCert = "/nonexistent/cert.pem"
	cfg.Temporal.TLSKey = "/nonexistent/key.pem"

	_, err := cfg.TemporalTLS()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load temporal client cert")
}
