package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAuthURL    = "https://www.tiktok.com/v2/auth/authorize/"
	DefaultAPIBaseURL = "https://open.tiktokapis.com"
	DefaultScopes     = "user.info.basic,user.info.profile,video.publish,video.upload"
)

type Config struct {
	ServiceName        string   `yaml:"service_name"`
	DatabaseURL        string   `yaml:"database_url"`
	HTTPListenAddr     string   `yaml:"http_listen_addr"`
	LogLevel           string   `yaml:"log_level"`
	CORSOrigins        []string `yaml:"cors_origins"`
	DevMode            bool     `yaml:"dev_mode"`
	SessionSecret      string   `yaml:"session_secret"`
	TokenEncryptionKey string   `yaml:"token_encryption_key"`

	TikTok   TikTokConfig   `yaml:"tiktok"`
	Poll     PollConfig     `yaml:"poll"`
	Temporal TemporalConfig `yaml:"temporal"`
}

// TikTokConfig holds the provider app credentials. ClientKey, ClientSecret
// and RedirectURI have no usable defaults.
type TikTokConfig struct {
	ClientKey    string   `yaml:"client_key"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURI  string   `yaml:"redirect_uri"`
	Scopes       []string `yaml:"scopes"`
	AuthURL      string   `yaml:"auth_url"`
	APIBaseURL   string   `yaml:"api_base_url"`
}

// PollConfig bounds the publish-status watcher.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type TemporalConfig struct {
	Address       string `yaml:"address"`
	Namespace     string `yaml:"namespace"`
	TaskQueue     string `yaml:"task_queue"`
	TLSCert       string `yaml:"tls_cert"`
	TLSKey        string `yaml:"tls_key"`
	TLSCACert     string `yaml:"tls_ca_cert"`
	TLSServerName string `yaml:"tls_server_name"`
}

// Load builds the config from defaults, an optional YAML file named by
// CONFIG_FILE, and finally environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ServiceName:    "tiktok-connect",
		HTTPListenAddr: ":8080",
		LogLevel:       "info",
		CORSOrigins:    []string{"http://localhost:3000"},
		TikTok: TikTokConfig{
			Scopes:     splitList(DefaultScopes),
			AuthURL:    DefaultAuthURL,
			APIBaseURL: DefaultAPIBaseURL,
		},
		Poll: PollConfig{
			Interval:    10 * time.Second,
			MaxAttempts: 60,
		},
		Temporal: TemporalConfig{
			Namespace: "default",
			TaskQueue: "tiktok-publish",
		},
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.ServiceName, "SERVICE_NAME")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.HTTPListenAddr, "HTTP_LISTEN_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.SessionSecret, "SESSION_SECRET")
	setString(&c.TokenEncryptionKey, "TOKEN_ENCRYPTION_KEY")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("DEV_MODE"); v != "" {
		c.DevMode = v == "true"
	}

	setString(&c.TikTok.ClientKey, "TIKTOK_CLIENT_KEY")
	setString(&c.TikTok.ClientSecret, "TIKTOK_CLIENT_SECRET")
	setString(&c.TikTok.RedirectURI, "TIKTOK_REDIRECT_URI")
	setString(&c.TikTok.AuthURL, "TIKTOK_AUTH_URL")
	setString(&c.TikTok.APIBaseURL, "TIKTOK_API_BASE_URL")
	if v := os.Getenv("TIKTOK_SCOPES"); v != "" {
		c.TikTok.Scopes = splitList(v)
	}

	if v := os.Getenv("STATUS_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse STATUS_POLL_INTERVAL: %w", err)
		}
		c.Poll.Interval = d
	}
	if v := os.Getenv("STATUS_POLL_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse STATUS_POLL_MAX_ATTEMPTS: %w", err)
		}
		c.Poll.MaxAttempts = n
	}

	setString(&c.Temporal.Address, "TEMPORAL_ADDRESS")
	setString(&c.Temporal.Namespace, "TEMPORAL_NAMESPACE")
	setString(&c.Temporal.TaskQueue, "TEMPORAL_TASK_QUEUE")
	setString(&c.Temporal.TLSCert, "TEMPORAL_TLS_CERT")
	setString(&c.Temporal.TLSKey, "TEMPORAL_TLS_KEY")
	setString(&c.Temporal.TLSCACert, "TEMPORAL_TLS_CA_CERT")
	setString(&c.Temporal.TLSServerName, "TEMPORAL_TLS_SERVER_NAME")
	return nil
}

// Validate checks the fields the given service needs. Missing provider
// credentials are reported here instead of surfacing as provider errors later.
func (c *Config) Validate(service string) error {
	var missing []string
	require := func(value, name string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	require(c.DatabaseURL, "DATABASE_URL")
	require(c.TikTok.ClientKey, "TIKTOK_CLIENT_KEY")
	require(c.TikTok.ClientSecret, "TIKTOK_CLIENT_SECRET")
	require(c.TokenEncryptionKey, "TOKEN_ENCRYPTION_KEY")

	switch service {
	case "connect-api":
		require(c.HTTPListenAddr, "HTTP_LISTEN_ADDR")
		require(c.TikTok.RedirectURI, "TIKTOK_REDIRECT_URI")
		require(c.SessionSecret, "SESSION_SECRET")
	case "worker":
		require(c.Temporal.Address, "TEMPORAL_ADDRESS")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if service == "connect-api" && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}
	if len(c.TokenEncryptionKey) < 32 {
		return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be at least 32 bytes")
	}
	if len(c.TikTok.Scopes) == 0 {
		return fmt.Errorf("TIKTOK_SCOPES must not be empty")
	}
	if c.Poll.Interval <= 0 || c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("status poll interval and max attempts must be positive")
	}
	if (c.Temporal.TLSCert == "") != (c.Temporal.TLSKey == "") {
		return fmt.Errorf("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
