package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the FoodShare CLI.
//
// Fields are grouped by collaborator. Every field can be set from the JSON
// file and from the environment (see the env tags); the most common ones
// also have flags.
type Config struct {
	BackendURL          string        `env:"FOODSHARE_BACKEND_URL"`
	OnlineCheckInterval time.Duration `env:"FOODSHARE_ONLINE_CHECK_INTERVAL"`
	RequestTimeout      time.Duration `env:"FOODSHARE_REQUEST_TIMEOUT"`
	RateLimit           float64       `env:"FOODSHARE_RATE_LIMIT"`
	RateBurst           int           `env:"FOODSHARE_RATE_BURST"`

	DataDir     string `env:"FOODSHARE_DATA_DIR"`
	LogLevel    string `env:"FOODSHARE_LOG_LEVEL"`
	LogFormat   string `env:"FOODSHARE_LOG_FORMAT"`
	MetricsAddr string `env:"FOODSHARE_METRICS_ADDR"`

	// IdentityMode is "local" (in-process emulator) or "rest".
	IdentityMode     string `env:"FOODSHARE_IDENTITY_MODE"`
	IdentityURL      string `env:"FOODSHARE_IDENTITY_URL"`
	IdentityTokenURL string `env:"FOODSHARE_IDENTITY_TOKEN_URL"`
	IdentityAPIKey   string `env:"FOODSHARE_IDENTITY_API_KEY"`

	OIDCIssuer       string `env:"FOODSHARE_OIDC_ISSUER"`
	OIDCClientID     string `env:"FOODSHARE_OIDC_CLIENT_ID"`
	OIDCClientSecret string `env:"FOODSHARE_OIDC_CLIENT_SECRET"`
	OIDCProviderName string `env:"FOODSHARE_OIDC_PROVIDER"`

	PostLimit            int           `env:"FOODSHARE_POST_LIMIT"`
	ProfileFetchAttempts int           `env:"FOODSHARE_PROFILE_FETCH_ATTEMPTS"`
	ProfileRetryBackoff  time.Duration `env:"FOODSHARE_PROFILE_RETRY_BACKOFF"`

	S3Endpoint  string `env:"FOODSHARE_S3_ENDPOINT"`
	S3Region    string `env:"FOODSHARE_S3_REGION"`
	S3AccessKey string `env:"FOODSHARE_S3_ACCESS_KEY"`
	S3SecretKey string `env:"FOODSHARE_S3_SECRET_KEY"`
	S3Bucket    string `env:"FOODSHARE_S3_BUCKET"`
	S3PublicURL string `env:"FOODSHARE_S3_PUBLIC_URL"`

	PaymentURL string `env:"FOODSHARE_PAYMENT_URL"`
	PaymentKey string `env:"FOODSHARE_PAYMENT_KEY"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://localhost:5000"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.RateLimit = 10
	c.RateBurst = 20

	c.DataDir = defaultDataDir()
	c.LogLevel = "info"
	c.LogFormat = "text"

	c.IdentityMode = "local"
	c.OIDCProviderName = "google"

	c.PostLimit = 5
	c.ProfileFetchAttempts = 3
	c.ProfileRetryBackoff = time.Second

	c.S3Region = "us-east-1"
	c.PaymentURL = "https://api.stripe.com"
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "foodshare")
	}
	return ".foodshare"
}

// MediaEnabled reports whether image uploads have somewhere to go.
func (c *Config) MediaEnabled() bool {
	return c.S3Bucket != ""
}

// FederatedEnabled reports whether an OIDC provider is configured.
func (c *Config) FederatedEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// DatabasePath is the local SQLite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "foodshare.db")
}

// KeyPath is the file holding the key that seals the stored session.
func (c *Config) KeyPath() string {
	return filepath.Join(c.DataDir, "session.key")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
