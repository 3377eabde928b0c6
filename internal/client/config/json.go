package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/foodshare/internal/flagx"
	"github.com/dmitrijs2005/foodshare/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	BackendURL          string         `json:"backend_url"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	RateLimit           float64        `json:"rate_limit"`
	RateBurst           int            `json:"rate_burst"`

	DataDir     string `json:"data_dir"`
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`
	MetricsAddr string `json:"metrics_addr"`

	IdentityMode     string `json:"identity_mode"`
	IdentityURL      string `json:"identity_url"`
	IdentityTokenURL string `json:"identity_token_url"`
	IdentityAPIKey   string `json:"identity_api_key"`

	OIDCIssuer       string `json:"oidc_issuer"`
	OIDCClientID     string `json:"oidc_client_id"`
	OIDCClientSecret string `json:"oidc_client_secret"`
	OIDCProviderName string `json:"oidc_provider"`

	PostLimit            int            `json:"post_limit"`
	ProfileFetchAttempts int            `json:"profile_fetch_attempts"`
	ProfileRetryBackoff  timex.Duration `json:"profile_retry_backoff"`

	S3Endpoint  string `json:"s3_endpoint"`
	S3Region    string `json:"s3_region"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
	S3Bucket    string `json:"s3_bucket"`
	S3PublicURL string `json:"s3_public_url"`

	PaymentURL string `json:"payment_url"`
	PaymentKey string `json:"payment_key"`
}

func toJson(c *Config) JsonConfig {
	return JsonConfig{
		BackendURL:           c.BackendURL,
		OnlineCheckInterval:  timex.Duration{Duration: c.OnlineCheckInterval},
		RequestTimeout:       timex.Duration{Duration: c.RequestTimeout},
		RateLimit:            c.RateLimit,
		RateBurst:            c.RateBurst,
		DataDir:              c.DataDir,
		LogLevel:             c.LogLevel,
		LogFormat:            c.LogFormat,
		MetricsAddr:          c.MetricsAddr,
		IdentityMode:         c.IdentityMode,
		IdentityURL:          c.IdentityURL,
		IdentityTokenURL:     c.IdentityTokenURL,
		IdentityAPIKey:       c.IdentityAPIKey,
		OIDCIssuer:           c.OIDCIssuer,
		OIDCClientID:         c.OIDCClientID,
		OIDCClientSecret:     c.OIDCClientSecret,
		OIDCProviderName:     c.OIDCProviderName,
		PostLimit:            c.PostLimit,
		ProfileFetchAttempts: c.ProfileFetchAttempts,
		ProfileRetryBackoff:  timex.Duration{Duration: c.ProfileRetryBackoff},
		S3Endpoint:           c.S3Endpoint,
		S3Region:             c.S3Region,
		S3AccessKey:          c.S3AccessKey,
		S3SecretKey:          c.S3SecretKey,
		S3Bucket:             c.S3Bucket,
		S3PublicURL:          c.S3PublicURL,
		PaymentURL:           c.PaymentURL,
		PaymentKey:           c.PaymentKey,
	}
}

func (jc JsonConfig) apply(c *Config) {
	c.BackendURL = jc.BackendURL
	c.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	c.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	c.RateLimit = jc.RateLimit
	c.RateBurst = jc.RateBurst
	c.DataDir = jc.DataDir
	c.LogLevel = jc.LogLevel
	c.LogFormat = jc.LogFormat
	c.MetricsAddr = jc.MetricsAddr
	c.IdentityMode = jc.IdentityMode
	c.IdentityURL = jc.IdentityURL
	c.IdentityTokenURL = jc.IdentityTokenURL
	c.IdentityAPIKey = jc.IdentityAPIKey
	c.OIDCIssuer = jc.OIDCIssuer
	c.OIDCClientID = jc.OIDCClientID
	c.OIDCClientSecret = jc.OIDCClientSecret
	c.OIDCProviderName = jc.OIDCProviderName
	c.PostLimit = jc.PostLimit
	c.ProfileFetchAttempts = jc.ProfileFetchAttempts
	c.ProfileRetryBackoff = time.Duration(jc.ProfileRetryBackoff.Duration)
	c.S3Endpoint = jc.S3Endpoint
	c.S3Region = jc.S3Region
	c.S3AccessKey = jc.S3AccessKey
	c.S3SecretKey = jc.S3SecretKey
	c.S3Bucket = jc.S3Bucket
	c.S3PublicURL = jc.S3PublicURL
	c.PaymentURL = jc.PaymentURL
	c.PaymentKey = jc.PaymentKey
}

// parseJson overlays Config with values loaded from a JSON file named by
// -c or -config. Keys missing from the file keep their current values.
//
// Panics on read or unmarshal errors (caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlags(os.Args[1:]).Config
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	jc := toJson(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}
	jc.apply(cfg)
}
