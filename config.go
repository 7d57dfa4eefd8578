package goAuthClient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/caarlos0/env/v11"
)

// Config is the full Engine configuration. Every field can be filled from the environment
// with [LoadConfig].
type Config struct {
	API        api.Config       `envPrefix:"API_"`
	Session    SessionConfig    `envPrefix:"SESSION_"`
	JWT        JWTConfig        `envPrefix:"JWT_"`
	Credential CredentialConfig `envPrefix:"CREDENTIAL_"`
	Audit      AuditConfig      `envPrefix:"AUDIT_"`
	Metrics    MetricsConfig    `envPrefix:"METRICS_"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls token renewal and derived identity.
type SessionConfig struct {
	// RenewBefore is how long before expiry the token is renewed.
	RenewBefore time.Duration `env:"RENEW_BEFORE" envDefault:"30s"`
	// RenewalRetries is how many extra attempts a failed renewal gets before the
	// session is cleared.
	RenewalRetries    int           `env:"RENEWAL_RETRIES" envDefault:"0"`
	RenewalRetryDelay time.Duration `env:"RENEWAL_RETRY_DELAY" envDefault:"5s"`
	// AdminScope is the permission scope that makes a session an admin.
	AdminScope string `env:"ADMIN_SCOPE" envDefault:"*"`
	// CacheProfile keeps the self profile between Profile calls.
	CacheProfile bool `env:"CACHE_PROFILE" envDefault:"true"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls how access tokens are read. Without VerifySignature the claims are
// decoded as sent by the service.
type JWTConfig struct {
	VerifySignature bool   `env:"VERIFY_SIGNATURE" envDefault:"false"`
	SigningMethod   string `env:"SIGNING_METHOD" envDefault:"ed25519"` // "ed25519" or "hs256"
	// PublicKey is the PEM encoded Ed25519 verification key.
	PublicKey string `env:"PUBLIC_KEY"`
	// Secret is the shared HS256 key.
	Secret   string `env:"SECRET"`
	Issuer   string `env:"ISSUER"`
	Audience string `env:"AUDIENCE"`
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// Credential store backends.
const (
	CredentialMemory = "memory"
	CredentialFile   = "file"
	CredentialRedis  = "redis"
)

// CredentialConfig selects where the long-lived login cookie is kept.
type CredentialConfig struct {
	Backend     string `env:"BACKEND" envDefault:"memory"`
	File        string `env:"FILE"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"acc"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED" envDefault:"false"`
	BufferSize int  `env:"BUFFER_SIZE" envDefault:"1024"`
	DropIfFull bool `env:"DROP_IF_FULL" envDefault:"true"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED" envDefault:"false"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS" envDefault:"false"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		API: api.Config{
			BaseURL:   api.DefaultBaseURL,
			Timeout:   15 * time.Second,
			UserAgent: "goAuthClient",
			RateBurst: 10,
		},
		Session: SessionConfig{
			RenewBefore:       refresh.DefaultRenewBefore,
			RenewalRetries:    0,
			RenewalRetryDelay: 5 * time.Second,
			AdminScope:        "*",
			CacheProfile:      true,
		},
		JWT: JWTConfig{
			SigningMethod: "ed25519",
		},
		Credential: CredentialConfig{
			Backend:     CredentialMemory,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "acc",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return defaultConfig()
}

// LoadConfig reads the configuration from environment variables named prefix + section +
// field, e.g. ACCOUNT_API_URL or ACCOUNT_SESSION_RENEW_BEFORE for prefix "ACCOUNT_".
func LoadConfig(prefix string) (Config, error) {
	cfg := defaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// cloneConfig copies cfg. Config holds no reference types.
func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first inconsistency in c.
func (c *Config) Validate() error {
	// API
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("API BaseURL must be an absolute http(s) URL")
		}
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}
	if c.API.RateLimit < 0 {
		return errors.New("API RateLimit must be >= 0")
	}

	// Session
	if c.Session.RenewBefore < 0 {
		return errors.New("Session RenewBefore must be >= 0")
	}
	if c.Session.RenewalRetries < 0 {
		return errors.New("Session RenewalRetries must be >= 0")
	}
	if c.Session.RenewalRetries > 0 && c.Session.RenewalRetryDelay <= 0 {
		return errors.New("Session RenewalRetryDelay must be > 0 when retries are enabled")
	}
	if strings.TrimSpace(c.Session.AdminScope) == "" {
		return errors.New("Session AdminScope must not be empty")
	}

	// JWT
	if c.JWT.VerifySignature {
		switch c.JWT.SigningMethod {
		case "ed25519":
			if strings.TrimSpace(c.JWT.PublicKey) == "" {
				return errors.New("JWT PublicKey is required for ed25519 verification")
			}
		case "hs256":
			if c.JWT.Secret == "" {
				return errors.New("JWT Secret is required for hs256 verification")
			}
		default:
			return errors.New("unsupported JWT signing method")
		}
	}

	// Credential
	switch c.Credential.Backend {
	case CredentialMemory, CredentialRedis:
	case CredentialFile:
		if c.Credential.File == "" {
			return errors.New("Credential File is required for the file backend")
		}
	default:
		return fmt.Errorf("unsupported credential backend %q", c.Credential.Backend)
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
