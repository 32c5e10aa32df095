package server

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/StricklySoft/tokengate/pkg/auth"
	sserr "github.com/StricklySoft/tokengate/pkg/errors"
)

// EnvPrefix prefixes every environment variable read into [Config].
const EnvPrefix = "TOKENGATE"

// Deployment environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the gate service configuration. Load it with
// config.New().WithEnvPrefix(EnvPrefix).
type Config struct {
	// Env is "development" or "production".
	Env string `env:"ENV" envDefault:"development" yaml:"env" json:"env"`

	Port            int           `env:"PORT" envDefault:"3000" yaml:"port" json:"port"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// SharedSecret verifies internally issued tokens.
	SharedSecret auth.Secret `env:"SHIP_KEY" yaml:"ship_key" json:"ship_key"`

	// Issuers are explicit issuer/key-set pairs, matched before the
	// pairs derived from JWKSURLs.
	Issuers []auth.IssuerEndpoint `yaml:"issuers" json:"issuers"`

	// JWKSURLs are key-set URLs whose issuer name is derived as
	// scheme://host (see [IssuerFromJWKSURL]).
	JWKSURLs []string `env:"JWKS_URLS" yaml:"jwks_urls" json:"jwks_urls"`

	// AllowTestTokens enables the unverified test-issuer bypass. Refused
	// in production.
	AllowTestTokens bool `env:"ALLOW_TEST_TOKENS" yaml:"allow_test_tokens" json:"allow_test_tokens"`

	JWKSFetchTimeout time.Duration `env:"JWKS_FETCH_TIMEOUT" envDefault:"10s" yaml:"jwks_fetch_timeout" json:"jwks_fetch_timeout"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" yaml:"log_level" json:"log_level"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json" yaml:"log_format" json:"log_format"`
}

var logLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return sserr.Newf(sserr.CodeValidation, "server: unknown environment %q", c.Env)
	}
	if c.Port < 1 || c.Port > 65535 {
		return sserr.Newf(sserr.CodeValidation, "server: port %d out of range", c.Port)
	}
	if c.ShutdownTimeout <= 0 {
		return sserr.New(sserr.CodeValidation, "server: shutdown timeout must be positive")
	}
	if c.JWKSFetchTimeout <= 0 {
		return sserr.New(sserr.CodeValidation, "server: key set fetch timeout must be positive")
	}
	if c.AllowTestTokens && c.Env == EnvProduction {
		return sserr.New(sserr.CodeValidation, "server: test tokens cannot be allowed in production")
	}
	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		return sserr.Newf(sserr.CodeValidation, "server: unknown log level %q", c.LogLevel)
	}
	if _, err := c.IssuerEndpoints(); err != nil {
		return err
	}
	return nil
}

// IssuerEndpoints returns the explicit issuers followed by one entry per
// JWKS URL, in declaration order.
func (c *Config) IssuerEndpoints() ([]auth.IssuerEndpoint, error) {
	out := make([]auth.IssuerEndpoint, 0, len(c.Issuers)+len(c.JWKSURLs))
	for _, ie := range c.Issuers {
		if ie.Issuer == "" || ie.JWKSURL == "" {
			return nil, sserr.New(sserr.CodeValidation, "server: issuers entries need both issuer and jwks_url")
		}
		out = append(out, ie)
	}
	for _, raw := range c.JWKSURLs {
		issuer, err := IssuerFromJWKSURL(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, auth.IssuerEndpoint{Issuer: issuer, JWKSURL: raw})
	}
	return out, nil
}

// IssuerFromJWKSURL derives an issuer name from a key-set URL by keeping
// only its scheme and host name. The port and path are dropped, so the
// name matches every realm served from that host.
//
//	IssuerFromJWKSURL("https://sso.example.com/realms/eu/protocol/openid-connect/certs")
//	// "https://sso.example.com"
func IssuerFromJWKSURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", sserr.Wrapf(err, sserr.CodeValidation, "server: invalid key set URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", sserr.Newf(sserr.CodeValidation, "server: key set URL %q must use http or https", raw)
	}
	host := u.Hostname()
	if host == "" {
		return "", sserr.Newf(sserr.CodeValidation, "server: key set URL %q has no host", raw)
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s://%s", u.Scheme, host), nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
