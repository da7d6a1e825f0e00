// Package config loads the server configuration from the environment.
//
// Values are read with github.com/caarlos0/env; a .env file in the working
// directory is loaded first when present. OAuth provider blocks fall back
// to placeholder credentials so a missing provider never stops startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	auth "github.com/goliatone/go-classroom-auth"
)

// OAuthProvider holds one provider's client registration.
type OAuthProvider struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	CallbackURL  string   `env:"CALLBACK_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
}

// Placeholder reports whether the provider still uses the literal
// placeholder credentials.
func (p OAuthProvider) Placeholder() bool {
	return strings.HasSuffix(p.ClientID, "-client-id") && strings.HasSuffix(p.ClientSecret, "-client-secret")
}

// JWT configures credential signing.
type JWT struct {
	Secret          string   `env:"SECRET,required,notEmpty"`
	PreviousSecret  string   `env:"PREVIOUS_SECRET"`
	Issuer          string   `env:"ISSUER" envDefault:"classroom-auth"`
	Audience        []string `env:"AUDIENCE" envSeparator:"," envDefault:"classroom"`
	ExpirationHours int      `env:"EXPIRATION_HOURS" envDefault:"24"`
	ExtendedHours   int      `env:"EXTENDED_HOURS" envDefault:"720"`
}

// Cookie configures the session cookie.
type Cookie struct {
	Name     string `env:"NAME" envDefault:"classroom_session"`
	Secure   bool   `env:"SECURE" envDefault:"false"`
	SameSite string `env:"SAME_SITE" envDefault:"Lax"`
}

// DB configures the relational store.
type DB struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file:classroom.db?cache=shared"`
}

// Redis configures the revocation store. An empty URL disables it.
type Redis struct {
	URL    string `env:"URL"`
	Prefix string `env:"PREFIX" envDefault:"auth:revoked:"`
}

// HTTP configures the server.
type HTTP struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	PublicURL       string        `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Config is the server configuration. It implements auth.Config.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	JWT    JWT    `envPrefix:"JWT_"`
	Cookie Cookie `envPrefix:"SESSION_COOKIE_"`
	DB     DB     `envPrefix:"DB_"`
	Redis  Redis  `envPrefix:"REDIS_"`
	HTTP   HTTP   `envPrefix:"HTTP_"`

	OAuthStateSecret string        `env:"OAUTH_STATE_SECRET"`
	OAuthStateTTL    time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`

	Google   OAuthProvider `envPrefix:"GOOGLE_"`
	GitHub   OAuthProvider `envPrefix:"GITHUB_"`
	Facebook OAuthProvider `envPrefix:"FACEBOOK_"`
}

var _ auth.Config = Config{}

// Load reads .env files (the working directory .env when none are given)
// and parses the process environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Parse reads the configuration from environ instead of the process
// environment.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize fills provider placeholders and derived defaults.
func (c *Config) Sanitize() {
	base := strings.TrimRight(c.HTTP.PublicURL, "/")

	c.Google = withPlaceholders(c.Google, "google", base)
	c.GitHub = withPlaceholders(c.GitHub, "github", base)
	c.Facebook = withPlaceholders(c.Facebook, "facebook", base)

	if c.OAuthStateSecret == "" {
		c.OAuthStateSecret = c.JWT.Secret
	}
	if c.JWT.ExpirationHours <= 0 {
		c.JWT.ExpirationHours = 24
	}
	if c.JWT.ExtendedHours < c.JWT.ExpirationHours {
		c.JWT.ExtendedHours = c.JWT.ExpirationHours
	}
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
}

func withPlaceholders(p OAuthProvider, name, base string) OAuthProvider {
	if p.ClientID == "" {
		p.ClientID = name + "-client-id"
	}
	if p.ClientSecret == "" {
		p.ClientSecret = name + "-client-secret"
	}
	if p.CallbackURL == "" {
		p.CallbackURL = base + "/auth/" + name + "/callback"
	}
	return p
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Providers returns the provider blocks keyed by name.
func (c Config) Providers() map[string]OAuthProvider {
	return map[string]OAuthProvider{
		"google":   c.Google,
		"github":   c.GitHub,
		"facebook": c.Facebook,
	}
}

func (c Config) GetSigningKey() string { return c.JWT.Secret }

// GetPreviousSigningKey returns the key accepted during secret rotation.
func (c Config) GetPreviousSigningKey() string { return c.JWT.PreviousSecret }

func (c Config) GetTokenExpiration() int       { return c.JWT.ExpirationHours }
func (c Config) GetExtendedTokenDuration() int { return c.JWT.ExtendedHours }
func (c Config) GetIssuer() string             { return c.JWT.Issuer }
func (c Config) GetAudience() []string         { return c.JWT.Audience }
func (c Config) GetCookieName() string         { return c.Cookie.Name }
func (c Config) GetCookieSecure() bool         { return c.Cookie.Secure }
func (c Config) GetCookieSameSite() string     { return c.Cookie.SameSite }
