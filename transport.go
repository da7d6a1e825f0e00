package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-classroom-auth/middleware/jwtware"
)

// SessionTransport moves credentials between the server and the browser.
// Browsers get an HTTP-only cookie; API clients send a bearer header.
type SessionTransport struct {
	CookieName string
	AuthScheme string
	Secure     bool
	SameSite   string
	Path       string
	now        func() time.Time
}

// NewSessionTransport builds a transport from the cookie options in cfg.
func NewSessionTransport(cfg Config) *SessionTransport {
	t := &SessionTransport{
		CookieName: jwtware.DefaultCookieName,
		AuthScheme: "Bearer",
		Path:       "/",
		SameSite:   fiber.CookieSameSiteLaxMode,
		now:        time.Now,
	}
	if cfg == nil {
		return t
	}
	if name := cfg.GetCookieName(); name != "" {
		t.CookieName = name
	}
	if s := cfg.GetCookieSameSite(); s != "" {
		t.SameSite = normalizeSameSite(s)
	}
	t.Secure = cfg.GetCookieSecure()
	return t
}

// Extract returns the credential carried by the request, cookie first.
func (t *SessionTransport) Extract(c *fiber.Ctx) (string, bool) {
	return jwtware.ExtractToken(c, jwtware.SessionExtractors(t.CookieName, t.AuthScheme))
}

// Issue sets the session cookie carrying token for duration.
func (t *SessionTransport) Issue(c *fiber.Ctx, token string, duration time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     t.CookieName,
		Value:    token,
		Path:     t.Path,
		Expires:  t.now().Add(duration),
		MaxAge:   int(duration.Seconds()),
		HTTPOnly: true,
		Secure:   t.Secure,
		SameSite: t.SameSite,
	})
}

// Clear expires the session cookie.
func (t *SessionTransport) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     t.CookieName,
		Value:    "",
		Path:     t.Path,
		Expires:  t.now().Add(-time.Hour * (24 * 365)),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   t.Secure,
		SameSite: t.SameSite,
	})
}

// GuardConfig returns a jwtware config reading credentials the way this
// transport writes them.
func (t *SessionTransport) GuardConfig(mode jwtware.Mode, validator TokenValidator) jwtware.Config {
	return jwtware.Config{
		Mode:            mode,
		TokenValidator:  GuardValidator(validator),
		CookieName:      t.CookieName,
		AuthScheme:      t.AuthScheme,
		ContextEnricher: ContextEnricher,
	}
}

func normalizeSameSite(s string) string {
	switch strings.ToLower(s) {
	case "strict":
		return fiber.CookieSameSiteStrictMode
	case "none":
		return fiber.CookieSameSiteNoneMode
	case "disabled":
		return fiber.CookieSameSiteDisabled
	default:
		return fiber.CookieSameSiteLaxMode
	}
}
