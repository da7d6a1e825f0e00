package auth

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-classroom-auth/middleware/jwtware"
)

// AccountService is the authenticator surface the HTTP layer drives.
type AccountService interface {
	Authenticator
	LoginExtended(ctx context.Context, identifier, password string) (string, error)
	Register(ctx context.Context, email, name, password string) (*User, error)
	SelectRole(ctx context.Context, claims AuthClaims, role UserRole) (*User, string, error)
	Logout(ctx context.Context, claims AuthClaims) error
	Validator() TokenValidator
	Revocations() RevocationStore
}

var _ AccountService = (*Auther)(nil)

type RouteAuthenticator struct {
	auth                   AccountService
	cfg                    Config
	transport              *SessionTransport
	cookieDuration         time.Duration
	extendedCookieDuration time.Duration
	Logger                 Logger
	ErrorHandler           func(c *fiber.Ctx, err error) error
}

func NewHTTPAuthenticator(auther AccountService, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("auth: http authenticator requires an AccountService")
	}

	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	extendedCookieDuration := cookieDuration
	if cfg.GetExtendedTokenDuration() > 0 {
		extendedCookieDuration = time.Duration(cfg.GetExtendedTokenDuration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:                    cfg,
		auth:                   auther,
		transport:              NewSessionTransport(cfg),
		Logger:                 defLogger{},
		cookieDuration:         cookieDuration,
		extendedCookieDuration: extendedCookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// WithLogger sets the logger
func (a *RouteAuthenticator) WithLogger(l Logger) *RouteAuthenticator {
	a.Logger = normalizeLogger(l)
	return a
}

func (a *RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

func (a *RouteAuthenticator) GetExtendedCookieDuration() time.Duration {
	return a.extendedCookieDuration
}

// Transport returns the session transport used for cookies.
func (a *RouteAuthenticator) Transport() *SessionTransport {
	return a.transport
}

// GuardConfig returns the guard configuration for the given mode, wired to
// the authenticator's validator and revocation store.
func (a *RouteAuthenticator) GuardConfig(mode jwtware.Mode, roles ...UserRole) jwtware.Config {
	cfg := a.transport.GuardConfig(mode, a.auth.Validator())
	if store := a.auth.Revocations(); store != nil {
		cfg.Revocations = store
	}
	for _, r := range roles {
		cfg.RequiredRoles = append(cfg.RequiredRoles, string(r))
	}
	return cfg
}

// ProtectedRoute returns a guard middleware attaching claims to Locals.
func (a *RouteAuthenticator) ProtectedRoute(mode jwtware.Mode, roles ...UserRole) fiber.Handler {
	return jwtware.New(a.GuardConfig(mode, roles...))
}

// Protect returns a handler receiving the resolved claims explicitly.
func (a *RouteAuthenticator) Protect(mode jwtware.Mode, h func(c *fiber.Ctx, claims AuthClaims) error) fiber.Handler {
	return jwtware.Protect(a.GuardConfig(mode), func(c *fiber.Ctx, raw jwtware.AuthClaims) error {
		claims, _ := ClaimsFromGuard(raw)
		return h(c, claims)
	})
}

// Login verifies the payload and sets the session cookie.
func (a *RouteAuthenticator) Login(c *fiber.Ctx, payload LoginPayload) (string, error) {
	var (
		token string
		err   error
	)

	duration := a.cookieDuration
	if payload.GetExtendedSession() {
		duration = a.extendedCookieDuration
		token, err = a.auth.LoginExtended(c.UserContext(), payload.GetIdentifier(), payload.GetPassword())
	} else {
		token, err = a.auth.Login(c.UserContext(), payload.GetIdentifier(), payload.GetPassword())
	}
	if err != nil {
		a.Logger.Error("Login error", "error", err)
		return "", err
	}

	a.transport.Issue(c, token, duration)
	return token, nil
}

// IssueSession signs a credential for identity and sets the session cookie.
func (a *RouteAuthenticator) IssueSession(c *fiber.Ctx, identity Identity) (string, error) {
	token, err := a.auth.Issue(c.UserContext(), identity)
	if err != nil {
		return "", err
	}
	a.transport.Issue(c, token, a.cookieDuration)
	return token, nil
}

// Logout revokes the credential when one is present and always clears the
// cookie. Revocation failures are logged, never returned.
func (a *RouteAuthenticator) Logout(c *fiber.Ctx, claims AuthClaims) {
	if err := a.auth.Logout(c.UserContext(), claims); err != nil {
		a.Logger.Warn("Logout revocation failed", "error", err)
	}
	a.transport.Clear(c)
}

func (a *RouteAuthenticator) defaultErrHandler(c *fiber.Ctx, err error) error {
	var richErr *Error
	if !errors.As(err, &richErr) {
		richErr = ErrInternal.Wrap(err)
	}

	a.Logger.Info(
		"Route error handler",
		"error", err,
		"kind", richErr.Kind,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	message := richErr.Message
	switch richErr.Kind {
	case KindMalformedCredential, KindExpiredCredential, KindInvalidSignature, KindUnauthenticated:
		if richErr.TextCode != ErrMismatchedHashAndPassword.TextCode {
			message = ErrUnauthenticated.Message
		}
	}

	body := fiber.Map{
		"message": message,
		"code":    richErr.TextCode,
	}
	if richErr.Kind == KindValidation && len(richErr.Metadata) > 0 {
		body["errors"] = richErr.Metadata
	}

	return c.Status(HTTPStatus(richErr)).JSON(body)
}
