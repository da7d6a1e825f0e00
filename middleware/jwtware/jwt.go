package jwtware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultContextKey is the fiber Locals key the resolved claims live under.
const DefaultContextKey = "user"

var (
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
	ErrCredentialRevoked     = errors.New("credential revoked")
	ErrRoleSelectionRequired = errors.New("role selection required")
	ErrRoleNotAllowed        = errors.New("role not allowed")
)

// Mode selects how the guard treats requests without a usable credential.
type Mode int

const (
	// ModeMandatory rejects the request before it reaches the handler.
	ModeMandatory Mode = iota
	// ModeOptional lets the request through with no identity attached.
	ModeOptional
)

func (m Mode) String() string {
	if m == ModeOptional {
		return "optional"
	}
	return "mandatory"
}

// TokenValidator interface for validating tokens without import cycles
// This mirrors the TokenService.Validate method from the auth package
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies TokenValidator.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	return f(tokenString)
}

// AuthClaims interface for structured claims without import cycles
// This mirrors the AuthClaims interface from the auth package
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Role() string
	TokenID() string
	Expires() time.Time
}

// RevocationChecker reports credentials invalidated before expiry.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Handler receives the identity resolved for the current request. Claims
// are nil when an optional guard found no usable credential.
type Handler func(c *fiber.Ctx, claims AuthClaims) error

// ValidationListener is invoked after a token has been validated but before authorization checks.
type ValidationListener func(c *fiber.Ctx, claims AuthClaims) error

type Config struct {
	Mode         Mode
	Filter       func(*fiber.Ctx) bool
	ErrorHandler fiber.ErrorHandler
	// TokenValidator is required for token validation
	TokenValidator TokenValidator
	// Revocations is consulted after a credential verifies. Lookup failures
	// count as a failed resolution.
	Revocations RevocationChecker

	ContextKey string
	CookieName string
	AuthScheme string

	// RequiredRoles restricts the surface to the listed roles. Claims with
	// no role selected fail with ErrRoleSelectionRequired.
	RequiredRoles []string

	// ContextEnricher is an optional function to propagate claims to the standard
	// Go context. If provided, it will be called after successful token validation.
	ContextEnricher func(c context.Context, claims AuthClaims) context.Context

	ValidationListeners []ValidationListener
}

// New returns a guard middleware that attaches resolved claims to the
// request Locals under ContextKey.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		claims, err := Resolve(c, cfg)
		if err != nil {
			if cfg.Mode == ModeOptional {
				return c.Next()
			}
			return cfg.ErrorHandler(c, err)
		}

		if err := performAuthorizationChecks(claims, cfg); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		attach(c, cfg, claims)
		return c.Next()
	}
}

// Protect resolves the identity and hands it to h explicitly.
func Protect(cfg Config, h Handler) fiber.Handler {
	cfg = GetDefaultConfig(cfg)
	return func(c *fiber.Ctx) error {
		claims, err := Resolve(c, cfg)
		if err != nil {
			if cfg.Mode == ModeOptional {
				return h(c, nil)
			}
			return cfg.ErrorHandler(c, err)
		}

		if err := performAuthorizationChecks(claims, cfg); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		attach(c, cfg, claims)
		return h(c, claims)
	}
}

// Resolve extracts and verifies the request credential. It never writes to
// the response.
func Resolve(c *fiber.Ctx, cfg Config) (AuthClaims, error) {
	raw, ok := ExtractToken(c, SessionExtractors(cfg.CookieName, cfg.AuthScheme))
	if !ok {
		return nil, ErrJWTMissingOrMalformed
	}

	claims, err := cfg.TokenValidator.Validate(raw)
	if err != nil {
		return nil, err
	}
	if claims == nil {
		return nil, ErrJWTMissingOrMalformed
	}

	if cfg.Revocations != nil && claims.TokenID() != "" {
		revoked, err := cfg.Revocations.IsRevoked(c.UserContext(), claims.TokenID())
		if err != nil {
			return nil, fmt.Errorf("revocation lookup: %w", err)
		}
		if revoked {
			return nil, ErrCredentialRevoked
		}
	}

	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, claims); err != nil {
			return nil, err
		}
	}

	return claims, nil
}

// ClaimsFromLocals returns the claims a guard attached under key.
func ClaimsFromLocals(c *fiber.Ctx, key string) (AuthClaims, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	claims, ok := c.Locals(key).(AuthClaims)
	return claims, ok
}

// RequireRoles gates a route chained after New on the attached claims.
func RequireRoles(roles ...string) fiber.Handler {
	cfg := Config{ContextKey: DefaultContextKey, RequiredRoles: roles}
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromLocals(c, cfg.ContextKey)
		if !ok {
			return DefaultErrorHandler(c, ErrJWTMissingOrMalformed)
		}
		if err := performAuthorizationChecks(claims, cfg); err != nil {
			return DefaultErrorHandler(c, err)
		}
		return c.Next()
	}
}

func attach(c *fiber.Ctx, cfg Config, claims AuthClaims) {
	c.Locals(cfg.ContextKey, claims)

	// if a context enricher we use it to propagate claims to the standard context
	if cfg.ContextEnricher != nil {
		c.SetUserContext(cfg.ContextEnricher(c.UserContext(), claims))
	}
}

// performAuthorizationChecks performs role checks using the configured options
func performAuthorizationChecks(claims AuthClaims, cfg Config) error {
	if len(cfg.RequiredRoles) == 0 {
		return nil
	}

	role := claims.Role()
	if role == "" {
		return ErrRoleSelectionRequired
	}

	for _, allowed := range cfg.RequiredRoles {
		if role == allowed {
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrRoleNotAllowed, role)
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

// DefaultErrorHandler answers 401 for credential failures and 403 for role
// failures. No detail about why a credential failed is returned.
func DefaultErrorHandler(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrRoleSelectionRequired):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Role selection required",
			"code":    "ROLE_SELECTION_REQUIRED",
		})
	case errors.Is(err, ErrRoleNotAllowed):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Access denied",
			"code":    "FORBIDDEN",
		})
	default:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Unauthorized",
		})
	}
}
