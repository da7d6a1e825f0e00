package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-classroom-auth/middleware/jwtware"
)

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetRouterClaims extracts the AuthClaims a guard attached to the request
func GetRouterClaims(c *fiber.Ctx, key string) (AuthClaims, bool) {
	raw, ok := jwtware.ClaimsFromLocals(c, key)
	if !ok {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// ClaimsFromGuard narrows claims handed over by jwtware.Protect.
func ClaimsFromGuard(claims jwtware.AuthClaims) (AuthClaims, bool) {
	if claims == nil {
		return nil, false
	}
	c, ok := claims.(AuthClaims)
	return c, ok
}

// GuardValidator adapts a TokenValidator to the guard's interface.
func GuardValidator(v TokenValidator) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(raw string) (jwtware.AuthClaims, error) {
		claims, err := v.Validate(raw)
		if err != nil || claims == nil {
			return nil, err
		}
		return claims, nil
	})
}

// ContextEnricher propagates guard claims to the request's user context.
func ContextEnricher(ctx context.Context, claims jwtware.AuthClaims) context.Context {
	if c, ok := ClaimsFromGuard(claims); ok {
		return WithClaimsContext(ctx, c)
	}
	return ctx
}
