package jwtware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// DefaultCookieName is the session cookie carrying the credential.
const DefaultCookieName = "classroom_session"

// JWTExtractor pulls a raw credential out of a request.
type JWTExtractor func(c *fiber.Ctx) (string, error)

// SessionExtractors returns the session transport lookup chain. The cookie
// always comes first, the Authorization bearer header second.
func SessionExtractors(cookieName, authScheme string) []JWTExtractor {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if authScheme == "" {
		authScheme = "Bearer"
	}
	return []JWTExtractor{
		jwtFromCookie(cookieName),
		jwtFromHeader(fiber.HeaderAuthorization, authScheme),
	}
}

// ExtractToken runs extractors in order and returns the first credential
// found. Finding nothing is not an error.
func ExtractToken(c *fiber.Ctx, extractors []JWTExtractor) (string, bool) {
	for _, extractor := range extractors {
		raw, err := extractor(c)
		if raw != "" && err == nil {
			return raw, true
		}
	}
	return "", false
}

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	authScheme = strings.TrimSpace(authScheme)
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
