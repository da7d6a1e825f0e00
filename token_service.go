package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService issues and verifies session credentials.
type TokenService interface {
	TokenValidator
	Generate(identity Identity) (string, error)
	GenerateWithTTL(identity Identity, ttl time.Duration) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration time.Duration
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
	now             func() time.Time
}

// NewTokenService creates a new TokenService instance. The signing key is
// copied so later mutation of the caller's slice has no effect.
func NewTokenService(signingKey []byte, tokenExpiration time.Duration, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	if tokenExpiration <= 0 {
		tokenExpiration = 24 * time.Hour
	}

	return &TokenServiceImpl{
		signingKey:      key,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		logger:          normalizeLogger(logger),
		now:             time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// TTL returns the default credential lifetime.
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.tokenExpiration
}

// Generate creates a signed credential for identity using the default TTL
func (ts *TokenServiceImpl) Generate(identity Identity) (string, error) {
	return ts.GenerateWithTTL(identity, ts.tokenExpiration)
}

// GenerateWithTTL creates a signed credential that expires after ttl
func (ts *TokenServiceImpl) GenerateWithTTL(identity Identity, ttl time.Duration) (string, error) {
	if identity == nil {
		return "", ErrIdentityNotFound
	}
	if ttl <= 0 {
		ttl = ts.tokenExpiration
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:       identity.ID(),
		UserEmail: identity.Email(),
		UserRole:  identity.Role(),
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", ErrInternal.Wrap(errors.New("claims must not be nil"))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		ts.logger.Error("TokenService failed to sign claims", "error", err)
		return "", ErrInternal.Wrap(err)
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// Expiry is mandatory and checked with zero leeway.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	if tokenString == "" {
		return nil, ErrMalformedCredential
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(0),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, classifyJWTError(err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrMalformedCredential
}

// classifyJWTError maps jwt parser errors onto the credential taxonomy.
// Signature is checked before expiry.
func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature.Wrap(err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredCredential.Wrap(err)
	default:
		return ErrMalformedCredential.Wrap(err)
	}
}
