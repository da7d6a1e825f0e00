package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-classroom-auth"
)

func TestJWTClaims_Subject(t *testing.T) {
	claims := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"},
	}
	assert.Equal(t, "user-123", claims.Subject())
}

func TestJWTClaims_UserID(t *testing.T) {
	t.Run("uid claim wins", func(t *testing.T) {
		claims := &auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
			UID:              "uid-value",
		}
		assert.Equal(t, "uid-value", claims.UserID())
	})

	t.Run("falls back to subject", func(t *testing.T) {
		claims := &auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
		}
		assert.Equal(t, "subject-id", claims.UserID())
	})
}

func TestJWTClaims_EmailAndRole(t *testing.T) {
	claims := &auth.JWTClaims{UserEmail: "ada@example.com", UserRole: "instructor"}
	assert.Equal(t, "ada@example.com", claims.Email())
	assert.Equal(t, "instructor", claims.Role())

	assert.Empty(t, (&auth.JWTClaims{}).Role())
}

func TestJWTClaims_TokenID(t *testing.T) {
	claims := &auth.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1"}}
	assert.Equal(t, "jti-1", claims.TokenID())
}

func TestJWTClaims_Expires(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Truncate(time.Second)
		claims := &auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
		}
		assert.True(t, exp.Equal(claims.Expires()))
	})

	t.Run("missing", func(t *testing.T) {
		assert.True(t, (&auth.JWTClaims{}).Expires().IsZero())
	})
}

func TestJWTClaims_IssuedAt(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		iat := time.Now().Add(-time.Hour).Truncate(time.Second)
		claims := &auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(iat)},
		}
		assert.True(t, iat.Equal(claims.IssuedAt()))
	})

	t.Run("missing", func(t *testing.T) {
		assert.True(t, (&auth.JWTClaims{}).IssuedAt().IsZero())
	})
}

func TestJWTClaims_AuthClaimsInterface(t *testing.T) {
	var claims auth.AuthClaims = &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ID: "jti"},
		UserRole:         "student",
	}

	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "jti", claims.TokenID())
	assert.Equal(t, auth.RoleStudent, auth.RoleOf(claims))
}
