package social

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStateManager(ttl time.Duration) *EncryptedStateManager {
	return NewEncryptedStateManager(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("fedcba9876543210fedcba9876543210"),
		ttl,
	)
}

func TestStateManager_EncryptDecrypt(t *testing.T) {
	sm := newTestStateManager(10 * time.Minute)

	state := &OAuthState{
		Provider:     "github",
		RedirectURL:  "/courses",
		CodeVerifier: "test-verifier",
	}

	encoded, err := sm.Encode(state)
	require.NoError(t, err)

	decoded, err := sm.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, state.Provider, decoded.Provider)
	assert.Equal(t, state.RedirectURL, decoded.RedirectURL)
	assert.Equal(t, state.CodeVerifier, decoded.CodeVerifier)
	assert.NotEmpty(t, decoded.Nonce)
}

func TestStateManager_ExpiredState(t *testing.T) {
	sm := newTestStateManager(-1 * time.Minute)

	state := &OAuthState{Provider: "github"}
	encoded, err := sm.Encode(state)
	require.NoError(t, err)

	_, err = sm.Decode(encoded)
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestStateManager_TamperedState(t *testing.T) {
	sm := newTestStateManager(10 * time.Minute)

	encoded, err := sm.Encode(&OAuthState{Provider: "google"})
	require.NoError(t, err)

	mid := len(encoded) / 2
	replacement := "A"
	if encoded[mid:mid+1] == "A" {
		replacement = "B"
	}
	tampered := encoded[:mid] + replacement + encoded[mid+1:]

	_, err = sm.Decode(tampered)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateManager_DifferentSecret(t *testing.T) {
	a := NewStateManagerFromSecret("secret-a", time.Minute)
	b := NewStateManagerFromSecret("secret-b", time.Minute)

	encoded, err := a.Encode(&OAuthState{Provider: "google"})
	require.NoError(t, err)

	_, err = b.Decode(encoded)
	assert.ErrorIs(t, err, ErrInvalidState)
}
