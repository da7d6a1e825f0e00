package social

import (
	"net/http"

	auth "github.com/goliatone/go-classroom-auth"
)

const (
	TextCodeProviderNotFound = "social_provider_not_found"
	TextCodeInvalidState     = "social_invalid_state"
	TextCodeStateExpired     = "social_state_expired"
	TextCodeUnusableProfile  = "social_unusable_profile"
	TextCodeNoIdentity       = "social_no_identity"
)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = auth.NewError(auth.KindNotFound, http.StatusNotFound, TextCodeProviderNotFound, "social provider not found")

// ErrInvalidState is returned when the OAuth state is invalid or tampered.
var ErrInvalidState = auth.NewError(auth.KindProviderDenied, http.StatusBadRequest, TextCodeInvalidState, "invalid oauth state")

// ErrStateExpired is returned when the OAuth state has expired.
var ErrStateExpired = auth.NewError(auth.KindProviderDenied, http.StatusBadRequest, TextCodeStateExpired, "oauth state expired")

// ErrUnusableProfile is returned when the provider profile has no id.
var ErrUnusableProfile = auth.NewError(auth.KindProviderDenied, http.StatusUnauthorized, TextCodeUnusableProfile, "provider profile unusable")

// ErrNoIdentity is returned when the identity store hands back no user.
var ErrNoIdentity = auth.NewError(auth.KindProviderDenied, http.StatusUnauthorized, TextCodeNoIdentity, "no identity for provider profile")
