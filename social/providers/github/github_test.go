package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-classroom-auth/social"
)

func newTestServer(t *testing.T, withEmails bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/login/oauth/access_token":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "auth-code", r.Form.Get("code"))
			assert.Equal(t, "verifier", r.Form.Get("code_verifier"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "token",
				"token_type":   "bearer",
			})
		case "/user":
			assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":         42,
				"login":      "octo",
				"name":       "",
				"avatar_url": "https://avatars.example.com/octo.png",
			})
		case "/user/emails":
			if !withEmails {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"email": "secondary@example.com", "primary": false, "verified": true},
				{"email": "Octo@Example.com", "primary": true, "verified": true},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testConfig(serverURL string) social.ProviderConfig {
	return social.ProviderConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://example.com/auth/github/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  serverURL + "/login/oauth/authorize",
			TokenURL: serverURL + "/login/oauth/access_token",
		},
		UserInfoURL: serverURL + "/user",
	}
}

func TestProviderAuthCodeURL(t *testing.T) {
	provider := New(testConfig("https://github.example.com"))

	authURL := provider.AuthCodeURL("state-token", "verifier")

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "https://example.com/auth/github/callback", query.Get("redirect_uri"))
	assert.Equal(t, "state-token", query.Get("state"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.NotEmpty(t, query.Get("code_challenge"))
	assert.Contains(t, query.Get("scope"), "user:email")
}

func TestProviderExchange(t *testing.T) {
	server := newTestServer(t, true)
	defer server.Close()

	provider := New(testConfig(server.URL))

	profile, err := provider.Exchange(context.Background(), "auth-code", social.WithCodeVerifier("verifier"))
	require.NoError(t, err)

	assert.Equal(t, "42", profile.ID)
	assert.Equal(t, Name, profile.Provider)

	draft := social.Normalize(profile)
	assert.Equal(t, "octo@example.com", draft.Email)
	assert.Equal(t, "octo", draft.DisplayName)
	assert.Equal(t, "https://avatars.example.com/octo.png", draft.AvatarURL)
}

func TestProviderExchangeWithoutEmailScope(t *testing.T) {
	server := newTestServer(t, false)
	defer server.Close()

	provider := New(testConfig(server.URL))

	profile, err := provider.Exchange(context.Background(), "auth-code", social.WithCodeVerifier("verifier"))
	require.NoError(t, err)

	assert.Equal(t, "", social.Normalize(profile).Email)
}

func TestProviderExchangeTokenError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":             "bad_verification_code",
			"error_description": "The code passed is incorrect or expired.",
		})
	}))
	defer server.Close()

	provider := New(testConfig(server.URL))

	_, err := provider.Exchange(context.Background(), "bad-code")
	require.Error(t, err)

	var perr *social.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "exchange", perr.Operation)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
	assert.Equal(t, "bad_verification_code", perr.Code)
}
