package google

import (
	"context"
	"net/http"

	"golang.org/x/oauth2/endpoints"

	"github.com/goliatone/go-classroom-auth/social"
)

// Name is the provider key.
const Name = "google"

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

// New creates the Google provider.
func New(cfg social.ProviderConfig) social.Provider {
	return social.NewOAuthProvider(Name, cfg, endpoints.Google, DefaultScopes(), defaultUserInfoURL, fetchProfile)
}

func fetchProfile(ctx context.Context, client *http.Client, userInfoURL string) (social.Profile, error) {
	var info googleUserInfo
	if err := social.FetchJSON(ctx, client, userInfoURL, &info); err != nil {
		return social.Profile{}, err
	}
	return mapProfile(&info), nil
}
