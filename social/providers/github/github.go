package github

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/oauth2/endpoints"

	"github.com/goliatone/go-classroom-auth/social"
)

// Name is the provider key.
const Name = "github"

const defaultUserInfoURL = "https://api.github.com/user"

// DefaultScopes returns the default GitHub scopes.
func DefaultScopes() []string {
	return []string{"read:user", "user:email"}
}

// New creates the GitHub provider. Emails are read from the /emails
// endpoint next to the configured user URL, since the user payload only
// carries the public address.
func New(cfg social.ProviderConfig) social.Provider {
	return social.NewOAuthProvider(Name, cfg, endpoints.GitHub, DefaultScopes(), defaultUserInfoURL, fetchProfile)
}

func fetchProfile(ctx context.Context, client *http.Client, userInfoURL string) (social.Profile, error) {
	var user githubUser
	if err := social.FetchJSON(ctx, client, userInfoURL, &user); err != nil {
		return social.Profile{}, err
	}

	var emails []githubEmail
	if err := social.FetchJSON(ctx, client, strings.TrimSuffix(userInfoURL, "/")+"/emails", &emails); err != nil {
		// the emails scope may not be granted; the profile is still usable
		emails = nil
	}

	return mapProfile(&user, emails), nil
}
