package facebook

import (
	"context"
	"net/http"

	"golang.org/x/oauth2/endpoints"

	"github.com/goliatone/go-classroom-auth/social"
)

// Name is the provider key.
const Name = "facebook"

const defaultUserInfoURL = "https://graph.facebook.com/v19.0/me?fields=id,name,first_name,last_name,email,picture.type(large)"

// DefaultScopes returns the default Facebook scopes.
func DefaultScopes() []string {
	return []string{"email", "public_profile"}
}

// New creates the Facebook provider.
func New(cfg social.ProviderConfig) social.Provider {
	return social.NewOAuthProvider(Name, cfg, endpoints.Facebook, DefaultScopes(), defaultUserInfoURL, fetchProfile)
}

type facebookUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func fetchProfile(ctx context.Context, client *http.Client, userInfoURL string) (social.Profile, error) {
	var user facebookUser
	if err := social.FetchJSON(ctx, client, userInfoURL, &user); err != nil {
		return social.Profile{}, err
	}
	return mapProfile(&user), nil
}

// mapProfile treats the returned email as verified: Graph only exposes
// confirmed addresses.
func mapProfile(user *facebookUser) social.Profile {
	if user == nil {
		return social.Profile{}
	}

	p := social.Profile{
		ID:          user.ID,
		Provider:    Name,
		DisplayName: user.Name,
		GivenName:   user.FirstName,
		FamilyName:  user.LastName,
		Raw: map[string]any{
			"id":   user.ID,
			"name": user.Name,
		},
	}
	if user.Email != "" {
		p.Emails = []social.Email{{Value: user.Email, Verified: true}}
	}
	if url := user.Picture.Data.URL; url != "" {
		p.Photos = []string{url}
	}
	return p
}
