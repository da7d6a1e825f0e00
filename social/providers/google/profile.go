package google

import "github.com/goliatone/go-classroom-auth/social"

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

func mapProfile(info *googleUserInfo) social.Profile {
	if info == nil {
		return social.Profile{}
	}

	p := social.Profile{
		ID:          info.Sub,
		Provider:    Name,
		DisplayName: info.Name,
		GivenName:   info.GivenName,
		FamilyName:  info.FamilyName,
		Raw: map[string]any{
			"sub":            info.Sub,
			"email":          info.Email,
			"email_verified": info.EmailVerified,
			"name":           info.Name,
			"picture":        info.Picture,
			"locale":         info.Locale,
		},
	}
	if info.Email != "" {
		p.Emails = []social.Email{{Value: info.Email, Verified: info.EmailVerified}}
	}
	if info.Picture != "" {
		p.Photos = []string{info.Picture}
	}
	return p
}
