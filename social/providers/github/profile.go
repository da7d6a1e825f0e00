package github

import (
	"strconv"

	"github.com/goliatone/go-classroom-auth/social"
)

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// mapProfile lists the primary address first so it wins when verified.
func mapProfile(user *githubUser, emails []githubEmail) social.Profile {
	if user == nil {
		return social.Profile{}
	}

	p := social.Profile{
		Provider:    Name,
		DisplayName: user.Name,
		Username:    user.Login,
		Raw: map[string]any{
			"id":         user.ID,
			"login":      user.Login,
			"name":       user.Name,
			"avatar_url": user.AvatarURL,
			"html_url":   user.HTMLURL,
		},
	}
	if user.ID != 0 {
		p.ID = strconv.FormatInt(user.ID, 10)
	}

	for _, e := range emails {
		if e.Primary {
			p.Emails = append(p.Emails, social.Email{Value: e.Email, Verified: e.Verified})
		}
	}
	for _, e := range emails {
		if !e.Primary {
			p.Emails = append(p.Emails, social.Email{Value: e.Email, Verified: e.Verified})
		}
	}
	if len(emails) == 0 && user.Email != "" {
		p.Emails = []social.Email{{Value: user.Email}}
	}

	if user.AvatarURL != "" {
		p.Photos = []string{user.AvatarURL}
	}
	return p
}
