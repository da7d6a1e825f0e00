package social

import "strings"

// Profile is the provider's user payload in a uniform shape. Fetchers map
// their provider specific JSON into it.
type Profile struct {
	ID          string
	Provider    string
	DisplayName string
	Username    string
	GivenName   string
	FamilyName  string
	Emails      []Email
	Photos      []string
	Raw         map[string]any
}

// Email is one address reported by the provider.
type Email struct {
	Value    string
	Verified bool
}

// ProfileDraft is the seed for finding or creating a local identity.
type ProfileDraft struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	AvatarURL      string `json:"avatar_url"`
}

// Usable reports whether the draft can identify a provider account.
func (d ProfileDraft) Usable() bool {
	return d.Provider != "" && d.ProviderUserID != ""
}

// Normalize maps a provider profile onto a draft. It never fails: missing
// fields come back empty.
//
// Email is the first verified entry. The display name prefers the full
// name, then the username, then given and family name joined.
func Normalize(p Profile) ProfileDraft {
	draft := ProfileDraft{
		Provider:       p.Provider,
		ProviderUserID: strings.TrimSpace(p.ID),
		Email:          firstVerifiedEmail(p.Emails),
		DisplayName:    displayName(p),
	}
	if len(p.Photos) > 0 {
		draft.AvatarURL = p.Photos[0]
	}
	return draft
}

func firstVerifiedEmail(emails []Email) string {
	for _, e := range emails {
		if e.Verified && strings.TrimSpace(e.Value) != "" {
			return strings.ToLower(strings.TrimSpace(e.Value))
		}
	}
	return ""
}

func displayName(p Profile) string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	if name := strings.TrimSpace(p.Username); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(p.GivenName) + " " + strings.TrimSpace(p.FamilyName))
}
