package social

import (
	"context"
	"time"

	auth "github.com/goliatone/go-classroom-auth"
)

// IdentityStore finds or creates the local user a provider profile
// belongs to. created reports whether a new user was made.
type IdentityStore interface {
	FindOrCreate(ctx context.Context, draft ProfileDraft) (user *auth.User, created bool, err error)
}

// IdentityStoreFunc adapts a function to IdentityStore.
type IdentityStoreFunc func(ctx context.Context, draft ProfileDraft) (*auth.User, bool, error)

// FindOrCreate implements IdentityStore.
func (f IdentityStoreFunc) FindOrCreate(ctx context.Context, draft ProfileDraft) (*auth.User, bool, error) {
	return f(ctx, draft)
}

// SocialAccount represents a linked social provider account.
type SocialAccount struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	Email          string    `json:"email,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SocialAccountRepository lists the provider accounts linked to a user.
type SocialAccountRepository interface {
	FindByProviderID(ctx context.Context, provider, providerUserID string) (*SocialAccount, error)
	FindByUserID(ctx context.Context, userID string) ([]*SocialAccount, error)
}
