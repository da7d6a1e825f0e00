package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus is the account lifecycle status
type UserStatus string

const (
	// UserStatusActive accounts can sign in
	UserStatusActive UserStatus = "active"
	// UserStatusBlocked accounts were blocked by an admin
	UserStatusBlocked UserStatus = "blocked"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Role           UserRole   `bun:"user_role,notnull,default:''" json:"role"`
	Status         UserStatus `bun:"status,notnull,default:'active'" json:"status"`
	Name           string     `bun:"name,notnull,default:''" json:"name"`
	Email          string     `bun:"email,unique,nullzero" json:"email,omitempty"`
	ProfilePicture string     `bun:"profile_picture" json:"profile_picture,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// IsBlocked reports whether an admin blocked the account
func (u *User) IsBlocked() bool {
	return u != nil && u.Status == UserStatusBlocked
}

// SocialAccount links a provider-scoped identity to a local user
type SocialAccount struct {
	bun.BaseModel  `bun:"table:social_accounts,alias:sa"`
	ID             uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	UserID         uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id"`
	User           *User     `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Provider       string    `bun:"provider,notnull,unique:provider_user" json:"provider"`
	ProviderUserID string    `bun:"provider_user_id,notnull,unique:provider_user" json:"provider_user_id"`
	Email          string    `bun:"email" json:"email,omitempty"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// UserIdentity adapts a User into the Identity interface for token generation.
type UserIdentity struct {
	user *User
}

var _ Identity = UserIdentity{}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

// Username returns the user's display name.
func (u UserIdentity) Username() string {
	if u.user == nil {
		return ""
	}
	return u.user.Name
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.Email
}

// Role returns the user's role as a string.
func (u UserIdentity) Role() string {
	if u.user == nil {
		return ""
	}
	return string(u.user.Role)
}

// Status returns the user's lifecycle status.
func (u UserIdentity) Status() UserStatus {
	if u.user == nil {
		return ""
	}
	return u.user.Status
}
