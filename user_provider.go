package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// UserStore is the persistence the auth flows need for local users
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	SelectRole(ctx context.Context, id uuid.UUID, role UserRole) (*User, error)
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// UserProvider handles users
type UserProvider struct {
	store  UserStore
	logger Logger
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

// WithLogger sets the logger
func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = normalizeLogger(l)
	return u
}

// VerifyIdentity will find the user, compare to the password, and return identity
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, normalizeEmail(identifier))
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, ErrInternal.Wrap(err)
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, err
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	return NewIdentityFromUser(user), nil
}

// FindIdentityByIdentifier loads an identity by id or email
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	var (
		user *User
		err  error
	)
	if id, perr := uuid.Parse(identifier); perr == nil {
		user, err = u.store.GetByID(ctx, id)
	} else {
		user, err = u.store.GetByIdentifier(ctx, normalizeEmail(identifier))
	}
	if err != nil {
		return nil, err
	}

	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

func ensureAuthenticatableUser(user *User) error {
	if user == nil {
		return ErrIdentityNotFound
	}
	if user.IsBlocked() {
		return ErrBlockedAccount
	}
	if !user.Role.IsUnset() && !user.Role.IsValid() {
		return ErrForbidden.WithMetadata(map[string]any{"role": user.Role, "user_id": user.ID.String()})
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
