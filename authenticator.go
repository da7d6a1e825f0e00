package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Auther struct {
	provider       IdentityProvider
	store          UserStore
	tokenService   *TokenServiceImpl
	tokenValidator TokenValidator
	revocations    RevocationStore
	extendedTTL    time.Duration
	logger         Logger
	activitySink   ActivitySink
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator. The signing secret is read
// from opts once and never again.
func NewAuthenticator(store UserStore, opts Config) *Auther {
	ttl := time.Duration(opts.GetTokenExpiration()) * time.Hour
	extended := ttl
	if opts.GetExtendedTokenDuration() > 0 {
		extended = time.Duration(opts.GetExtendedTokenDuration()) * time.Hour
	}

	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		ttl,
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:     NewUserProvider(store),
		store:        store,
		tokenService: tokenService,
		extendedTTL:  extended,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	s.tokenService.logger = s.logger
	if up, ok := s.provider.(*UserProvider); ok {
		up.WithLogger(s.logger)
	}
	return s
}

// WithIdentityProvider replaces the default store backed provider.
func (s *Auther) WithIdentityProvider(provider IdentityProvider) *Auther {
	if provider != nil {
		s.provider = provider
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenValidator sets a custom token validator, e.g. a
// MultiTokenValidator accepting a retired signing key.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// WithRevocationStore enables server side logout of unexpired credentials.
func (s *Auther) WithRevocationStore(store RevocationStore) *Auther {
	s.revocations = store
	return s
}

// Revocations returns the configured store, nil when logout only clears cookies.
func (s *Auther) Revocations() RevocationStore {
	return s.revocations
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() *TokenServiceImpl {
	return s.tokenService
}

// Validator returns the validator guards should verify credentials with.
func (s *Auther) Validator() TokenValidator {
	if s.tokenValidator != nil {
		return s.tokenValidator
	}
	return s.tokenService
}

func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	return s.login(ctx, identifier, password, s.tokenService.TTL())
}

// LoginExtended verifies credentials and issues a credential with the
// extended session TTL.
func (s *Auther) LoginExtended(ctx context.Context, identifier, password string) (string, error) {
	return s.login(ctx, identifier, password, s.extendedTTL)
}

func (s *Auther) login(ctx context.Context, identifier, password string, ttl time.Duration) (string, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		eventType := ActivityEventLoginFailure
		if KindOf(err) == KindBlockedAccount {
			eventType = ActivityEventLoginBlocked
		}
		s.logger.Error("Login verify identity error", "error", err)
		RecordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
			EventType: eventType,
			Actor:     ActorRef{Type: "unknown"},
			Metadata: map[string]any{
				"identifier": identifier,
				"error":      err.Error(),
			},
		})
		return "", err
	}

	token, err := s.tokenService.GenerateWithTTL(identity, ttl)
	if err != nil {
		return "", err
	}

	RecordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     actorFromIdentity(identity),
		UserID:    identity.ID(),
		Metadata:  map[string]any{"identifier": identifier},
	})

	return token, nil
}

// Issue signs a credential for identity with the default TTL
func (s *Auther) Issue(_ context.Context, identity Identity) (string, error) {
	return s.tokenService.Generate(identity)
}

// IssueExtended signs a credential with the extended session TTL
func (s *Auther) IssueExtended(_ context.Context, identity Identity) (string, error) {
	return s.tokenService.GenerateWithTTL(identity, s.extendedTTL)
}

// ClaimsFromToken verifies raw and returns its claims
func (s *Auther) ClaimsFromToken(raw string) (AuthClaims, error) {
	claims, err := s.Validator().Validate(raw)
	if err != nil {
		s.logger.Debug("ClaimsFromToken validation failed", "error", err)
		return nil, err
	}
	return claims, nil
}

// IdentityFromClaims loads the user a verified credential belongs to
func (s *Auther) IdentityFromClaims(ctx context.Context, claims AuthClaims) (*User, error) {
	if claims == nil {
		return nil, ErrUnauthenticated
	}
	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrMalformedCredential.Wrap(err)
	}
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Register creates a local account with no role selected
func (s *Auther) Register(ctx context.Context, email, name, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Register(ctx, &User{
		ID:           uuid.New(),
		Email:        normalizeEmail(email),
		Name:         name,
		Role:         RoleUnset,
		Status:       UserStatusActive,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	RecordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor:     ActorRef{Type: "user", ID: user.ID.String()},
		UserID:    user.ID.String(),
	})

	return user, nil
}

// SelectRole stores the role for a user that has none yet and returns a
// fresh credential carrying it.
func (s *Auther) SelectRole(ctx context.Context, claims AuthClaims, role UserRole) (*User, string, error) {
	if !role.IsSelectable() {
		return nil, "", ErrValidation.WithMetadata(map[string]any{"role": role})
	}

	user, err := s.IdentityFromClaims(ctx, claims)
	if err != nil {
		return nil, "", err
	}
	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, "", err
	}
	if !user.Role.IsUnset() {
		return nil, "", ErrRoleAlreadySelected
	}

	user, err = s.store.SelectRole(ctx, user.ID, role)
	if err != nil {
		return nil, "", err
	}

	token, err := s.Issue(ctx, NewIdentityFromUser(user))
	if err != nil {
		return nil, "", err
	}

	RecordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventRoleSelected,
		Actor:     ActorRef{Type: "user", ID: user.ID.String()},
		UserID:    user.ID.String(),
		Metadata:  map[string]any{"role": string(role)},
	})

	return user, token, nil
}

// Logout revokes the credential behind claims until it would have expired.
// Nil claims are a no-op.
func (s *Auther) Logout(ctx context.Context, claims AuthClaims) error {
	if claims == nil {
		return nil
	}

	RecordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLogout,
		Actor:     ActorRef{Type: "user", ID: claims.UserID()},
		UserID:    claims.UserID(),
	})

	if s.revocations == nil || claims.TokenID() == "" {
		return nil
	}

	until := claims.Expires()
	if !until.After(s.tokenService.now()) {
		return nil
	}

	if err := s.revocations.Revoke(ctx, claims.TokenID(), until); err != nil {
		return ErrInternal.Wrap(err)
	}
	return nil
}

func actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}
	return ActorRef{ID: identity.ID(), Type: "user"}
}
