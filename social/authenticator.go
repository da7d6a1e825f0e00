package social

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/oauth2"

	auth "github.com/goliatone/go-classroom-auth"
)

// TokenIssuer signs session credentials for a local identity.
type TokenIssuer interface {
	Issue(ctx context.Context, identity auth.Identity) (string, error)
}

// Federation runs the OAuth authorization code flow for every registered
// provider and hands the normalized profile to an IdentityStore.
type Federation struct {
	registry        *Registry
	stateManager    StateManager
	identities      IdentityStore
	issuer          TokenIssuer
	activitySink    auth.ActivitySink
	logger          auth.Logger
	defaultRedirect string
	stateTTL        time.Duration
	now             func() time.Time
}

// FederationOption configures the federation.
type FederationOption func(*Federation)

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) FederationOption {
	return func(f *Federation) {
		f.stateManager = sm
	}
}

// WithActivitySink sets the activity sink for audit logging.
func WithActivitySink(sink auth.ActivitySink) FederationOption {
	return func(f *Federation) {
		f.activitySink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(l auth.Logger) FederationOption {
	return func(f *Federation) {
		f.logger = l
	}
}

// WithDefaultRedirect sets where users land after login when the flow
// carried no redirect.
func WithDefaultRedirect(path string) FederationOption {
	return func(f *Federation) {
		f.defaultRedirect = path
	}
}

// WithStateTTL sets how long a started flow stays valid.
func WithStateTTL(ttl time.Duration) FederationOption {
	return func(f *Federation) {
		if ttl > 0 {
			f.stateTTL = ttl
		}
	}
}

// NewFederation creates a federation over registry.
func NewFederation(registry *Registry, identities IdentityStore, issuer TokenIssuer, opts ...FederationOption) *Federation {
	f := &Federation{
		registry:        registry,
		identities:      identities,
		issuer:          issuer,
		defaultRedirect: "/",
		stateTTL:        10 * time.Minute,
		now:             time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	if f.registry == nil {
		f.registry = NewRegistry()
	}
	if f.logger == nil {
		f.logger = auth.DefaultLogger()
	}

	return f
}

// Providers returns the configured provider names.
func (f *Federation) Providers() []string {
	return f.registry.Names()
}

// AuthRedirect contains the authorization URL for redirecting users.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// Begin starts the flow for providerName and returns where to send the user.
func (f *Federation) Begin(ctx context.Context, providerName, redirectURL string) (*AuthRedirect, error) {
	provider, ok := f.registry.Get(providerName)
	if !ok {
		return nil, ErrProviderNotFound.WithMetadata(map[string]any{"provider": providerName})
	}

	if f.stateManager == nil {
		return nil, ErrInvalidState
	}

	verifier := oauth2.GenerateVerifier()
	now := f.now()
	state := &OAuthState{
		Provider:     providerName,
		CodeVerifier: verifier,
		RedirectURL:  f.safeRedirect(redirectURL),
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(f.stateTTL).Unix(),
	}

	stateToken, err := f.stateManager.Encode(state)
	if err != nil {
		return nil, auth.ErrInternal.Wrap(err)
	}

	return &AuthRedirect{
		URL:      provider.AuthCodeURL(stateToken, verifier),
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// Exchange trades code for a normalized profile draft. The draft is only
// returned when it can identify a provider account.
func (f *Federation) Exchange(ctx context.Context, providerName, code, verifier string) (ProfileDraft, error) {
	provider, ok := f.registry.Get(providerName)
	if !ok {
		return ProfileDraft{}, ErrProviderNotFound.WithMetadata(map[string]any{"provider": providerName})
	}

	profile, err := provider.Exchange(ctx, code, WithCodeVerifier(verifier))
	if err != nil {
		return ProfileDraft{}, classifyProviderError(err)
	}

	profile.Provider = providerName
	draft := Normalize(profile)
	if !draft.Usable() {
		return ProfileDraft{}, ErrUnusableProfile.WithMetadata(map[string]any{"provider": providerName})
	}
	return draft, nil
}

// CallbackParams carries the provider callback query.
type CallbackParams struct {
	Provider         string
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Result is a completed federation.
type Result struct {
	User        *auth.User
	Draft       ProfileDraft
	Token       string
	IsNewUser   bool
	RedirectURL string
}

// Complete finishes the flow after the provider callback. Every failure
// comes back as an error; a nil user from the store is a failure too.
func (f *Federation) Complete(ctx context.Context, params CallbackParams) (*Result, error) {
	result, err := f.complete(ctx, params)
	if err != nil {
		f.logger.Warn("social login failed", "provider", params.Provider, "error", err)
		auth.RecordActivity(ctx, f.activitySink, f.logger, auth.ActivityEvent{
			EventType: auth.ActivityEventSocialFailure,
			Actor:     auth.ActorRef{Type: "social", ID: params.Provider},
			Metadata: map[string]any{
				"provider": params.Provider,
				"kind":     string(auth.KindOf(err)),
			},
		})
		return nil, err
	}

	auth.RecordActivity(ctx, f.activitySink, f.logger, auth.ActivityEvent{
		EventType: auth.ActivityEventSocialLogin,
		UserID:    result.User.ID.String(),
		Actor:     auth.ActorRef{Type: "social", ID: params.Provider},
		Metadata: map[string]any{
			"provider":         params.Provider,
			"provider_user_id": result.Draft.ProviderUserID,
			"is_new_user":      result.IsNewUser,
		},
	})

	return result, nil
}

func (f *Federation) complete(ctx context.Context, params CallbackParams) (*Result, error) {
	if params.Error != "" {
		return nil, auth.ErrProviderDenied.WithMetadata(map[string]any{
			"provider":          params.Provider,
			"error":             params.Error,
			"error_description": params.ErrorDescription,
		})
	}

	if params.Code == "" || params.State == "" {
		return nil, ErrInvalidState.WithMetadata(map[string]any{"reason": "missing_params"})
	}

	if f.stateManager == nil {
		return nil, ErrInvalidState
	}

	state, err := f.stateManager.Decode(params.State)
	if err != nil {
		if errors.Is(err, ErrStateExpired) {
			return nil, ErrStateExpired
		}
		return nil, ErrInvalidState.Wrap(err)
	}

	if state.Provider != params.Provider {
		return nil, ErrInvalidState.WithMetadata(map[string]any{"reason": "provider_mismatch"})
	}

	draft, err := f.Exchange(ctx, params.Provider, params.Code, state.CodeVerifier)
	if err != nil {
		return nil, err
	}

	if f.identities == nil {
		return nil, ErrNoIdentity
	}

	user, created, err := f.identities.FindOrCreate(ctx, draft)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoIdentity
	}
	if user.IsBlocked() {
		return nil, auth.ErrBlockedAccount
	}

	token, err := f.issuer.Issue(ctx, auth.NewIdentityFromUser(user))
	if err != nil {
		return nil, err
	}

	redirect := state.RedirectURL
	if redirect == "" {
		redirect = f.defaultRedirect
	}

	return &Result{
		User:        user,
		Draft:       draft,
		Token:       token,
		IsNewUser:   created,
		RedirectURL: redirect,
	}, nil
}

// safeRedirect only keeps local absolute paths.
func (f *Federation) safeRedirect(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, "\\") {
		return f.defaultRedirect
	}
	return path
}
