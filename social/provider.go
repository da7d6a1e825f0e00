package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ProviderConfig holds the per provider OAuth settings. Endpoint and
// UserInfoURL default to the provider's public endpoints.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	Endpoint    oauth2.Endpoint
	UserInfoURL string

	HTTPClient *http.Client
}

// ExchangeFunc trades an authorization code for the provider's profile.
type ExchangeFunc func(ctx context.Context, code string, opts ...ExchangeOption) (Profile, error)

// ProfileFetcher loads the user profile with an authorized client.
type ProfileFetcher func(ctx context.Context, client *http.Client, userInfoURL string) (Profile, error)

// Provider is one configured OAuth provider.
type Provider struct {
	Name     string
	OAuth    *oauth2.Config
	Exchange ExchangeFunc
}

// AuthCodeURL returns the provider authorization URL. A non empty verifier
// adds a S256 PKCE challenge.
func (p Provider) AuthCodeURL(state, verifier string) string {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return p.OAuth.AuthCodeURL(state, opts...)
}

// ExchangeOption configures the token exchange.
type ExchangeOption func(*exchangeConfig)

// WithCodeVerifier sets the PKCE code verifier for token exchange.
func WithCodeVerifier(verifier string) ExchangeOption {
	return func(c *exchangeConfig) {
		c.codeVerifier = verifier
	}
}

type exchangeConfig struct {
	codeVerifier string
}

// ApplyExchangeOptions applies ExchangeOption values and returns a normalized config.
func ApplyExchangeOptions(opts ...ExchangeOption) ExchangeConfig {
	cfg := exchangeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return ExchangeConfig{
		CodeVerifier: cfg.codeVerifier,
	}
}

// ExchangeConfig represents applied exchange options in a provider-friendly form.
type ExchangeConfig struct {
	CodeVerifier string
}

// NewOAuthProvider builds a Provider running the authorization code
// exchange through x/oauth2 and loading the profile with fetch.
func NewOAuthProvider(name string, cfg ProviderConfig, endpoint oauth2.Endpoint, defaultScopes []string, userInfoURL string, fetch ProfileFetcher) Provider {
	if cfg.Endpoint.AuthURL == "" && cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = endpoint
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = append([]string(nil), defaultScopes...)
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = userInfoURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.CallbackURL,
		Scopes:       cfg.Scopes,
		Endpoint:     cfg.Endpoint,
	}

	exchange := func(ctx context.Context, code string, opts ...ExchangeOption) (Profile, error) {
		ecfg := ApplyExchangeOptions(opts...)
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

		var authOpts []oauth2.AuthCodeOption
		if ecfg.CodeVerifier != "" {
			authOpts = append(authOpts, oauth2.VerifierOption(ecfg.CodeVerifier))
		}

		token, err := oc.Exchange(ctx, code, authOpts...)
		if err != nil {
			return Profile{}, newProviderError(name, "exchange", err)
		}

		profile, err := fetch(ctx, oc.Client(ctx, token), cfg.UserInfoURL)
		if err != nil {
			return Profile{}, newProviderError(name, "user_info", err)
		}
		profile.Provider = name
		return profile, nil
	}

	return Provider{
		Name:     name,
		OAuth:    oc,
		Exchange: exchange,
	}
}

// FetchJSON GETs url with client and decodes a JSON body into out.
func FetchJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{
			Status:      resp.StatusCode,
			Description: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// Registry maps provider names to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns a registry holding providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) {
	if p.Name == "" || p.Exchange == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
