// Package client holds the browser side view of the session: the current
// identity (or none), whether the first profile lookup is still running,
// and the side effects tied to refresh and logout.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	auth "github.com/goliatone/go-classroom-auth"
)

// DefaultBlockedPath is where blocked accounts are sent.
const DefaultBlockedPath = "/blocked"

// User is the identity returned by the profile endpoint.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Role           string `json:"role"`
	Status         string `json:"status,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// RoleValue returns the parsed role, RoleUnset when empty or unknown.
func (u *User) RoleValue() auth.UserRole {
	if u == nil {
		return auth.RoleUnset
	}
	role, ok := auth.ParseRole(u.Role)
	if !ok {
		return auth.RoleUnset
	}
	return role
}

// State is a snapshot of the client session. Identity nil with IsLoading
// false means anonymous.
type State struct {
	Identity  *User
	IsLoading bool
}

// IsAuthenticated reports whether an identity is present.
func (s State) IsAuthenticated() bool {
	return s.Identity != nil
}

// API is the server surface the session depends on.
type API interface {
	Profile(ctx context.Context) (*User, error)
	Logout(ctx context.Context) error
}

// Navigator performs forced navigations.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(path string) { f(path) }

// QueryCache holds server derived data that must not outlive the session.
type QueryCache interface {
	Clear()
}

// Scheduler runs fn on a later tick.
type Scheduler func(fn func())

// Option configures a Session.
type Option func(*Session)

// WithNavigator sets the navigator used for forced navigation.
func WithNavigator(n Navigator) Option {
	return func(s *Session) { s.nav = n }
}

// WithQueryCache sets the cache cleared on logout.
func WithQueryCache(c QueryCache) Option {
	return func(s *Session) { s.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l auth.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithBlockedPath overrides DefaultBlockedPath.
func WithBlockedPath(path string) Option {
	return func(s *Session) {
		if path != "" {
			s.blockedPath = path
		}
	}
}

// WithScheduler overrides how Mount defers its first refresh.
func WithScheduler(fn Scheduler) Option {
	return func(s *Session) {
		if fn != nil {
			s.schedule = fn
		}
	}
}

// Session is the client session state machine:
// Loading -> Authenticated(identity) | Anonymous.
//
// Each refresh or logout takes a new generation; a refresh whose
// generation is no longer current when its response lands is discarded,
// so the last issued operation wins.
type Session struct {
	api         API
	nav         Navigator
	cache       QueryCache
	logger      auth.Logger
	blockedPath string
	schedule    Scheduler

	mu         sync.Mutex
	state      State
	generation uint64
	subs       map[int]func(State)
	nextSub    int
}

// New creates a session in the Loading state.
func New(api API, opts ...Option) *Session {
	s := &Session{
		api:         api,
		blockedPath: DefaultBlockedPath,
		schedule:    deferTick,
		state:       State{IsLoading: true},
		subs:        map[int]func(State){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = auth.DefaultLogger()
	}
	return s
}

func deferTick(fn func()) {
	time.AfterFunc(0, fn)
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Mount schedules the first refresh on the next tick so a cookie set by a
// just completed OAuth redirect is visible. The returned channel closes
// once that refresh resolved.
func (s *Session) Mount(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	s.schedule(func() {
		defer close(done)
		s.Refresh(ctx)
	})
	return done
}

// Refresh loads the profile. Any failure leaves the session anonymous; a
// failure whose message mentions a blocked account also navigates to the
// blocked page, once per call.
func (s *Session) Refresh(ctx context.Context) State {
	gen := s.begin()

	user, err := s.api.Profile(ctx)

	s.mu.Lock()
	if gen != s.generation {
		st := s.state
		s.mu.Unlock()
		s.logger.Debug("discarding superseded profile response", "generation", gen)
		return st
	}

	navigate := false
	if err != nil {
		s.state = State{}
		navigate = IsBlocked(err)
	} else {
		s.state = State{Identity: user}
	}
	st, subs := s.state, s.subscribers()
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug("profile refresh failed", "error", err)
	}

	notify(subs, st)

	if navigate && s.nav != nil {
		s.nav.Navigate(s.blockedPath)
	}

	return st
}

// Logout asks the server to end the session, then always clears local
// state and afterwards the query cache. Server errors are only logged.
func (s *Session) Logout(ctx context.Context) {
	s.begin()

	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("logout request failed", "error", err)
	}

	s.mu.Lock()
	s.generation++
	s.state = State{}
	st, subs := s.state, s.subscribers()
	s.mu.Unlock()

	notify(subs, st)

	if s.cache != nil {
		s.cache.Clear()
	}
}

func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

func (s *Session) subscribers() []func(State) {
	out := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(State), st State) {
	for _, fn := range subs {
		fn(st)
	}
}

// IsBlocked reports whether err is a server response whose message field
// mentions a blocked account. Transport errors never count.
func IsBlocked(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return auth.IsBlockedMessage(apiErr.Message)
}
