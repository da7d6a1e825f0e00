package access

import (
	auth "github.com/goliatone/go-classroom-auth"
	"github.com/goliatone/go-classroom-auth/client"
)

// FromState builds the Decide input for a route from a session snapshot.
func FromState(st client.State, currentPath string, allowed ...auth.UserRole) Input {
	return Input{
		IsLoading:       st.IsLoading,
		IsAuthenticated: st.IsAuthenticated(),
		Role:            st.Identity.RoleValue(),
		AllowedRoles:    allowed,
		CurrentPath:     currentPath,
	}
}

// Guard re-evaluates a route every time the session changes.
type Guard struct {
	path    string
	allowed []auth.UserRole
}

// NewGuard creates a guard for the route at path.
func NewGuard(path string, allowed ...auth.UserRole) *Guard {
	return &Guard{path: path, allowed: allowed}
}

// Decide evaluates the guard against st.
func (g *Guard) Decide(st client.State) Decision {
	return Decide(FromState(st, g.path, g.allowed...))
}

// Watch subscribes to session and calls fn with the decision for the
// current state and for every change after it.
func (g *Guard) Watch(session *client.Session, fn func(Decision)) (unsubscribe func()) {
	unsubscribe = session.Subscribe(func(st client.State) {
		fn(g.Decide(st))
	})
	fn(g.Decide(session.State()))
	return unsubscribe
}
