// Package access decides what a protected route renders for the current
// client session. Decide is pure: the same input always yields the same
// decision.
package access

import (
	"fmt"
	"net/url"

	auth "github.com/goliatone/go-classroom-auth"
)

const (
	RoleSelectionPath = "/select-role"
	AdminPath         = "/admin"
	HomePath          = "/"
	LoginPath         = "/login"
	RegisterPath      = "/register"
)

// Outcome is what the route renders.
type Outcome int

const (
	// Loading renders a placeholder without redirecting.
	Loading Outcome = iota
	// AuthPrompt asks the user to log in, register or dismiss.
	AuthPrompt
	// Redirect navigates to Decision.Path.
	Redirect
	// Denied renders an access denied view naming Decision.AllowedRoles.
	Denied
	// Allow renders the protected content.
	Allow
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case AuthPrompt:
		return "auth_prompt"
	case Redirect:
		return "redirect"
	case Denied:
		return "denied"
	case Allow:
		return "allow"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Input is the session snapshot and route configuration.
type Input struct {
	IsLoading       bool
	IsAuthenticated bool
	Role            auth.UserRole
	AllowedRoles    []auth.UserRole
	CurrentPath     string
}

// Decision is the result of Decide.
type Decision struct {
	Outcome      Outcome
	Path         string
	AllowedRoles []auth.UserRole
	Message      string
}

// Decide applies the gates in order: loading, authentication, role
// selection, allowed roles.
func Decide(in Input) Decision {
	if in.IsLoading {
		return Decision{Outcome: Loading}
	}

	if !in.IsAuthenticated {
		return Decision{Outcome: AuthPrompt}
	}

	if in.Role.IsUnset() {
		if in.CurrentPath == RoleSelectionPath {
			return Decision{Outcome: Allow}
		}
		return Decision{Outcome: Redirect, Path: RoleSelectionPath}
	}

	if len(in.AllowedRoles) > 0 && !in.Role.In(in.AllowedRoles...) {
		if in.Role == auth.RoleAdmin {
			return Decision{Outcome: Redirect, Path: AdminPath}
		}
		return Decision{
			Outcome:      Denied,
			AllowedRoles: in.AllowedRoles,
			Message:      DeniedMessage(in.AllowedRoles),
		}
	}

	return Decision{Outcome: Allow}
}

// DeniedMessage names the roles a surface is restricted to.
func DeniedMessage(roles []auth.UserRole) string {
	return "This page is only available to " + auth.JoinRoles(roles) + "."
}

// Navigation is where a prompt action goes. Back means go one entry back
// in history instead of to Path.
type Navigation struct {
	Back bool
	Path string
}

// Dismiss leaves the auth prompt: back in history when there is somewhere
// to go back to, home otherwise.
func Dismiss(historyLen int) Navigation {
	if historyLen > 1 {
		return Navigation{Back: true}
	}
	return Navigation{Path: HomePath}
}

// LoginTarget returns the login path carrying the page to come back to.
func LoginTarget(currentPath string) string {
	return withRedirect(LoginPath, currentPath)
}

// RegisterTarget returns the register path carrying the page to come back to.
func RegisterTarget(currentPath string) string {
	return withRedirect(RegisterPath, currentPath)
}

func withRedirect(base, currentPath string) string {
	if currentPath == "" || currentPath == HomePath {
		return base
	}
	return base + "?redirect=" + url.QueryEscape(currentPath)
}
