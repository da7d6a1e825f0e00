package auth

import "strings"

// UserRole is the user's role. The zero value means the user still has to
// pick one.
type UserRole string

const (
	// RoleUnset marks an account that has not selected a role yet
	RoleUnset UserRole = ""
	// RoleGuest can browse public course material
	RoleGuest UserRole = "guest"
	// RoleStudent enrolls in courses and takes quizzes
	RoleStudent UserRole = "student"
	// RoleInstructor authors courses, lessons and quizzes
	RoleInstructor UserRole = "instructor"
	// RoleAdmin manages the platform
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleGuest, RoleStudent, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsUnset reports whether a role still has to be selected.
func (r UserRole) IsUnset() bool {
	return r == RoleUnset
}

// IsSelectable reports whether a user may pick this role for themselves.
func (r UserRole) IsSelectable() bool {
	return r == RoleStudent || r == RoleInstructor
}

// In reports whether r is one of roles.
func (r UserRole) In(roles ...UserRole) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleGuest,
		RoleStudent,
		RoleInstructor,
		RoleAdmin,
	}
}

// SelectableRoles returns the roles offered on the role selection surface
func SelectableRoles() []UserRole {
	return []UserRole{RoleStudent, RoleInstructor}
}

// ParseRole safely parses a string into a UserRole type. The empty string
// parses to RoleUnset and is reported as valid.
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(strings.ToLower(strings.TrimSpace(roleStr)))
	if role == RoleUnset {
		return RoleUnset, true
	}
	return role, role.IsValid()
}

// JoinRoles renders roles as "a, b or c".
func JoinRoles(roles []UserRole) string {
	switch len(roles) {
	case 0:
		return ""
	case 1:
		return string(roles[0])
	}

	parts := make([]string, 0, len(roles)-1)
	for _, r := range roles[:len(roles)-1] {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ", ") + " or " + string(roles[len(roles)-1])
}
