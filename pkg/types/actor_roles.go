package types

import "strings"

// ActorRef identifies the caller of a command or query. The ID is the opaque
// user identifier resolved by the authentication layer; Role is the platform
// role attached to the actor's own account.
type ActorRef struct {
	ID   string
	Role string
}

// RoleName normalizes the actor role for comparisons.
func (a ActorRef) RoleName() string {
	return normalizeRole(a.Role)
}

// IsRole reports whether the actor matches the provided role.
func (a ActorRef) IsRole(role Role) bool {
	return a.RoleName() == string(role)
}

// IsAdmin reports whether the actor is a platform administrator.
func (a ActorRef) IsAdmin() bool {
	return a.IsRole(RoleAdmin)
}

// IsAdult reports whether the actor holds an adult (guardian-capable) account.
func (a ActorRef) IsAdult() bool {
	return a.IsRole(RoleAdult)
}

// IsChild reports whether the actor holds a child account.
func (a ActorRef) IsChild() bool {
	return a.IsRole(RoleChild)
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
