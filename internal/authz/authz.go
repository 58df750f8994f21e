// Package authz derives a caller's capabilities from an upstream profile.
// Pure functions only; no I/O.
package authz

import (
	"github.com/zanclus/nexus-auth-proxy/internal/upstream"
)

// AdminRole is the upstream role that grants administrative capability on
// the token-management API.
const AdminRole = "nx-admin"

// Access is the capability triple derived from a session's profile.
// The zero value is the fail-closed anonymous caller.
type Access struct {
	Authenticated bool
	Admin         bool
	Username      string
}

// Evaluate computes Access from a profile. A nil profile or one without a
// subject identifier yields the anonymous value.
func Evaluate(profile *upstream.Profile) Access {
	if profile == nil || profile.Data.UserID == "" {
		return Access{}
	}
	access := Access{
		Authenticated: true,
		Username:      profile.Data.UserID,
	}
	for _, role := range profile.Data.Roles {
		if role == AdminRole {
			access.Admin = true
			break
		}
	}
	return access
}

// CanActFor reports whether the caller may operate on username's tokens:
// admins always, others only on their own.
func (a Access) CanActFor(username string) bool {
	if a.Admin {
		return true
	}
	return a.Authenticated && a.Username == username
}
