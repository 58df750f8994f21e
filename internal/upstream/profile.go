// Package upstream talks to the repository manager being proxied: it
// verifies credentials against its user-lookup endpoint and models the
// profile documents it returns.
package upstream

// Profile is the user document returned by the upstream's per-user lookup
// endpoint. The payload nests everything under "data".
type Profile struct {
	Data ProfileData `json:"data"`
}

// ProfileData carries the identity and role list the gateway cares about.
// Extra upstream fields are ignored on decode.
type ProfileData struct {
	UserID string   `json:"userId"`
	Name   string   `json:"name,omitempty"`
	Email  string   `json:"email,omitempty"`
	Status string   `json:"status,omitempty"`
	Roles  []string `json:"roles"`
}
