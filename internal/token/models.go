// Package token owns the username -> bearer token mapping and its lifecycle.
package token

// Created is the reply for a create-token request.
type Created struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// List is the reply for a list-tokens request.
type List struct {
	Username string   `json:"username"`
	Tokens   []string `json:"tokens"`
}

// Users is the reply for a list-users request. Usernames are distinct
// across all stored tokens.
type Users struct {
	Users []string `json:"users"`
}

// Deleted is the reply for delete-token and delete-user-tokens requests.
type Deleted struct {
	Success string `json:"success"`
}
