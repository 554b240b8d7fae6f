// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an account. It is created either by local signup or by the
// first GitHub OAuth callback, and refreshed on every GitHub re-link.
//
// IDENTITY:
// Email is globally unique. GitHubID is unique when present and nil for
// password-only accounts (and for the dev-login mock account).
//
// SECRETS:
// PasswordHash and AccessToken are tagged `json:"-"` so they can never leak
// into an API response. AccessToken holds the plaintext token in memory only;
// the repository seals it before it reaches the database.
type User struct {
	ID           string    `json:"id"`
	GitHubID     *int64    `json:"githubId,omitempty"`
	Username     string    `json:"username"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AccessToken  string    `json:"-"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	LastSynced   time.Time `json:"lastSynced"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasGitHubToken reports whether the account holds a GitHub credential.
func (u *User) HasGitHubToken() bool {
	return u != nil && u.AccessToken != ""
}

// ConnectionStatus is the payload of GET /api/github/connection-status.
// Message is set when the credential is rejected or could not be checked.
type ConnectionStatus struct {
	Connected      bool       `json:"connected"`
	NeedsReconnect bool       `json:"needsReconnect"`
	Username       string     `json:"username"`
	AvatarURL      string     `json:"avatarUrl"`
	IsMockAccount  bool       `json:"isMockAccount"`
	LastSynced     *time.Time `json:"lastSynced"`
	Message        string     `json:"message,omitempty"`
}
