// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Identity comes in two flavours: username/password registration (the
// PasswordHash is a bcrypt hash, never the plaintext) and GitHub OAuth
// (GitHubID holds GitHub's numeric user ID and PasswordHash stays empty).
// Either way we generate our own internal string ID (xid) so primary keys
// are never tied to a third party's numbering scheme.
//
// WHY `json:"-"` ON PasswordHash?
// The hash must never appear in an API response, no matter which handler
// serializes the user. Excluding it at the struct level is safer than
// remembering to strip it in every handler.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"-"` // 0 for local accounts
	Avatar       string    `json:"avatar"`
	Bio          string    `json:"bio"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AsAuthor returns the minimal projection of this user that is embedded in
// snippet responses.
func (u *User) AsAuthor() *Author {
	return &Author{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
	}
}
