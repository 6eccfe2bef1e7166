// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import (
	"strings"
	"time"
)

// Validation bounds for snippet fields. The same numbers are enforced at the
// HTTP boundary (internal/validate) and in the service layer, so non-HTTP
// callers get the same rules.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MaxCollectionLength  = 50
)

// DefaultCollection is the collection label a snippet gets when the caller
// doesn't name one.
const DefaultCollection = "uncategorized"

// ForkCollection is the collection label assigned to forked snippets.
const ForkCollection = "forks"

// Author is the minimal projection of a User that rides along with a snippet
// in API responses. Never include email or anything sensitive here — this is
// shown next to public snippets.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// OriginRef is the projection of a fork's origin carried on the fork:
// enough to link back and credit the source, nothing more.
type OriginRef struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Author *Author `json:"author,omitempty"`
}

// Snippet represents a saved code snippet.
//
// The `json:"..."` tags mirror the API wire format: `language` on the wire
// maps to the Language field, `snippetCollection` to Collection, and so on.
//
// RELATIONSHIP FIELDS:
//   - AuthorID is the owning user and never changes after creation. The
//     Author projection is filled in by the repository (a join) so responses
//     don't need a second round trip.
//   - OriginalID is set exactly when IsForked is true. It intentionally has
//     no referential integrity: a fork outlives its origin, and the reference
//     simply stops resolving after the origin is deleted. The Original
//     projection resolves it while the origin still exists; afterwards it
//     stays nil and originalSnippet drops out of responses.
//   - ForkIDs and LikeIDs are derived lists (children pointing at this
//     snippet, users who liked it). They are loaded by the repository, never
//     written directly.
type Snippet struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Code        string     `json:"code"`
	Language    string     `json:"language"`
	Tags        []string   `json:"tags"`
	AuthorID    string     `json:"-"`
	Author      *Author    `json:"author,omitempty"`
	IsPublic    bool       `json:"isPublic"`
	IsForked    bool       `json:"isForked"`
	OriginalID  string     `json:"-"`
	Original    *OriginRef `json:"originalSnippet,omitempty"`
	ForkIDs     []string   `json:"forks"`
	LikeIDs     []string   `json:"likes"`
	Views       int64      `json:"views"`
	Collection  string     `json:"snippetCollection"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// LikeCount returns the number of users who currently like this snippet.
// Derived from the like list, not a stored counter.
func (s *Snippet) LikeCount() int {
	return len(s.LikeIDs)
}

// LikedBy reports whether the given user is in the like list.
func (s *Snippet) LikedBy(userID string) bool {
	for _, id := range s.LikeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// NormalizeTags lowercases and trims each tag and drops empty ones.
// Order is preserved and duplicates are NOT removed — the stored list is
// exactly what the caller sent, normalized per item.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		normalized = append(normalized, tag)
	}
	return normalized
}
