// Package repository declares the storage interfaces the service layer
// depends on, plus the filter and pagination types shared between the two.
// Concrete implementations live in subpackages (sqlite).
package repository

import (
	"context"

	"github.com/nahid/snipvault/internal/model"
)

// Sortable fields for snippet listings. "likes" is derived from the size of
// the like list, not a stored counter.
const (
	SortCreatedAt = "createdAt"
	SortViews     = "views"
	SortLikes     = "likes"
)

// SnippetFilter describes a filtered, sorted, paginated listing query.
// All filter fields are optional and compose with logical AND.
type SnippetFilter struct {
	Search     string   // full-text match against title+description
	Language   string   // exact language
	Tags       []string // match any of these tags
	Author     string   // exact author (user ID)
	Collection string   // exact collection label
	IsPublic   *bool    // nil = no visibility filter

	Sort  string // SortCreatedAt (default), SortViews, SortLikes
	Order string // "asc" or "desc" (default)
	Page  int    // 1-indexed
	Limit int    // page size
}

// Pagination is the listing metadata included in every paged response.
type Pagination struct {
	CurrentPage   int  `json:"currentPage"`
	TotalPages    int  `json:"totalPages"`
	TotalSnippets int  `json:"totalSnippets"`
	HasNext       bool `json:"hasNext"`
	HasPrev       bool `json:"hasPrev"`
}

// LanguageCount is one entry of the public language directory.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// TagCount is one entry of the public tag directory.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CollectionCount is one entry of a user's per-collection breakdown.
type CollectionCount struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
}

// OverallStats aggregates a user's complete snippet set.
type OverallStats struct {
	TotalSnippets   int   `json:"totalSnippets"`
	PublicSnippets  int   `json:"publicSnippets"`
	PrivateSnippets int   `json:"privateSnippets"`
	TotalViews      int64 `json:"totalViews"`
	TotalLikes      int64 `json:"totalLikes"`
	TotalForks      int64 `json:"totalForks"`
}

// UserStats is the full statistics document for a user: overall counters
// plus grouped counts by language and by collection, each sorted by count
// descending.
type UserStats struct {
	Overall     OverallStats      `json:"overall"`
	Languages   []LanguageCount   `json:"languages"`
	Collections []CollectionCount `json:"collections"`
}

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	List(ctx context.Context, filter SnippetFilter) ([]model.Snippet, Pagination, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error

	// IncrementViews adds 1 to the view counter. Callers treat it as
	// fire-and-forget; it must never be on a response's critical path.
	IncrementViews(ctx context.Context, id string) error

	// ToggleLike atomically adds userID to the like set if absent, or
	// removes it if present. Returns the resulting membership and count.
	ToggleLike(ctx context.Context, id, userID string) (liked bool, count int, err error)

	ListLikedBy(ctx context.Context, userID string, page, limit int) ([]model.Snippet, Pagination, error)
	LanguageCounts(ctx context.Context) ([]LanguageCount, error)
	TagCounts(ctx context.Context, limit int) ([]TagCount, error)
	StatsByAuthor(ctx context.Context, userID string) (*UserStats, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, user *model.User) error
	Search(ctx context.Context, query string, limit int) ([]model.User, error)

	// UpsertGitHub inserts or refreshes a user keyed on their GitHub ID.
	UpsertGitHub(ctx context.Context, user *model.User) error
}
