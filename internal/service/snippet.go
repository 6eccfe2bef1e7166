// Package service implements the business logic: validation, access
// control, and orchestration between repositories. Services accept
// interfaces and return model structs, so handlers and tests can swap
// storage freely.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nahid/snipvault/internal/apperror"
	"github.com/nahid/snipvault/internal/cache"
	"github.com/nahid/snipvault/internal/model"
	"github.com/nahid/snipvault/internal/repository"
)

// Cache keys and TTL for the public directories. Sixty seconds keeps the
// directories hot under load while staying fresh enough that a newly
// created snippet shows up quickly.
const (
	cacheKeyLanguages = "directory:languages"
	cacheKeyTags      = "directory:tags"
	directoryTTL      = 60 * time.Second

	tagDirectoryLimit = 50
)

// SnippetService implements snippet creation, retrieval, listing, editing,
// forking and liking, including all visibility rules.
type SnippetService struct {
	snippets repository.SnippetRepository
	cache    *cache.Client
	logger   *slog.Logger
}

// NewSnippetService creates a SnippetService. cache may be nil, which
// disables directory caching.
func NewSnippetService(snippets repository.SnippetRepository, c *cache.Client, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		snippets: snippets,
		cache:    c,
		logger:   logger,
	}
}

// CreateSnippetInput carries the caller-controlled fields of a new snippet.
type CreateSnippetInput struct {
	Title       string
	Description string
	Code        string
	Language    string
	Tags        []string
	IsPublic    bool
	Collection  string
}

// UpdateSnippetInput carries a partial update. Nil pointer = field not
// present in the request = leave it alone. This is how we tell "clear the
// description" (pointer to "") apart from "don't touch the description"
// (nil).
type UpdateSnippetInput struct {
	Title       *string
	Description *string
	Code        *string
	Language    *string
	Tags        *[]string
	IsPublic    *bool
	Collection  *string
}

// Create validates the input and stores a new snippet owned by authorID.
func (s *SnippetService) Create(ctx context.Context, authorID string, input CreateSnippetInput) (*model.Snippet, error) {
	if err := validateSnippetFields(input.Title, input.Description, input.Code, input.Language, input.Collection); err != nil {
		return nil, err
	}

	collection := strings.TrimSpace(input.Collection)
	if collection == "" {
		collection = model.DefaultCollection
	}

	snippet := &model.Snippet{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Code:        input.Code,
		Language:    input.Language,
		Tags:        model.NormalizeTags(input.Tags),
		AuthorID:    authorID,
		IsPublic:    input.IsPublic,
		Collection:  collection,
	}

	if err := s.snippets.Create(ctx, snippet); err != nil {
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		"snippet_id", snippet.ID,
		"author_id", authorID,
		"language", snippet.Language,
		"public", snippet.IsPublic)

	return snippet, nil
}

// Get retrieves a single snippet, enforcing visibility: a private snippet
// is only visible to its owner. Everyone else — including anonymous
// callers — gets a 403, not a 404: the existence of a private snippet at a
// guessable ID is not considered secret, its content is.
//
// Every successful read bumps the view counter asynchronously, the
// owner's reads included; the returned snippet carries the pre-increment
// count.
func (s *SnippetService) Get(ctx context.Context, requesterID, id string) (*model.Snippet, error) {
	snippet, err := s.snippets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !snippet.IsPublic && snippet.AuthorID != requesterID {
		return nil, apperror.Forbidden("access denied")
	}

	go s.incrementViews(context.WithoutCancel(ctx), id)

	return snippet, nil
}

// incrementViews runs off the request goroutine; a failure only costs one
// view count, so it's logged and dropped.
func (s *SnippetService) incrementViews(ctx context.Context, id string) {
	if err := s.snippets.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("incrementing views failed", "snippet_id", id, "error", err)
	}
}

// List returns a page of public snippets matching the filter. The
// visibility filter is forced to public regardless of what the caller
// passed — the public feed never leaks private work, even the requester's
// own. Every other filter, the author filter included, composes freely.
func (s *SnippetService) List(ctx context.Context, filter repository.SnippetFilter) ([]model.Snippet, repository.Pagination, error) {
	public := true
	filter.IsPublic = &public
	return s.snippets.List(ctx, filter)
}

// ListMine returns a page of the authenticated user's own snippets,
// private ones included. filter.IsPublic passes through so the owner can
// narrow to just public or just private.
func (s *SnippetService) ListMine(ctx context.Context, userID string, filter repository.SnippetFilter) ([]model.Snippet, repository.Pagination, error) {
	filter.Author = userID
	return s.snippets.List(ctx, filter)
}

// ListByAuthor returns a page of a given user's public snippets, for
// profile pages.
func (s *SnippetService) ListByAuthor(ctx context.Context, authorID string, page, limit int) ([]model.Snippet, repository.Pagination, error) {
	public := true
	return s.snippets.List(ctx, repository.SnippetFilter{
		Author:   authorID,
		IsPublic: &public,
		Page:     page,
		Limit:    limit,
	})
}

// Update applies a partial update to a snippet. Only the owner may edit;
// anyone else gets a 403 and the snippet is untouched. Ownership, view
// counts, likes, forks and the fork marker cannot be changed through this
// path.
func (s *SnippetService) Update(ctx context.Context, userID, id string, input UpdateSnippetInput) (*model.Snippet, error) {
	snippet, err := s.snippets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if snippet.AuthorID != userID {
		return nil, apperror.Forbidden("you can only edit your own snippets")
	}

	if input.Title != nil {
		snippet.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		snippet.Description = strings.TrimSpace(*input.Description)
	}
	if input.Code != nil {
		snippet.Code = *input.Code
	}
	if input.Language != nil {
		snippet.Language = *input.Language
	}
	if input.Tags != nil {
		snippet.Tags = model.NormalizeTags(*input.Tags)
	}
	if input.IsPublic != nil {
		snippet.IsPublic = *input.IsPublic
	}
	if input.Collection != nil {
		collection := strings.TrimSpace(*input.Collection)
		if collection == "" {
			collection = model.DefaultCollection
		}
		snippet.Collection = collection
	}

	if err := validateSnippetFields(snippet.Title, snippet.Description, snippet.Code, snippet.Language, snippet.Collection); err != nil {
		return nil, err
	}

	if err := s.snippets.Update(ctx, snippet); err != nil {
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated", "snippet_id", id, "author_id", userID)
	return snippet, nil
}

// Delete removes a snippet. Owner only. Forks of the deleted snippet
// survive; their origin reference simply stops resolving.
func (s *SnippetService) Delete(ctx context.Context, userID, id string) error {
	snippet, err := s.snippets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if snippet.AuthorID != userID {
		return apperror.Forbidden("you can only delete your own snippets")
	}

	if err := s.snippets.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting snippet: %w", err)
	}

	s.logger.Info("snippet deleted", "snippet_id", id, "author_id", userID)
	return nil
}

// Fork creates the requester's own private copy of a public snippet.
// Private snippets cannot be forked by anyone — not even their owner, who
// has no use for a fork of their own private work.
//
// The copy starts private, in the "forks" collection, with fresh counters,
// titled "<original title> (Fork)".
func (s *SnippetService) Fork(ctx context.Context, userID, id string) (*model.Snippet, error) {
	original, err := s.snippets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !original.IsPublic {
		return nil, apperror.Forbidden("cannot fork private snippets")
	}

	fork := &model.Snippet{
		Title:       original.Title + " (Fork)",
		Description: original.Description,
		Code:        original.Code,
		Language:    original.Language,
		Tags:        append([]string(nil), original.Tags...),
		AuthorID:    userID,
		IsPublic:    false,
		IsForked:    true,
		OriginalID:  original.ID,
		Original: &model.OriginRef{
			ID:     original.ID,
			Title:  original.Title,
			Author: original.Author,
		},
		Collection: model.ForkCollection,
	}

	if err := s.snippets.Create(ctx, fork); err != nil {
		return nil, fmt.Errorf("forking snippet: %w", err)
	}

	s.logger.Info("snippet forked",
		"original_id", original.ID,
		"fork_id", fork.ID,
		"user_id", userID)

	return fork, nil
}

// ToggleLike flips the requester's like on a public snippet and returns
// the new state. Liking twice is a no-op pair: the second call undoes the
// first.
func (s *SnippetService) ToggleLike(ctx context.Context, userID, id string) (liked bool, count int, err error) {
	snippet, err := s.snippets.GetByID(ctx, id)
	if err != nil {
		return false, 0, err
	}
	if !snippet.IsPublic {
		return false, 0, apperror.Forbidden("cannot like private snippets")
	}

	liked, count, err = s.snippets.ToggleLike(ctx, id, userID)
	if err != nil {
		return false, 0, fmt.Errorf("toggling like: %w", err)
	}
	return liked, count, nil
}

// ListLiked returns a page of public snippets the user has liked. Snippets
// that went private after being liked are filtered out.
func (s *SnippetService) ListLiked(ctx context.Context, userID string, page, limit int) ([]model.Snippet, repository.Pagination, error) {
	return s.snippets.ListLikedBy(ctx, userID, page, limit)
}

// Languages returns the public language directory: every language in use
// across public snippets with its count, sorted by count descending.
// Served from cache when possible.
func (s *SnippetService) Languages(ctx context.Context) ([]repository.LanguageCount, error) {
	if raw := s.cache.Get(ctx, cacheKeyLanguages); raw != nil {
		var cached []repository.LanguageCount
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	counts, err := s.snippets.LanguageCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting languages: %w", err)
	}

	if raw, err := json.Marshal(counts); err == nil {
		s.cache.Set(ctx, cacheKeyLanguages, raw, directoryTTL)
	}
	return counts, nil
}

// Tags returns the public tag directory: the most-used tags across public
// snippets, capped at 50, sorted by count descending. Served from cache
// when possible.
func (s *SnippetService) Tags(ctx context.Context) ([]repository.TagCount, error) {
	if raw := s.cache.Get(ctx, cacheKeyTags); raw != nil {
		var cached []repository.TagCount
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	counts, err := s.snippets.TagCounts(ctx, tagDirectoryLimit)
	if err != nil {
		return nil, fmt.Errorf("counting tags: %w", err)
	}

	if raw, err := json.Marshal(counts); err == nil {
		s.cache.Set(ctx, cacheKeyTags, raw, directoryTTL)
	}
	return counts, nil
}

// validateSnippetFields enforces the field rules shared by Create and
// Update. Errors accumulate so a sloppy request reports everything wrong
// at once.
func validateSnippetFields(title, description, code, language, collection string) error {
	var fields []apperror.FieldError

	title = strings.TrimSpace(title)
	if title == "" {
		fields = append(fields, apperror.FieldError{Field: "title", Message: "title is required"})
	} else if len(title) > model.MaxTitleLength {
		fields = append(fields, apperror.FieldError{
			Field:   "title",
			Message: fmt.Sprintf("title must be %d characters or fewer", model.MaxTitleLength),
		})
	}

	if len(description) > model.MaxDescriptionLength {
		fields = append(fields, apperror.FieldError{
			Field:   "description",
			Message: fmt.Sprintf("description must be %d characters or fewer", model.MaxDescriptionLength),
		})
	}

	if code == "" {
		fields = append(fields, apperror.FieldError{Field: "code", Message: "code is required"})
	}

	if !model.ValidLanguage(language) {
		fields = append(fields, apperror.FieldError{
			Field:   "language",
			Message: fmt.Sprintf("unsupported language %q", language),
		})
	}

	if len(collection) > model.MaxCollectionLength {
		fields = append(fields, apperror.FieldError{
			Field:   "snippetCollection",
			Message: fmt.Sprintf("collection must be %d characters or fewer", model.MaxCollectionLength),
		})
	}

	if len(fields) > 0 {
		return apperror.ValidationErrors(fields)
	}
	return nil
}
