package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nahid/snipvault/internal/apperror"
	"github.com/nahid/snipvault/internal/model"
	"github.com/nahid/snipvault/internal/repository"
)

// ProfileStats is the public subset of a user's statistics shown on their
// profile page. Unlike the full Stats document it hides nothing private —
// all four numbers are derivable from the user's public presence plus a
// total count.
type ProfileStats struct {
	TotalSnippets  int   `json:"totalSnippets"`
	PublicSnippets int   `json:"publicSnippets"`
	TotalViews     int64 `json:"totalViews"`
	TotalLikes     int64 `json:"totalLikes"`
}

// Profile is a user's public profile page: the user, a page of their
// public snippets, and summary stats.
type Profile struct {
	User       *model.User
	Snippets   []model.Snippet
	Pagination repository.Pagination
	Stats      ProfileStats
}

// UserService implements profiles, user search and statistics.
type UserService struct {
	users    repository.UserRepository
	snippets repository.SnippetRepository
	logger   *slog.Logger
}

func NewUserService(users repository.UserRepository, snippets repository.SnippetRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:    users,
		snippets: snippets,
		logger:   logger,
	}
}

// Profile assembles a public profile by username. Anyone may call it; only
// public snippets appear, and the email is stripped from the returned
// user.
func (s *UserService) Profile(ctx context.Context, username string, page, limit int) (*Profile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	user.Email = ""

	public := true
	snippets, pagination, err := s.snippets.List(ctx, repository.SnippetFilter{
		Author:   user.ID,
		IsPublic: &public,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing profile snippets: %w", err)
	}

	stats, err := s.snippets.StatsByAuthor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("computing profile stats: %w", err)
	}

	return &Profile{
		User:       user,
		Snippets:   snippets,
		Pagination: pagination,
		Stats: ProfileStats{
			TotalSnippets:  stats.Overall.TotalSnippets,
			PublicSnippets: stats.Overall.PublicSnippets,
			TotalViews:     stats.Overall.TotalViews,
			TotalLikes:     stats.Overall.TotalLikes,
		},
	}, nil
}

// Stats returns the full statistics document for a user. Self only: the
// breakdown includes private snippet counts, so nobody else may read it.
func (s *UserService) Stats(ctx context.Context, requesterID, userID string) (*repository.UserStats, error) {
	if requesterID != userID {
		return nil, apperror.Forbidden("access denied")
	}

	stats, err := s.snippets.StatsByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}
	return stats, nil
}

// Search finds users by partial username match. Queries under two
// characters are rejected rather than returning the whole user table.
// Emails are stripped from results. limit defaults to 10 when unset; the
// repository caps it at 50.
func (s *UserService) Search(ctx context.Context, query string, limit int) ([]model.User, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, apperror.ValidationFailed("q", "search query must be at least 2 characters")
	}
	if limit <= 0 {
		limit = 10
	}

	users, err := s.users.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	for i := range users {
		users[i].Email = ""
	}
	return users, nil
}

// UpdateProfile changes the caller's own avatar and bio. Username, email
// and credentials are not editable through this path.
func (s *UserService) UpdateProfile(ctx context.Context, userID, avatar, bio string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Avatar = strings.TrimSpace(avatar)
	user.Bio = strings.TrimSpace(bio)

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	s.logger.Info("profile updated", "user_id", userID)
	return user, nil
}
