package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/nahid/snipvault/internal/apperror"
	"github.com/nahid/snipvault/internal/auth"
	"github.com/nahid/snipvault/internal/model"
	"github.com/nahid/snipvault/internal/repository"
)

// AuthResult is what a successful register or login hands back: the user
// and a fresh access token.
type AuthResult struct {
	User  *model.User
	Token string
}

// AuthService implements registration, login and token validation.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func NewAuthService(users repository.UserRepository, passwords *auth.PasswordService, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// Register creates a local account and logs it in. Username and email
// uniqueness is enforced by the store; a clash surfaces as a 409.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "invalid password")
	}

	user := &model.User{
		Username:     strings.TrimSpace(username),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &AuthResult{User: user, Token: token}, nil
}

// Login authenticates by username or email plus password. All failure
// modes — unknown identifier, OAuth-only account, wrong password — report
// the same message, so a caller can't probe which accounts exist.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, identifier)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		user, err = s.users.GetByEmail(ctx, strings.ToLower(identifier))
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.Unauthenticated("invalid credentials")
			}
			return nil, err
		}
	}

	if user.PasswordHash == "" {
		// GitHub-only account, no password to check.
		return nil, apperror.Unauthenticated("invalid credentials")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthenticated("invalid credentials")
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID loads the authenticated user, for /api/auth/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// ValidateToken resolves a raw token string to a user ID.
func (s *AuthService) ValidateToken(token string) (string, error) {
	return s.tokens.Validate(token)
}

// LoginOrRegisterGitHub completes a GitHub OAuth login: the account is
// keyed on GitHub's numeric user ID, created on first login and refreshed
// after. If the GitHub login name is already taken by a local account, a
// random suffix is appended once.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	email := strings.ToLower(ghUser.Email)
	if email == "" {
		// GitHub hides the email when the user opts out; fall back to the
		// noreply address so the unique email column stays satisfied.
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, strings.ToLower(ghUser.Login))
	}

	user := &model.User{
		Username: ghUser.Login,
		Email:    email,
		GitHubID: ghUser.ID,
		Avatar:   ghUser.AvatarURL,
	}

	err := s.users.UpsertGitHub(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		user.Username = fmt.Sprintf("%s-%s", ghUser.Login, xid.New().String()[:8])
		err = s.users.UpsertGitHub(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("upserting GitHub user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("github login", "user_id", user.ID, "github_id", ghUser.ID)
	return &AuthResult{User: user, Token: token}, nil
}
