package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahid/snipvault/internal/apperror"
	"github.com/nahid/snipvault/internal/model"
)

// mockUserRepo is an in-memory repository.UserRepository.
type mockUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) {
			return apperror.Conflict("username is already taken")
		}
		if strings.EqualFold(u.Email, user.Email) {
			return apperror.Conflict("email is already registered")
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored.Avatar = user.Avatar
	stored.Bio = user.Bio
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockUserRepo) Search(_ context.Context, query string, limit int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []model.User{}
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(query)) {
			result = append(result, *u)
		}
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *mockUserRepo) UpsertGitHub(_ context.Context, user *model.User) error {
	m.mu.Lock()
	for id, u := range m.users {
		if u.GitHubID == user.GitHubID {
			u.Avatar = user.Avatar
			*user = *u
			user.ID = id
			m.mu.Unlock()
			return nil
		}
	}
	m.mu.Unlock()
	return m.Create(context.Background(), user)
}

func newTestUserService() (*UserService, *mockUserRepo, *mockSnippetRepo) {
	users := newMockUserRepo()
	snippets := newMockSnippetRepo()
	return NewUserService(users, snippets, testLogger()), users, snippets
}

func seedUser(t *testing.T, repo *mockUserRepo, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestProfile(t *testing.T) {
	svc, users, snippets := newTestUserService()
	user := seedUser(t, users, "alice")

	pub := &model.Snippet{Title: "public", Code: "x", Language: "go", AuthorID: user.ID, IsPublic: true, Views: 7}
	require.NoError(t, snippets.Create(context.Background(), pub))
	priv := &model.Snippet{Title: "private", Code: "x", Language: "go", AuthorID: user.ID}
	require.NoError(t, snippets.Create(context.Background(), priv))

	profile, err := svc.Profile(context.Background(), "alice", 1, 10)
	require.NoError(t, err)

	assert.Empty(t, profile.User.Email, "profile responses never expose the email")
	require.Len(t, profile.Snippets, 1, "only public snippets appear on a profile")
	assert.Equal(t, "public", profile.Snippets[0].Title)
	assert.Equal(t, 2, profile.Stats.TotalSnippets)
	assert.Equal(t, 1, profile.Stats.PublicSnippets)
}

func TestProfileUnknownUser(t *testing.T) {
	svc, _, _ := newTestUserService()
	_, err := svc.Profile(context.Background(), "ghost", 1, 10)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStatsSelfOnly(t *testing.T) {
	svc, users, _ := newTestUserService()
	user := seedUser(t, users, "alice")

	_, err := svc.Stats(context.Background(), user.ID, user.ID)
	assert.NoError(t, err)

	_, err = svc.Stats(context.Background(), "somebody-else", user.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestSearchMinimumLength(t *testing.T) {
	svc, _, _ := newTestUserService()

	for _, q := range []string{"", "a", " a "} {
		_, err := svc.Search(context.Background(), q, 10)
		assert.ErrorIs(t, err, apperror.ErrValidation, "query %q", q)
	}
}

func TestSearchStripsEmails(t *testing.T) {
	svc, users, _ := newTestUserService()
	seedUser(t, users, "alice")
	seedUser(t, users, "alicia")
	seedUser(t, users, "bob")

	found, err := svc.Search(context.Background(), "ali", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	for _, u := range found {
		assert.Empty(t, u.Email)
	}
}

func TestSearchHonorsLimit(t *testing.T) {
	svc, users, _ := newTestUserService()
	seedUser(t, users, "alice")
	seedUser(t, users, "alicia")
	seedUser(t, users, "alison")

	found, err := svc.Search(context.Background(), "ali", 2)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	// Zero falls back to the default rather than returning nothing.
	found, err = svc.Search(context.Background(), "ali", 0)
	require.NoError(t, err)
	assert.Len(t, found, 3)
}

func TestUpdateProfile(t *testing.T) {
	svc, users, _ := newTestUserService()
	user := seedUser(t, users, "alice")

	updated, err := svc.UpdateProfile(context.Background(), user.ID, " https://example.com/a.png ", " systems person ")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/a.png", updated.Avatar)
	assert.Equal(t, "systems person", updated.Bio)
	assert.Equal(t, "alice", updated.Username, "username is not editable here")
}
