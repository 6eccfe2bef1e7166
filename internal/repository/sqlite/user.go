package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/nahid/snipvault/internal/apperror"
	"github.com/nahid/snipvault/internal/model"
	"github.com/nahid/snipvault/internal/repository"
)

// UserStore implements repository.UserRepository on top of a shared DB.
type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

var _ repository.UserRepository = (*UserStore)(nil)

const userColumns = `id, username, email, password_hash, github_id, avatar, bio, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &githubID,
		&u.Avatar, &u.Bio, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64
	return &u, nil
}

// Create inserts a new user. Username and email collide case-insensitively
// (COLLATE NOCASE on both columns); collisions surface as apperror.Conflict
// so the handler can return 409 instead of a generic 500.
func (st *UserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := st.db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, github_id, avatar, bio, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		nullableGitHubID(user.GitHubID), user.Avatar, user.Bio,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if conflictErr := asConflict(err); conflictErr != nil {
			return conflictErr
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}
	return nil
}

// asConflict translates SQLite unique-constraint failures on the users
// table into field-specific Conflict errors, nil for anything else.
func asConflict(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "users.username"):
		return apperror.Conflict("username is already taken")
	case strings.Contains(msg, "users.email"):
		return apperror.Conflict("email is already registered")
	default:
		return apperror.Conflict("user already exists")
	}
}

func nullableGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func (st *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := st.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

func (st *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := st.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username,
	)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username %q: %w", username, err)
	}
	return user, nil
}

func (st *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := st.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// UpdateProfile persists the mutable profile fields (avatar, bio). Username,
// email, and the password hash don't change through this path.
func (st *UserStore) UpdateProfile(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := st.db.conn.ExecContext(ctx,
		`UPDATE users SET avatar = ?, bio = ?, updated_at = ? WHERE id = ?`,
		user.Avatar, user.Bio, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// Search finds users whose username contains the query, case-insensitive.
// LIKE wildcards in the query are escaped so they match literally.
func (st *UserStore) Search(ctx context.Context, query string, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := st.db.conn.QueryContext(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE username LIKE ? ESCAPE '\'
		 ORDER BY username ASC
		 LIMIT ?`,
		pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// UpsertGitHub inserts or refreshes a user keyed on their GitHub ID.
// First OAuth login creates the account; later logins refresh the avatar in
// case it changed on GitHub. The internal ID never changes across logins.
func (st *UserStore) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == 0 {
		return fmt.Errorf("sqlite: upserting user: github_id must be set")
	}

	var existingID string
	err := st.db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existingID != "" {
		user.ID = existingID
		user.UpdatedAt = time.Now().UTC()
		_, err = st.db.conn.ExecContext(ctx,
			`UPDATE users SET avatar = ?, updated_at = ? WHERE id = ?`,
			user.Avatar, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: refreshing user %s: %w", user.ID, err)
		}
		// Read back the canonical record so username/email reflect what's
		// stored, not what GitHub sent this time.
		stored, err := st.GetByID(ctx, user.ID)
		if err != nil {
			return err
		}
		*user = *stored
		return nil
	}

	if err := st.Create(ctx, user); err != nil {
		return err
	}
	return nil
}
