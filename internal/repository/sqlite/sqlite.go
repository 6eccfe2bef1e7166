// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere
// Go works, and it ships FTS5, which backs the snippet search.
//
// SCHEMA NOTES:
// Tags and likes live in side tables rather than serialized arrays so the
// store can answer "which snippets carry tag X" and "how many likes" with
// indexes instead of scans. The fork list is not stored at all: a fork
// carries its origin's ID (original_id), so a snippet's fork list is simply
// the set of children pointing at it. That makes fork creation a single
// INSERT — there is no create-then-append pair to get half way through.
package sqlite

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	// Blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool shared by the stores. SnippetStore
// (snippet.go) and UserStore (user.go) implement the repository interfaces
// on top of it.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty
	// database, so pin the pool to a single connection.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Ping forces an immediate connection so a bad path or permissions
	// problem surfaces here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight — essential for a
	// web server where listing queries race view/like updates.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// qb returns the squirrel statement builder configured for SQLite's `?`
// placeholders. Dynamic listing queries are assembled with it; fixed-shape
// statements stay as plain SQL strings.
func (db *DB) qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE COLLATE NOCASE,
			email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER,
			avatar        TEXT NOT NULL DEFAULT '',
			bio           TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(github_id) WHERE github_id IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// original_id deliberately has no foreign key: forks must survive the
	// deletion of their origin, keeping a dangling reference.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snippets (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			code        TEXT NOT NULL,
			language    TEXT NOT NULL,
			author_id   TEXT NOT NULL REFERENCES users(id),
			is_public   INTEGER NOT NULL DEFAULT 0,
			is_forked   INTEGER NOT NULL DEFAULT 0,
			original_id TEXT NOT NULL DEFAULT '',
			collection  TEXT NOT NULL DEFAULT 'uncategorized',
			views       INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snippets_author_id   ON snippets(author_id);
		CREATE INDEX IF NOT EXISTS idx_snippets_is_public   ON snippets(is_public);
		CREATE INDEX IF NOT EXISTS idx_snippets_language    ON snippets(language);
		CREATE INDEX IF NOT EXISTS idx_snippets_collection  ON snippets(collection);
		CREATE INDEX IF NOT EXISTS idx_snippets_created_at  ON snippets(created_at);
		CREATE INDEX IF NOT EXISTS idx_snippets_original_id ON snippets(original_id);
	`)
	if err != nil {
		return fmt.Errorf("creating snippets table: %w", err)
	}

	// position preserves caller order; no uniqueness on (snippet_id, tag)
	// because tags are intentionally not deduplicated.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snippet_tags (
			snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
			position   INTEGER NOT NULL,
			tag        TEXT NOT NULL,
			PRIMARY KEY (snippet_id, position)
		);
		CREATE INDEX IF NOT EXISTS idx_snippet_tags_tag ON snippet_tags(tag);
	`)
	if err != nil {
		return fmt.Errorf("creating snippet_tags table: %w", err)
	}

	// The (snippet_id, user_id) primary key is what makes like-toggle safe
	// under concurrency: a user can hold at most one like per snippet.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snippet_likes (
			snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL,
			PRIMARY KEY (snippet_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_snippet_likes_user_id ON snippet_likes(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating snippet_likes table: %w", err)
	}

	// Full-text index over title+description. Kept in sync by the snippet
	// repository inside the same transaction as the row it mirrors.
	_, err = db.conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS snippets_fts
			USING fts5(snippet_id UNINDEXED, title, description);
	`)
	if err != nil {
		return fmt.Errorf("creating snippets_fts table: %w", err)
	}

	return nil
}
