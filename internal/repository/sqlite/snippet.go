package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/nahid/snipvault/internal/apperror"
	"github.com/nahid/snipvault/internal/model"
	"github.com/nahid/snipvault/internal/repository"
)

// SnippetStore implements repository.SnippetRepository on top of a shared
// DB. It's a separate type from UserStore so each interface gets its own
// method set while both ride the same connection pool.
type SnippetStore struct {
	db *DB
}

func NewSnippetStore(db *DB) *SnippetStore {
	return &SnippetStore{db: db}
}

var _ repository.SnippetRepository = (*SnippetStore)(nil)

// snippetColumns is the SELECT list shared by every snippet query. The
// users join supplies the author projection so a listing needs no second
// round trip per row.
const snippetColumns = `s.id, s.title, s.description, s.code, s.language,
	s.author_id, s.is_public, s.is_forked, s.original_id, s.collection,
	s.views, s.created_at, s.updated_at, u.username, u.avatar`

func scanSnippet(row interface{ Scan(...any) error }) (*model.Snippet, error) {
	var (
		s        model.Snippet
		username string
		avatar   string
	)
	err := row.Scan(
		&s.ID, &s.Title, &s.Description, &s.Code, &s.Language,
		&s.AuthorID, &s.IsPublic, &s.IsForked, &s.OriginalID, &s.Collection,
		&s.Views, &s.CreatedAt, &s.UpdatedAt, &username, &avatar,
	)
	if err != nil {
		return nil, err
	}
	s.Author = &model.Author{ID: s.AuthorID, Username: username, Avatar: avatar}
	// Initialize so JSON renders [] rather than null even before the
	// association loaders run.
	s.Tags = []string{}
	s.ForkIDs = []string{}
	s.LikeIDs = []string{}
	return &s, nil
}

// Create inserts a new snippet, its tags, and its full-text index row in one
// transaction. The caller's struct receives the generated ID, the
// timestamps, and the author projection, so the creation response needs no
// follow-up read.
//
// Note there is no separate "append to parent's fork list" write for forks:
// the fork list is derived from original_id, so creating a fork IS the
// append. The two-step partial-failure window of a stored fork array simply
// doesn't exist here.
func (st *SnippetStore) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()
	now := time.Now().UTC()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	tx, err := st.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snippets (id, title, description, code, language, author_id,
			is_public, is_forked, original_id, collection, views, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		snippet.ID, snippet.Title, snippet.Description, snippet.Code,
		snippet.Language, snippet.AuthorID, snippet.IsPublic, snippet.IsForked,
		snippet.OriginalID, snippet.Collection, snippet.CreatedAt, snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	if err := insertTags(ctx, tx, snippet.ID, snippet.Tags); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snippets_fts (snippet_id, title, description) VALUES (?, ?, ?)`,
		snippet.ID, snippet.Title, snippet.Description,
	)
	if err != nil {
		return fmt.Errorf("sqlite: indexing snippet: %w", err)
	}

	var username, avatar string
	err = tx.QueryRowContext(ctx,
		`SELECT username, avatar FROM users WHERE id = ?`, snippet.AuthorID,
	).Scan(&username, &avatar)
	if err != nil {
		return fmt.Errorf("sqlite: loading author %s: %w", snippet.AuthorID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing snippet: %w", err)
	}

	snippet.Author = &model.Author{ID: snippet.AuthorID, Username: username, Avatar: avatar}
	snippet.Views = 0
	if snippet.Tags == nil {
		snippet.Tags = []string{}
	}
	snippet.ForkIDs = []string{}
	snippet.LikeIDs = []string{}
	return nil
}

func insertTags(ctx context.Context, tx *sql.Tx, snippetID string, tags []string) error {
	for i, tag := range tags {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO snippet_tags (snippet_id, position, tag) VALUES (?, ?, ?)`,
			snippetID, i, tag,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting tag %q: %w", tag, err)
		}
	}
	return nil
}

// GetByID retrieves a single snippet with its author projection, tags,
// like list, and fork list.
func (st *SnippetStore) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	row := st.db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+`
		 FROM snippets s
		 JOIN users u ON u.id = s.author_id
		 WHERE s.id = ?`,
		id,
	)

	snippet, err := scanSnippet(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	if err := st.loadAssociations(ctx, []*model.Snippet{snippet}); err != nil {
		return nil, err
	}
	return snippet, nil
}

// loadAssociations fills Tags, LikeIDs, and ForkIDs for a batch of snippets
// with one query per association instead of one per snippet.
func (st *SnippetStore) loadAssociations(ctx context.Context, snippets []*model.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}

	ids := make([]string, len(snippets))
	byID := make(map[string]*model.Snippet, len(snippets))
	for i, s := range snippets {
		ids[i] = s.ID
		byID[s.ID] = s
	}

	// Tags, in stored (caller) order.
	query, args, err := st.db.qb().
		Select("snippet_id", "tag").
		From("snippet_tags").
		Where(sq.Eq{"snippet_id": ids}).
		OrderBy("snippet_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building tags query: %w", err)
	}
	if err := st.collect(ctx, query, args, func(snippetID, value string) {
		byID[snippetID].Tags = append(byID[snippetID].Tags, value)
	}); err != nil {
		return fmt.Errorf("sqlite: loading tags: %w", err)
	}

	// Like lists, oldest like first.
	query, args, err = st.db.qb().
		Select("snippet_id", "user_id").
		From("snippet_likes").
		Where(sq.Eq{"snippet_id": ids}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building likes query: %w", err)
	}
	if err := st.collect(ctx, query, args, func(snippetID, value string) {
		byID[snippetID].LikeIDs = append(byID[snippetID].LikeIDs, value)
	}); err != nil {
		return fmt.Errorf("sqlite: loading likes: %w", err)
	}

	// Fork lists: children pointing back at these snippets, in creation
	// order, which makes the list append-only by construction.
	query, args, err = st.db.qb().
		Select("original_id", "id").
		From("snippets").
		Where(sq.Eq{"original_id": ids}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building forks query: %w", err)
	}
	if err := st.collect(ctx, query, args, func(originalID, value string) {
		byID[originalID].ForkIDs = append(byID[originalID].ForkIDs, value)
	}); err != nil {
		return fmt.Errorf("sqlite: loading forks: %w", err)
	}

	// Origin projections for forks. A dangling reference (origin deleted)
	// loads nothing and the projection stays nil, so the JSON field is
	// simply omitted.
	var originIDs []string
	seen := map[string]bool{}
	for _, s := range snippets {
		if s.OriginalID != "" && !seen[s.OriginalID] {
			seen[s.OriginalID] = true
			originIDs = append(originIDs, s.OriginalID)
		}
	}
	if len(originIDs) == 0 {
		return nil
	}

	query, args, err = st.db.qb().
		Select("o.id", "o.title", "o.author_id", "u.username", "u.avatar").
		From("snippets o").
		Join("users u ON u.id = o.author_id").
		Where(sq.Eq{"o.id": originIDs}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building origins query: %w", err)
	}
	rows, err := st.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: loading origins: %w", err)
	}
	defer rows.Close()

	origins := map[string]model.OriginRef{}
	for rows.Next() {
		var (
			ref                        model.OriginRef
			authorID, username, avatar string
		)
		if err := rows.Scan(&ref.ID, &ref.Title, &authorID, &username, &avatar); err != nil {
			return fmt.Errorf("sqlite: scanning origin row: %w", err)
		}
		ref.Author = &model.Author{ID: authorID, Username: username, Avatar: avatar}
		origins[ref.ID] = ref
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating origins: %w", err)
	}

	for _, s := range snippets {
		if ref, ok := origins[s.OriginalID]; ok {
			s.Original = &ref
		}
	}

	return nil
}

// collect runs a two-column query and feeds each (key, value) row to fn.
func (st *SnippetStore) collect(ctx context.Context, query string, args []any, fn func(key, value string)) error {
	rows, err := st.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		fn(key, value)
	}
	return rows.Err()
}

// List retrieves a filtered, sorted page of snippets plus pagination
// metadata. Out-of-range pages return an empty page, not an error.
func (st *SnippetStore) List(ctx context.Context, filter repository.SnippetFilter) ([]model.Snippet, repository.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	conds := snippetConditions(st.db.qb(), filter)

	// Total first — the pagination metadata needs it either way.
	countQuery := st.db.qb().Select("COUNT(*)").From("snippets s")
	for _, cond := range conds {
		countQuery = countQuery.Where(cond)
	}
	query, args, err := countQuery.ToSql()
	if err != nil {
		return nil, repository.Pagination{}, fmt.Errorf("sqlite: building count query: %w", err)
	}

	var total int
	if err := st.db.conn.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, repository.Pagination{}, fmt.Errorf("sqlite: counting snippets: %w", err)
	}

	pagination := paginate(page, limit, total)
	if total == 0 || page > pagination.TotalPages {
		return []model.Snippet{}, pagination, nil
	}

	listQuery := st.db.qb().
		Select(snippetColumns).
		From("snippets s").
		Join("users u ON u.id = s.author_id").
		OrderBy(orderClauses(filter.Sort, filter.Order)...).
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit))
	for _, cond := range conds {
		listQuery = listQuery.Where(cond)
	}
	query, args, err = listQuery.ToSql()
	if err != nil {
		return nil, repository.Pagination{}, fmt.Errorf("sqlite: building list query: %w", err)
	}

	snippets, err := st.querySnippets(ctx, query, args)
	if err != nil {
		return nil, repository.Pagination{}, err
	}
	return snippets, pagination, nil
}

// snippetConditions translates a SnippetFilter into WHERE conditions. All
// filters compose with AND.
func snippetConditions(qb sq.StatementBuilderType, filter repository.SnippetFilter) []sq.Sqlizer {
	var conds []sq.Sqlizer

	if filter.Search != "" {
		conds = append(conds, sq.Expr(
			`s.id IN (SELECT snippet_id FROM snippets_fts WHERE snippets_fts MATCH ?)`,
			ftsQuery(filter.Search),
		))
	}
	if filter.Language != "" {
		conds = append(conds, sq.Eq{"s.language": filter.Language})
	}
	if len(filter.Tags) > 0 {
		// Tag membership is "match any" — squirrel expands the nested
		// builder into an EXISTS subquery with an IN list.
		tagged := qb.Select("1").
			From("snippet_tags t").
			Where("t.snippet_id = s.id").
			Where(sq.Eq{"t.tag": filter.Tags})
		conds = append(conds, sq.Expr("EXISTS (?)", tagged))
	}
	if filter.Author != "" {
		conds = append(conds, sq.Eq{"s.author_id": filter.Author})
	}
	if filter.Collection != "" {
		conds = append(conds, sq.Eq{"s.collection": filter.Collection})
	}
	if filter.IsPublic != nil {
		conds = append(conds, sq.Eq{"s.is_public": *filter.IsPublic})
	}

	return conds
}

// ftsQuery turns free text into an FTS5 MATCH expression. Each term is
// quoted so user input can't inject FTS syntax, and terms are OR-ed to
// mimic the loose matching of a document store's text index.
func ftsQuery(search string) string {
	terms := strings.Fields(search)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// orderClauses maps the API sort field to SQL. Like count is computed from
// the like table, not a stored counter. created_at and id act as tie-breaks
// so ordering is total and stable across pages.
func orderClauses(sortField, order string) []string {
	direction := "DESC"
	if strings.EqualFold(order, "asc") {
		direction = "ASC"
	}

	var primary string
	switch sortField {
	case repository.SortViews:
		primary = "s.views " + direction
	case repository.SortLikes:
		primary = "(SELECT COUNT(*) FROM snippet_likes l WHERE l.snippet_id = s.id) " + direction
	default:
		return []string{"s.created_at " + direction, "s.id " + direction}
	}
	return []string{primary, "s.created_at DESC", "s.id DESC"}
}

func paginate(page, limit, total int) repository.Pagination {
	totalPages := (total + limit - 1) / limit
	return repository.Pagination{
		CurrentPage:   page,
		TotalPages:    totalPages,
		TotalSnippets: total,
		HasNext:       page < totalPages,
		HasPrev:       page > 1,
	}
}

func (st *SnippetStore) querySnippets(ctx context.Context, query string, args []any) ([]model.Snippet, error) {
	rows, err := st.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	var ptrs []*model.Snippet
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		ptrs = append(ptrs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	if err := st.loadAssociations(ctx, ptrs); err != nil {
		return nil, err
	}

	snippets := make([]model.Snippet, len(ptrs))
	for i, s := range ptrs {
		snippets[i] = *s
	}
	return snippets, nil
}

// Update persists the mutable columns plus the tag list and search index.
// Author, views, likes, and fork linkage are deliberately not part of the
// UPDATE — those never change through this path.
func (st *SnippetStore) Update(ctx context.Context, snippet *model.Snippet) error {
	snippet.UpdatedAt = time.Now().UTC()

	tx, err := st.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE snippets
		 SET title = ?, description = ?, code = ?, language = ?,
		     collection = ?, is_public = ?, updated_at = ?
		 WHERE id = ?`,
		snippet.Title, snippet.Description, snippet.Code, snippet.Language,
		snippet.Collection, snippet.IsPublic, snippet.UpdatedAt, snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	// Replace the tag list wholesale — simpler and cheaper than diffing.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snippet_tags WHERE snippet_id = ?`, snippet.ID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing tags for %s: %w", snippet.ID, err)
	}
	if err := insertTags(ctx, tx, snippet.ID, snippet.Tags); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snippets_fts WHERE snippet_id = ?`, snippet.ID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing index for %s: %w", snippet.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snippets_fts (snippet_id, title, description) VALUES (?, ?, ?)`,
		snippet.ID, snippet.Title, snippet.Description,
	); err != nil {
		return fmt.Errorf("sqlite: reindexing snippet %s: %w", snippet.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing snippet update: %w", err)
	}
	return nil
}

// Delete removes a snippet and its side-table rows. Forks of the snippet are
// untouched: their original_id keeps pointing at the deleted ID, which from
// then on resolves to NotFound.
func (st *SnippetStore) Delete(ctx context.Context, id string) error {
	tx, err := st.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Explicit deletes rather than relying on ON DELETE CASCADE — the
	// foreign_keys pragma is per-connection and the pool may hand this
	// transaction a connection that never ran it.
	for _, stmt := range []string{
		`DELETE FROM snippet_likes WHERE snippet_id = ?`,
		`DELETE FROM snippet_tags WHERE snippet_id = ?`,
		`DELETE FROM snippets_fts WHERE snippet_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing snippet delete: %w", err)
	}
	return nil
}

// IncrementViews adds exactly 1 to the view counter. A missing snippet is
// not an error here — the caller already served the read, and racing a
// delete is harmless.
func (st *SnippetStore) IncrementViews(ctx context.Context, id string) error {
	_, err := st.db.conn.ExecContext(ctx,
		`UPDATE snippets SET views = views + 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing views for %s: %w", id, err)
	}
	return nil
}

// ToggleLike flips userID's membership in the like set inside a single
// transaction: DELETE first, and if nothing was deleted, INSERT. The
// (snippet_id, user_id) primary key guarantees concurrent toggles by
// different users can't lose each other's vote.
func (st *SnippetStore) ToggleLike(ctx context.Context, id, userID string) (bool, int, error) {
	tx, err := st.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM snippet_likes WHERE snippet_id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return false, 0, fmt.Errorf("sqlite: removing like: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	liked := removed == 0
	if liked {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snippet_likes (snippet_id, user_id, created_at) VALUES (?, ?, ?)`,
			id, userID, time.Now().UTC(),
		); err != nil {
			return false, 0, fmt.Errorf("sqlite: adding like: %w", err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snippet_likes WHERE snippet_id = ?`, id,
	).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("sqlite: counting likes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("sqlite: committing like toggle: %w", err)
	}
	return liked, count, nil
}

// ListLikedBy returns the public snippets a user has liked, newest first.
// Snippets made private after being liked drop out of this feed; the like
// edge itself is kept.
func (st *SnippetStore) ListLikedBy(ctx context.Context, userID string, page, limit int) ([]model.Snippet, repository.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	var total int
	err := st.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM snippets s
		 JOIN snippet_likes sl ON sl.snippet_id = s.id
		 WHERE sl.user_id = ? AND s.is_public = 1`,
		userID,
	).Scan(&total)
	if err != nil {
		return nil, repository.Pagination{}, fmt.Errorf("sqlite: counting liked snippets: %w", err)
	}

	pagination := paginate(page, limit, total)
	if total == 0 || page > pagination.TotalPages {
		return []model.Snippet{}, pagination, nil
	}

	snippets, err := st.querySnippets(ctx,
		`SELECT `+snippetColumns+`
		 FROM snippets s
		 JOIN users u ON u.id = s.author_id
		 JOIN snippet_likes sl ON sl.snippet_id = s.id
		 WHERE sl.user_id = ? AND s.is_public = 1
		 ORDER BY s.created_at DESC, s.id DESC
		 LIMIT ? OFFSET ?`,
		[]any{userID, limit, (page - 1) * limit},
	)
	if err != nil {
		return nil, repository.Pagination{}, err
	}
	return snippets, pagination, nil
}

// LanguageCounts returns every language appearing on public snippets with
// its usage count, most used first.
func (st *SnippetStore) LanguageCounts(ctx context.Context) ([]repository.LanguageCount, error) {
	rows, err := st.db.conn.QueryContext(ctx,
		`SELECT language, COUNT(*) AS cnt
		 FROM snippets
		 WHERE is_public = 1
		 GROUP BY language
		 ORDER BY cnt DESC, language ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting languages: %w", err)
	}
	defer rows.Close()

	counts := []repository.LanguageCount{}
	for rows.Next() {
		var lc repository.LanguageCount
		if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning language count: %w", err)
		}
		counts = append(counts, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating language counts: %w", err)
	}
	return counts, nil
}

// TagCounts returns the most used tags across public snippets, capped at
// limit (the directory endpoint passes 50).
func (st *SnippetStore) TagCounts(ctx context.Context, limit int) ([]repository.TagCount, error) {
	rows, err := st.db.conn.QueryContext(ctx,
		`SELECT t.tag, COUNT(*) AS cnt
		 FROM snippet_tags t
		 JOIN snippets s ON s.id = t.snippet_id
		 WHERE s.is_public = 1
		 GROUP BY t.tag
		 ORDER BY cnt DESC, t.tag ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting tags: %w", err)
	}
	defer rows.Close()

	counts := []repository.TagCount{}
	for rows.Next() {
		var tc repository.TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag count: %w", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tag counts: %w", err)
	}
	return counts, nil
}

// StatsByAuthor scans the user's full snippet set (not a sample) and
// returns overall counters plus per-language and per-collection breakdowns.
func (st *SnippetStore) StatsByAuthor(ctx context.Context, userID string) (*repository.UserStats, error) {
	stats := &repository.UserStats{
		Languages:   []repository.LanguageCount{},
		Collections: []repository.CollectionCount{},
	}

	err := st.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(is_public), 0),
		        COALESCE(SUM(views), 0)
		 FROM snippets WHERE author_id = ?`,
		userID,
	).Scan(&stats.Overall.TotalSnippets, &stats.Overall.PublicSnippets, &stats.Overall.TotalViews)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating snippets for %s: %w", userID, err)
	}
	stats.Overall.PrivateSnippets = stats.Overall.TotalSnippets - stats.Overall.PublicSnippets

	// Sum of like-list sizes over the user's snippets.
	err = st.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM snippet_likes sl
		 JOIN snippets s ON s.id = sl.snippet_id
		 WHERE s.author_id = ?`,
		userID,
	).Scan(&stats.Overall.TotalLikes)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating likes for %s: %w", userID, err)
	}

	// Sum of fork-list sizes = number of snippets whose origin the user owns.
	err = st.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM snippets child
		 JOIN snippets parent ON parent.id = child.original_id
		 WHERE parent.author_id = ?`,
		userID,
	).Scan(&stats.Overall.TotalForks)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating forks for %s: %w", userID, err)
	}

	rows, err := st.db.conn.QueryContext(ctx,
		`SELECT language, COUNT(*) AS cnt
		 FROM snippets WHERE author_id = ?
		 GROUP BY language ORDER BY cnt DESC, language ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: grouping languages for %s: %w", userID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var lc repository.LanguageCount
		if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning language group: %w", err)
		}
		stats.Languages = append(stats.Languages, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating language groups: %w", err)
	}

	rows, err = st.db.conn.QueryContext(ctx,
		`SELECT collection, COUNT(*) AS cnt
		 FROM snippets WHERE author_id = ?
		 GROUP BY collection ORDER BY cnt DESC, collection ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: grouping collections for %s: %w", userID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var cc repository.CollectionCount
		if err := rows.Scan(&cc.Collection, &cc.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning collection group: %w", err)
		}
		stats.Collections = append(stats.Collections, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating collection groups: %w", err)
	}

	return stats, nil
}
