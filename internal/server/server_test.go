package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahid/snipvault/internal/config"
)

// newTestServer builds the full stack — router, services, in-memory
// database — and serves it through httptest. These tests exercise the API
// exactly as a client would, JSON in and JSON out.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := New(&config.Config{
		DBPath:    ":memory:",
		JWTSecret: "test-secret-at-least-16-chars",
	}, logger)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// doJSON issues a request with an optional JSON body and bearer token, and
// decodes the JSON response into a generic map.
func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

// registerUser registers a fresh account and returns its token and user ID.
func registerUser(t *testing.T, ts *httptest.Server, username string) (token, userID string) {
	t.Helper()
	status, body := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, status, "register response: %v", body)
	token = body["token"].(string)
	userID = body["user"].(map[string]any)["id"].(string)
	return token, userID
}

func createSnippet(t *testing.T, ts *httptest.Server, token string, payload map[string]any) map[string]any {
	t.Helper()
	status, body := doJSON(t, ts, http.MethodPost, "/api/snippets", token, payload)
	require.Equal(t, http.StatusCreated, status, "create response: %v", body)
	return body["snippet"].(map[string]any)
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t)

	token, userID := registerUser(t, ts, "alice")

	status, body := doJSON(t, ts, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, userID, body["user"].(map[string]any)["id"])

	// Login with the same credentials.
	status, body = doJSON(t, ts, http.MethodPost, "/api/auth/login", "", map[string]any{
		"username": "alice",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	// Wrong password is a 401.
	status, _ = doJSON(t, ts, http.MethodPost, "/api/auth/login", "", map[string]any{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterValidationShape(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "x", // too short
		"email":    "not-an-email",
		"password": "123", // too short
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Len(t, body["errors"], 3, "all three bad fields reported at once: %v", body["errors"])
}

func TestSnippetLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token, userID := registerUser(t, ts, "alice")

	snippet := createSnippet(t, ts, token, map[string]any{
		"title":    "Worker pool",
		"code":     "go func(){}()",
		"language": "go",
		"tags":     []string{"  Concurrency ", "go"},
		"isPublic": true,
	})
	id := snippet["id"].(string)

	assert.Equal(t, []any{"concurrency", "go"}, snippet["tags"].([]any))
	assert.Equal(t, "uncategorized", snippet["snippetCollection"])
	author := snippet["author"].(map[string]any)
	assert.Equal(t, userID, author["id"])
	assert.Equal(t, "alice", author["username"])

	// Anonymous read works for a public snippet.
	status, body := doJSON(t, ts, http.MethodGet, "/api/snippets/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Worker pool", body["snippet"].(map[string]any)["title"])

	// Edit, then confirm the change.
	status, body = doJSON(t, ts, http.MethodPut, "/api/snippets/"+id, token, map[string]any{
		"title": "Worker pool v2",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Worker pool v2", body["snippet"].(map[string]any)["title"])

	// Delete, then the snippet is gone.
	status, _ = doJSON(t, ts, http.MethodDelete, "/api/snippets/"+id, token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, ts, http.MethodGet, "/api/snippets/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSnippetCreateRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodPost, "/api/snippets", "", map[string]any{
		"title": "x", "code": "y", "language": "go",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Authentication required", body["message"])
}

func TestPrivateSnippetAccess(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := registerUser(t, ts, "owner")
	otherToken, _ := registerUser(t, ts, "other")

	snippet := createSnippet(t, ts, ownerToken, map[string]any{
		"title": "secret", "code": "x", "language": "go", "isPublic": false,
	})
	id := snippet["id"].(string)

	// Owner sees it.
	status, _ := doJSON(t, ts, http.MethodGet, "/api/snippets/"+id, ownerToken, nil)
	assert.Equal(t, http.StatusOK, status)

	// Anonymous and other users get 403 — the ID's existence isn't hidden,
	// its content is.
	status, _ = doJSON(t, ts, http.MethodGet, "/api/snippets/"+id, "", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = doJSON(t, ts, http.MethodGet, "/api/snippets/"+id, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// It never appears in the public feed.
	status, body := doJSON(t, ts, http.MethodGet, "/api/snippets", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["snippets"], "private snippet leaked into the public feed")

	// But it does appear in the owner's own listing.
	status, body = doJSON(t, ts, http.MethodGet, "/api/snippets/my", ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["snippets"], 1)
}

func TestEditingSomeoneElsesSnippet(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := registerUser(t, ts, "owner")
	otherToken, _ := registerUser(t, ts, "other")

	snippet := createSnippet(t, ts, ownerToken, map[string]any{
		"title": "mine", "code": "x", "language": "go", "isPublic": true,
	})
	id := snippet["id"].(string)

	status, _ := doJSON(t, ts, http.MethodPut, "/api/snippets/"+id, otherToken, map[string]any{"title": "stolen"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, ts, http.MethodDelete, "/api/snippets/"+id, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestForkFlow(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := registerUser(t, ts, "owner")
	forkerToken, forkerID := registerUser(t, ts, "forker")

	original := createSnippet(t, ts, ownerToken, map[string]any{
		"title": "Debounce", "code": "x", "language": "javascript", "isPublic": true,
	})
	originalID := original["id"].(string)

	status, body := doJSON(t, ts, http.MethodPost, "/api/snippets/"+originalID+"/fork", forkerToken, nil)
	require.Equal(t, http.StatusCreated, status)
	fork := body["snippet"].(map[string]any)

	assert.Equal(t, "Debounce (Fork)", fork["title"])
	assert.Equal(t, false, fork["isPublic"])
	assert.Equal(t, true, fork["isForked"])
	assert.Equal(t, "forks", fork["snippetCollection"])
	assert.Equal(t, forkerID, fork["author"].(map[string]any)["id"])
	origin := fork["originalSnippet"].(map[string]any)
	assert.Equal(t, originalID, origin["id"])
	assert.Equal(t, "Debounce", origin["title"])
	assert.Equal(t, "owner", origin["author"].(map[string]any)["username"])

	// The origin's fork list now names the fork.
	status, body = doJSON(t, ts, http.MethodGet, "/api/snippets/"+originalID, "", nil)
	require.Equal(t, http.StatusOK, status)
	forks := body["snippet"].(map[string]any)["forks"].([]any)
	require.Len(t, forks, 1)
	assert.Equal(t, fork["id"], forks[0])

	// Forking a private snippet is denied, even for its owner.
	private := createSnippet(t, ts, ownerToken, map[string]any{
		"title": "secret", "code": "x", "language": "go", "isPublic": false,
	})
	status, _ = doJSON(t, ts, http.MethodPost, "/api/snippets/"+private["id"].(string)+"/fork", ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestLikeFlow(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := registerUser(t, ts, "owner")
	fanToken, _ := registerUser(t, ts, "fan")

	snippet := createSnippet(t, ts, ownerToken, map[string]any{
		"title": "Likeable", "code": "x", "language": "go", "isPublic": true,
	})
	id := snippet["id"].(string)

	status, body := doJSON(t, ts, http.MethodPost, "/api/snippets/"+id+"/like", fanToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["isLiked"])
	assert.Equal(t, float64(1), body["likesCount"])

	// The liked feed now includes it.
	status, body = doJSON(t, ts, http.MethodGet, "/api/users/liked-snippets", fanToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["snippets"], 1)

	// Toggle off.
	status, body = doJSON(t, ts, http.MethodPost, "/api/snippets/"+id+"/like", fanToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["isLiked"])
	assert.Equal(t, float64(0), body["likesCount"])
}

func TestProfileAndSearch(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts, "alice")
	registerUser(t, ts, "alicia")

	createSnippet(t, ts, token, map[string]any{
		"title": "public one", "code": "x", "language": "go", "isPublic": true,
	})
	createSnippet(t, ts, token, map[string]any{
		"title": "private one", "code": "x", "language": "go", "isPublic": false,
	})

	status, body := doJSON(t, ts, http.MethodGet, "/api/users/profile/alice", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["snippets"], 1, "profile shows only public snippets")
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["totalSnippets"])
	assert.Equal(t, float64(1), stats["publicSnippets"])
	user := body["user"].(map[string]any)
	_, hasEmail := user["email"]
	assert.False(t, hasEmail, "profile must not expose the email")

	status, body = doJSON(t, ts, http.MethodGet, "/api/users/search?q=ali", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["users"], 2)

	// limit caps the result count.
	status, body = doJSON(t, ts, http.MethodGet, "/api/users/search?q=ali&limit=1", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["users"], 1)

	// Too-short query is rejected.
	status, _ = doJSON(t, ts, http.MethodGet, "/api/users/search?q=a", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStatsSelfOnly(t *testing.T) {
	ts := newTestServer(t)
	aliceToken, aliceID := registerUser(t, ts, "alice")
	bobToken, _ := registerUser(t, ts, "bob")

	status, body := doJSON(t, ts, http.MethodGet, "/api/users/stats/"+aliceID, aliceToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "overall")
	assert.Contains(t, body, "languages")
	assert.Contains(t, body, "collections")

	status, _ = doJSON(t, ts, http.MethodGet, "/api/users/stats/"+aliceID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestDirectories(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts, "alice")

	for i := 0; i < 2; i++ {
		createSnippet(t, ts, token, map[string]any{
			"title": fmt.Sprintf("go %d", i), "code": "x", "language": "go",
			"tags": []string{"web"}, "isPublic": true,
		})
	}
	createSnippet(t, ts, token, map[string]any{
		"title": "py", "code": "x", "language": "python", "isPublic": true,
	})

	status, body := doJSON(t, ts, http.MethodGet, "/api/snippets/languages/list", "", nil)
	require.Equal(t, http.StatusOK, status)
	languages := body["languages"].([]any)
	require.Len(t, languages, 2)
	top := languages[0].(map[string]any)
	assert.Equal(t, "go", top["language"])
	assert.Equal(t, float64(2), top["count"])

	status, body = doJSON(t, ts, http.MethodGet, "/api/snippets/tags/list", "", nil)
	require.Equal(t, http.StatusOK, status)
	tags := body["tags"].([]any)
	require.Len(t, tags, 1)
	assert.Equal(t, "web", tags[0].(map[string]any)["name"])
}

func TestListFilteringAndPagination(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts, "alice")

	for i := 0; i < 12; i++ {
		lang := "go"
		if i%2 == 0 {
			lang = "python"
		}
		createSnippet(t, ts, token, map[string]any{
			"title": fmt.Sprintf("snippet %02d", i), "code": "x", "language": lang, "isPublic": true,
		})
	}

	status, body := doJSON(t, ts, http.MethodGet, "/api/snippets?limit=5&page=2", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["snippets"], 5)
	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["currentPage"])
	assert.Equal(t, float64(3), pagination["totalPages"])
	assert.Equal(t, float64(12), pagination["totalSnippets"])
	assert.Equal(t, true, pagination["hasNext"])
	assert.Equal(t, true, pagination["hasPrev"])

	status, body = doJSON(t, ts, http.MethodGet, "/api/snippets?language=python", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["snippets"], 6)

	// The author filter narrows the public feed to one writer.
	bobToken, bobID := registerUser(t, ts, "bob")
	createSnippet(t, ts, bobToken, map[string]any{
		"title": "bob's only one", "code": "x", "language": "go", "isPublic": true,
	})
	status, body = doJSON(t, ts, http.MethodGet, "/api/snippets?author="+bobID, "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["snippets"], 1)
	snippet := body["snippets"].([]any)[0].(map[string]any)
	assert.Equal(t, bobID, snippet["author"].(map[string]any)["id"])
}

func TestUpdateProfileEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts, "alice")

	status, body := doJSON(t, ts, http.MethodPut, "/api/users/profile", token, map[string]any{
		"avatar": "https://example.com/a.png",
		"bio":    "hello",
	})
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, "https://example.com/a.png", user["avatar"])
	assert.Equal(t, "hello", user["bio"])
}
