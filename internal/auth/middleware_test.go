package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiddlewareTestService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)
	return svc
}

// echoUserID responds with the user ID found in the request context, or
// "anonymous" if there is none.
func echoUserID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := UserIDFromContext(r.Context()); ok {
			w.Write([]byte(userID))
			return
		}
		w.Write([]byte("anonymous"))
	})
}

func TestRequireAuthWithBearerHeader(t *testing.T) {
	tokens := newMiddlewareTestService(t)
	token, err := tokens.Generate("user-42")
	require.NoError(t, err)

	handler := RequireAuth(tokens)(echoUserID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", rec.Body.String())
}

func TestRequireAuthWithCookie(t *testing.T) {
	tokens := newMiddlewareTestService(t)
	token, err := tokens.Generate("user-42")
	require.NoError(t, err)

	handler := RequireAuth(tokens)(echoUserID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", rec.Body.String())
}

func TestRequireAuthRejectsMissingCredential(t *testing.T) {
	tokens := newMiddlewareTestService(t)
	handler := RequireAuth(tokens)(echoUserID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Authentication required"}`, rec.Body.String())
}

func TestRequireAuthRejectsBadToken(t *testing.T) {
	tokens := newMiddlewareTestService(t)
	handler := RequireAuth(tokens)(echoUserID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	tokens := newMiddlewareTestService(t)
	handler := OptionalAuth(tokens)(echoUserID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestOptionalAuthResolvesIdentity(t *testing.T) {
	tokens := newMiddlewareTestService(t)
	token, err := tokens.Generate("user-42")
	require.NoError(t, err)

	handler := OptionalAuth(tokens)(echoUserID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "user-42", rec.Body.String())
}

func TestOptionalAuthIgnoresBadToken(t *testing.T) {
	tokens := newMiddlewareTestService(t)
	handler := OptionalAuth(tokens)(echoUserID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}
