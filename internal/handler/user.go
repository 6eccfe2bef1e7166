package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nahid/snipvault/internal/auth"
	"github.com/nahid/snipvault/internal/service"
	"github.com/nahid/snipvault/internal/validate"
)

// UserHandler exposes profiles, search, statistics and the liked feed.
type UserHandler struct {
	users    *service.UserService
	snippets *service.SnippetService
}

func NewUserHandler(users *service.UserService, snippets *service.SnippetService) *UserHandler {
	return &UserHandler{users: users, snippets: snippets}
}

type updateProfileRequest struct {
	Avatar string `json:"avatar" validate:"omitempty,url,max=500"`
	Bio    string `json:"bio" validate:"max=500"`
}

// Profile handles GET /api/users/profile/{username} — public, no auth.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r.URL.Query().Get("page"), 1)
	limit := queryInt(r.URL.Query().Get("limit"), 10)

	profile, err := h.users.Profile(r.Context(), chi.URLParam(r, "username"), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":       profile.User,
		"snippets":   profile.Snippets,
		"pagination": profile.Pagination,
		"stats":      profile.Stats,
	})
}

// Search handles GET /api/users/search?q=...&limit=...
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r.URL.Query().Get("limit"), 10)
	users, err := h.users.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// Stats handles GET /api/users/stats/{userId} — self only.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := auth.UserIDFromContext(r.Context())

	stats, err := h.users.Stats(r.Context(), requesterID, chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"overall":     stats.Overall,
		"languages":   stats.Languages,
		"collections": stats.Collections,
	})
}

// LikedSnippets handles GET /api/users/liked-snippets.
func (h *UserHandler) LikedSnippets(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	page := queryInt(r.URL.Query().Get("page"), 1)
	limit := queryInt(r.URL.Query().Get("limit"), 10)

	snippets, pagination, err := h.snippets.ListLiked(r.Context(), userID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(snippets, pagination))
}

// UpdateProfile handles PUT /api/users/profile.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, req.Avatar, req.Bio)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    user,
	})
}
