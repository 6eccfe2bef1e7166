package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nahid/snipvault/internal/auth"
	"github.com/nahid/snipvault/internal/model"
	"github.com/nahid/snipvault/internal/repository"
	"github.com/nahid/snipvault/internal/service"
	"github.com/nahid/snipvault/internal/validate"
)

// SnippetHandler exposes the snippet endpoints.
type SnippetHandler struct {
	snippets *service.SnippetService
}

func NewSnippetHandler(snippets *service.SnippetService) *SnippetHandler {
	return &SnippetHandler{snippets: snippets}
}

type createSnippetRequest struct {
	Title       string   `json:"title" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Code        string   `json:"code" validate:"required"`
	Language    string   `json:"language" validate:"required,language"`
	Tags        []string `json:"tags"`
	IsPublic    bool     `json:"isPublic"`
	Collection  string   `json:"snippetCollection" validate:"max=50"`
}

// updateSnippetRequest uses pointers throughout: an absent key means
// "leave unchanged", which a zero value can't express.
type updateSnippetRequest struct {
	Title       *string   `json:"title" validate:"omitempty,max=100"`
	Description *string   `json:"description" validate:"omitempty,max=500"`
	Code        *string   `json:"code" validate:"omitempty,min=1"`
	Language    *string   `json:"language" validate:"omitempty,language"`
	Tags        *[]string `json:"tags"`
	IsPublic    *bool     `json:"isPublic"`
	Collection  *string   `json:"snippetCollection" validate:"omitempty,max=50"`
}

// Create handles POST /api/snippets.
func (h *SnippetHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createSnippetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Create(r.Context(), userID, service.CreateSnippetInput{
		Title:       req.Title,
		Description: req.Description,
		Code:        req.Code,
		Language:    req.Language,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
		Collection:  req.Collection,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Snippet created successfully",
		"snippet": snippet,
	})
}

// List handles GET /api/snippets — the public feed.
func (h *SnippetHandler) List(w http.ResponseWriter, r *http.Request) {
	snippets, pagination, err := h.snippets.List(r.Context(), parseListFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(snippets, pagination))
}

// ListMine handles GET /api/snippets/my — the owner's own snippets,
// private included.
func (h *SnippetHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	snippets, pagination, err := h.snippets.ListMine(r.Context(), userID, parseListFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(snippets, pagination))
}

// Get handles GET /api/snippets/{id}.
func (h *SnippetHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	snippet, err := h.snippets.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snippet": snippet})
}

// Update handles PUT /api/snippets/{id}.
func (h *SnippetHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req updateSnippetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Update(r.Context(), userID, chi.URLParam(r, "id"), service.UpdateSnippetInput{
		Title:       req.Title,
		Description: req.Description,
		Code:        req.Code,
		Language:    req.Language,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
		Collection:  req.Collection,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Snippet updated successfully",
		"snippet": snippet,
	})
}

// Delete handles DELETE /api/snippets/{id}.
func (h *SnippetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.snippets.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Snippet deleted successfully"})
}

// Fork handles POST /api/snippets/{id}/fork.
func (h *SnippetHandler) Fork(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	fork, err := h.snippets.Fork(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Snippet forked successfully",
		"snippet": fork,
	})
}

// Like handles POST /api/snippets/{id}/like — a toggle, not an idempotent
// set.
func (h *SnippetHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	liked, count, err := h.snippets.ToggleLike(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	message := "Snippet unliked"
	if liked {
		message = "Snippet liked"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    message,
		"likesCount": count,
		"isLiked":    liked,
	})
}

// Languages handles GET /api/snippets/languages/list.
func (h *SnippetHandler) Languages(w http.ResponseWriter, r *http.Request) {
	languages, err := h.snippets.Languages(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"languages": languages})
}

// Tags handles GET /api/snippets/tags/list.
func (h *SnippetHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.snippets.Tags(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func listResponse(snippets []model.Snippet, pagination repository.Pagination) map[string]any {
	return map[string]any{
		"snippets":   snippets,
		"pagination": pagination,
	}
}

// parseListFilter reads the listing query parameters. Unparseable numbers
// fall back to defaults rather than erroring; the repository clamps the
// final values.
func parseListFilter(r *http.Request) repository.SnippetFilter {
	q := r.URL.Query()

	filter := repository.SnippetFilter{
		Search:     strings.TrimSpace(q.Get("search")),
		Language:   q.Get("language"),
		Author:     q.Get("author"),
		Collection: q.Get("snippetCollection"),
		Sort:       q.Get("sort"),
		Order:      q.Get("order"),
		Page:       queryInt(q.Get("page"), 1),
		Limit:      queryInt(q.Get("limit"), 10),
	}

	if raw := q.Get("tags"); raw != "" {
		filter.Tags = model.NormalizeTags(strings.Split(raw, ","))
	}

	// Only meaningful on /my, where the owner may narrow by visibility.
	if raw := q.Get("isPublic"); raw != "" {
		if isPublic, err := strconv.ParseBool(raw); err == nil {
			filter.IsPublic = &isPublic
		}
	}

	return filter
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
