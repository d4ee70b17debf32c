package handler

import (
	"context"
	"log/slog"
	"net/http"

	models "snipvault/internal/domain/models/vault"
	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/httputil"
)

// SnippetHandler handles snippet HTTP requests
type SnippetHandler struct {
	snippetService vaultSvc.SnippetService
	logger         *slog.Logger
}

// NewSnippetHandler creates a new snippet handler
func NewSnippetHandler(snippetService vaultSvc.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{
		snippetService: snippetService,
		logger:         logger,
	}
}

// updateSnippetDTO carries the PATCH body; collection_id distinguishes absent from null
type updateSnippetDTO struct {
	Title        *string                 `json:"title"`
	Description  *string                 `json:"description"`
	CollectionID httputil.OptionalID `json:"collection_id"`
	Status       *string                 `json:"status"`
	Blocks       *[]vaultSvc.BlockInput  `json:"blocks"`
	TagIDs       *[]string               `json:"tag_ids"`
}

// flagDTO is the body of the favorite and pin toggles
type flagDTO struct {
	Value *bool `json:"value"`
}

// ListSnippets lists the caller's own snippets
// GET /api/snippets?status=&limit=&offset=
func (h *SnippetHandler) ListSnippets(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	req, err := listRequest(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.snippetService.ListSnippets(r.Context(), userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// CreateSnippet creates a snippet with its blocks and tags
// POST /api/snippets
func (h *SnippetHandler) CreateSnippet(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req vaultSvc.CreateSnippetRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snippet, err := h.snippetService.CreateSnippet(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, snippet)
}

// GetSnippet retrieves a snippet with blocks, tags and the caller's rank
// GET /api/snippets/{id}
func (h *SnippetHandler) GetSnippet(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	snippet, err := h.snippetService.GetSnippet(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, snippet)
}

// UpdateSnippet edits fields, moves, publishes or replaces blocks and tags
// PATCH /api/snippets/{id}
func (h *SnippetHandler) UpdateSnippet(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var dto updateSnippetDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req := &vaultSvc.UpdateSnippetRequest{
		Title:        dto.Title,
		Description:  dto.Description,
		CollectionID: dto.CollectionID.Service(),
		Status:       dto.Status,
		Blocks:       dto.Blocks,
		TagIDs:       dto.TagIDs,
	}

	snippet, err := h.snippetService.UpdateSnippet(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, snippet)
}

// UpdateBlock edits one block in place
// PATCH /api/snippets/{id}/blocks/{blockId}
func (h *SnippetHandler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req vaultSvc.UpdateBlockRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	block, err := h.snippetService.UpdateBlock(r.Context(), userID, r.PathValue("id"), r.PathValue("blockId"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, block)
}

// DeleteSnippet deletes a snippet and its search document
// DELETE /api/snippets/{id}
func (h *SnippetHandler) DeleteSnippet(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	if err := h.snippetService.DeleteSnippet(r.Context(), userID, r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AttachTag attaches one of the caller's tags
// POST /api/snippets/{id}/tags/{tagId}
func (h *SnippetHandler) AttachTag(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	snippet, err := h.snippetService.AttachTag(r.Context(), userID, r.PathValue("id"), r.PathValue("tagId"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, snippet)
}

// DetachTag removes a tag from a snippet
// DELETE /api/snippets/{id}/tags/{tagId}
func (h *SnippetHandler) DetachTag(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	snippet, err := h.snippetService.DetachTag(r.Context(), userID, r.PathValue("id"), r.PathValue("tagId"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, snippet)
}

// SetFavorite toggles the favorite flag
// PUT /api/snippets/{id}/favorite
func (h *SnippetHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, h.snippetService.SetFavorite)
}

// SetPinned toggles the pinned flag
// PUT /api/snippets/{id}/pin
func (h *SnippetHandler) SetPinned(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, h.snippetService.SetPinned)
}

func (h *SnippetHandler) setFlag(
	w http.ResponseWriter,
	r *http.Request,
	set func(ctx context.Context, userID, id string, value bool) (*models.Snippet, error),
) {
	userID := httputil.GetUserID(r)

	var dto flagDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if dto.Value == nil {
		httputil.RespondError(w, http.StatusBadRequest, "value is required")
		return
	}

	snippet, err := set(r.Context(), userID, r.PathValue("id"), *dto.Value)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, snippet)
}
