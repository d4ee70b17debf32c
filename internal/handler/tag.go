package handler

import (
	"log/slog"
	"net/http"

	models "snipvault/internal/domain/models/vault"
	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/httputil"
)

// TagHandler handles tag HTTP requests
type TagHandler struct {
	tagService vaultSvc.TagService
	logger     *slog.Logger
}

// NewTagHandler creates a new tag handler
func NewTagHandler(tagService vaultSvc.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{
		tagService: tagService,
		logger:     logger,
	}
}

// ListTags lists the caller's tags with usage counts
// GET /api/tags
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	tags, err := h.tagService.ListTags(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tags)
}

// CreateTag creates a tag; a duplicate name returns the existing tag with 409
// POST /api/tags
func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req vaultSvc.CreateTagRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tag, err := h.tagService.CreateTag(r.Context(), userID, &req)
	if err != nil {
		HandleCreateConflict(w, err, func(id string) (*models.Tag, error) {
			return h.tagService.GetTag(r.Context(), userID, id)
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, tag)
}

// UpdateTag renames or recolors a tag
// PATCH /api/tags/{id}
func (h *TagHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req vaultSvc.UpdateTagRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tag, err := h.tagService.UpdateTag(r.Context(), userID, r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tag)
}

// DeleteTag deletes a tag and detaches it everywhere
// DELETE /api/tags/{id}
func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	if err := h.tagService.DeleteTag(r.Context(), userID, r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
