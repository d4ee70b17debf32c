package handler

import (
	"log/slog"
	"net/http"

	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/httputil"
)

// CollectionHandler handles collection HTTP requests
type CollectionHandler struct {
	collectionService vaultSvc.CollectionService
	snippetService    vaultSvc.SnippetService
	logger            *slog.Logger
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(collectionService vaultSvc.CollectionService, snippetService vaultSvc.SnippetService, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{
		collectionService: collectionService,
		snippetService:    snippetService,
		logger:            logger,
	}
}

// updateCollectionDTO carries the PATCH body; parent_id distinguishes absent from null
type updateCollectionDTO struct {
	Name        *string                 `json:"name"`
	Description *string                 `json:"description"`
	Icon        *string                 `json:"icon"`
	ParentID    httputil.OptionalID `json:"parent_id"`
}

// ListCollections lists owned and shared collections
// GET /api/collections
func (h *CollectionHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	collections, err := h.collectionService.ListCollections(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, collections)
}

// CreateCollection creates a collection
// POST /api/collections
func (h *CollectionHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req vaultSvc.CreateCollectionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	collection, err := h.collectionService.CreateCollection(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, collection)
}

// GetCollection retrieves a collection with breadcrumb and rank
// GET /api/collections/{id}
func (h *CollectionHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	collection, err := h.collectionService.GetCollection(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, collection)
}

// UpdateCollection renames or moves a collection
// PATCH /api/collections/{id}
func (h *CollectionHandler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var dto updateCollectionDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req := &vaultSvc.UpdateCollectionRequest{
		Name:        dto.Name,
		Description: dto.Description,
		Icon:        dto.Icon,
		ParentID:    dto.ParentID.Service(),
	}

	collection, err := h.collectionService.UpdateCollection(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, collection)
}

// DeleteCollection deletes an empty collection
// DELETE /api/collections/{id}
func (h *CollectionHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	if err := h.collectionService.DeleteCollection(r.Context(), userID, r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListChildren lists immediate child collections
// GET /api/collections/{id}/children
func (h *CollectionHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	children, err := h.collectionService.ListChildren(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, children)
}

// ListSnippets lists a collection's snippets, optionally with every descendant
// GET /api/collections/{id}/snippets?subtree=true&status=&limit=&offset=
func (h *CollectionHandler) ListSnippets(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	req, err := listRequest(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.snippetService.ListCollectionSnippets(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}
