package handler

import (
	"log/slog"
	"net/http"

	models "snipvault/internal/domain/models/vault"
	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/httputil"
)

// SearchHandler handles snippet search requests
type SearchHandler struct {
	searchService vaultSvc.SearchService
	logger        *slog.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService vaultSvc.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// Search runs a ranked search over the caller's snippets
// GET /api/search?q=&collection=&tag=&status=&limit=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	limit, err := httputil.QueryInt(r, "limit", 0)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	req := &models.SearchRequest{
		Query:        q.Get("q"),
		CollectionID: q.Get("collection"),
		TagName:      q.Get("tag"),
		Status:       q.Get("status"),
		Limit:        limit,
	}

	results, err := h.searchService.Search(r.Context(), userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("search completed",
		"user_id", userID,
		"total", results.Total,
	)

	httputil.RespondJSON(w, http.StatusOK, results)
}
