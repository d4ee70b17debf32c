package handler

import (
	"log/slog"
	"net/http"

	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/httputil"
)

// PublicHandler serves published snippets without authentication
type PublicHandler struct {
	snippetService vaultSvc.SnippetService
	logger         *slog.Logger
}

// NewPublicHandler creates a new public snippet handler
func NewPublicHandler(snippetService vaultSvc.SnippetService, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{
		snippetService: snippetService,
		logger:         logger,
	}
}

// GetPublicSnippet returns a published snippet by its public id
// GET /s/{publicId}
func (h *PublicHandler) GetPublicSnippet(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippetService.GetPublicSnippet(r.Context(), r.PathValue("publicId"))
	if err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	httputil.RespondJSON(w, http.StatusOK, snippet)
}
