package handler

import (
	"log/slog"
	"net/http"

	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/httputil"
)

// AdminHandler handles maintenance operations
type AdminHandler struct {
	indexService vaultSvc.IndexService
	logger       *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(indexService vaultSvc.IndexService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		indexService: indexService,
		logger:       logger,
	}
}

// RebuildIndex regenerates search documents from the content tables.
// Without ?user the caller's own documents are rebuilt; user=all rebuilds
// everything and, like naming another user, needs the admin role.
// POST /api/admin/rebuild-index?user=
func (h *AdminHandler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	isAdmin := httputil.GetUserRole(r) == models.RoleAdmin

	var owner *string
	switch target := r.URL.Query().Get("user"); target {
	case "":
		owner = &userID
	case "all":
		owner = nil
	default:
		owner = &target
	}

	if (owner == nil || *owner != userID) && !isAdmin {
		handleError(w, domain.ErrForbidden)
		return
	}

	stats, err := h.indexService.Rebuild(r.Context(), owner)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("search index rebuilt",
		"requested_by", userID,
		"owners", stats.Owners,
		"snippets", stats.Snippets,
		"orphans_removed", stats.OrphansRemoved,
		"duration", stats.Duration,
	)

	httputil.RespondJSON(w, http.StatusOK, stats)
}
