package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"snipvault/internal/domain"
	"snipvault/internal/httputil"
)

// handleError converts domain errors to HTTP responses. Index desync is checked
// first: it wraps its cause, which may itself be a not-found or validation error,
// but the write it belongs to failed as a whole.
func handleError(w http.ResponseWriter, err error) {
	var (
		desyncErr   *domain.IndexDesyncError
		cycleErr    *domain.CycleError
		notEmptyErr *domain.NotEmptyError
		conflictErr *domain.ConflictError
	)

	switch {
	case errors.As(err, &desyncErr):
		slog.Error("search index out of sync", "snippet_id", desyncErr.SnippetID, "error", desyncErr.Err)
		httputil.RespondProblem(w, httputil.NewProblem(http.StatusInternalServerError, "search index update failed; nothing was saved").
			WithType(httputil.ProblemIndexDesync).
			With("snippet_id", desyncErr.SnippetID))
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &cycleErr):
		httputil.RespondProblem(w, httputil.NewProblem(http.StatusConflict, cycleErr.Error()).
			WithType(httputil.ProblemCollectionCycle).
			With("collection_id", cycleErr.CollectionID).
			With("parent_id", cycleErr.ParentID))
	case errors.As(err, &notEmptyErr):
		httputil.RespondProblem(w, httputil.NewProblem(http.StatusConflict, notEmptyErr.Error()).
			WithType(httputil.ProblemCollectionNotEmpty).
			With("snippets", notEmptyErr.Snippets).
			With("children", notEmptyErr.Children))
	case errors.As(err, &conflictErr):
		problem := httputil.NewProblem(http.StatusConflict, conflictErr.Error()).
			WithType(httputil.ProblemDuplicate).
			With("resource_type", conflictErr.ResourceType)
		if conflictErr.ResourceID != "" {
			problem.With("resource_id", conflictErr.ResourceID)
		}
		httputil.RespondProblem(w, problem)
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
