package handler

import (
	"errors"
	"net/http"

	"snipvault/internal/domain"
	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/httputil"
)

// HandleCreateConflict handles conflicts during creation by returning the existing resource with 409
// If the error is a ConflictError, it calls fetchFn with the existing resource's ID
func HandleCreateConflict[T any](w http.ResponseWriter, err error, fetchFn func(id string) (*T, error)) {
	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) && conflictErr.ResourceID != "" {
		existing, fetchErr := fetchFn(conflictErr.ResourceID)
		if fetchErr != nil {
			handleError(w, fetchErr)
			return
		}

		httputil.RespondJSON(w, http.StatusConflict, existing)
		return
	}

	handleError(w, err)
}

// listRequest parses the shared listing query parameters
func listRequest(r *http.Request) (*vaultSvc.ListSnippetsRequest, error) {
	limit, err := httputil.QueryInt(r, "limit", 0)
	if err != nil {
		return nil, err
	}
	offset, err := httputil.QueryInt(r, "offset", 0)
	if err != nil {
		return nil, err
	}
	subtree, err := httputil.QueryBool(r, "subtree")
	if err != nil {
		return nil, err
	}
	return &vaultSvc.ListSnippetsRequest{
		Status:  r.URL.Query().Get("status"),
		Subtree: subtree,
		Limit:   limit,
		Offset:  offset,
	}, nil
}
