package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"snipvault/internal/auth"
	"snipvault/internal/domain"
	models "snipvault/internal/domain/models/vault"
	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/httputil"
)

// Auth resolves the bearer credential to a user and stores its ID and role in
// the request context. A token with three dot-separated segments is treated as
// a JWT when a verifier is configured; anything else is looked up as an API key.
// verifier may be nil, in which case only API keys are accepted.
func Auth(verifier auth.JWTVerifier, users vaultSvc.UserService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			var (
				user *models.User
				err  error
			)
			if verifier != nil && strings.Count(token, ".") == 2 {
				claims, verifyErr := verifier.VerifyToken(token)
				if verifyErr != nil {
					logger.Debug("jwt rejected", "error", verifyErr, "path", r.URL.Path)
					httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				// The token proves identity; the account must still exist
				user, err = users.GetUser(r.Context(), claims.Subject)
			} else {
				user, err = users.AuthenticateAPIKey(r.Context(), token)
			}

			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrNotFound) {
					httputil.RespondError(w, http.StatusUnauthorized, "invalid credentials")
					return
				}
				logger.Error("authentication lookup failed", "error", err, "path", r.URL.Path)
				httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			next.ServeHTTP(w, httputil.WithUser(r, user.ID, user.Role))
		})
	}
}

// bearerToken extracts the credential from "Authorization: Bearer <token>"
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
