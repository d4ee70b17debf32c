package handler

import (
	"log/slog"
	"net/http"

	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/httputil"
)

// AuthHandler exchanges credentials for API keys
type AuthHandler struct {
	userService vaultSvc.UserService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService vaultSvc.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger,
	}
}

type apiKeyRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Rotate   bool   `json:"rotate"`
}

type apiKeyResponse struct {
	UserID string `json:"user_id"`
	APIKey string `json:"api_key"`
}

// IssueAPIKey returns the caller's API key, minting one when none exists or rotation is asked for
// POST /api/auth/api-key
func (h *AuthHandler) IssueAPIKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, err)
		return
	}

	if user.APIKey != nil && *user.APIKey != "" && !req.Rotate {
		httputil.RespondJSON(w, http.StatusOK, apiKeyResponse{UserID: user.ID, APIKey: *user.APIKey})
		return
	}

	key, err := h.userService.RotateAPIKey(r.Context(), user.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("api key issued", "user_id", user.ID)
	httputil.RespondJSON(w, http.StatusOK, apiKeyResponse{UserID: user.ID, APIKey: key})
}

// Me returns the authenticated user
// GET /api/users/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, user)
}
