package handler

import (
	"log/slog"
	"net/http"

	vaultSvc "snipvault/internal/domain/services/vault"
	"snipvault/internal/httputil"
)

// MemberHandler handles collection membership HTTP requests
type MemberHandler struct {
	memberService vaultSvc.MemberService
	logger        *slog.Logger
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(memberService vaultSvc.MemberService, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
		logger:        logger,
	}
}

// ListMembers lists a collection's members
// GET /api/collections/{id}/members
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	members, err := h.memberService.ListMembers(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, members)
}

// AddMember invites a user by email
// POST /api/collections/{id}/members
func (h *MemberHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req vaultSvc.AddMemberRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	member, err := h.memberService.AddMember(r.Context(), userID, r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, member)
}

// UpdateMember changes a member's permission
// PATCH /api/collections/{id}/members/{userId}
func (h *MemberHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req vaultSvc.UpdateMemberRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	member, err := h.memberService.UpdateMember(r.Context(), userID, r.PathValue("id"), r.PathValue("userId"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, member)
}

// RemoveMember revokes a membership
// DELETE /api/collections/{id}/members/{userId}
func (h *MemberHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	if err := h.memberService.RemoveMember(r.Context(), userID, r.PathValue("id"), r.PathValue("userId")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
