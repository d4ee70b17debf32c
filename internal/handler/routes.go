package handler

import (
	"net/http"
)

// Handlers groups every HTTP handler the server mounts
type Handlers struct {
	Health      *HealthHandler
	Auth        *AuthHandler
	Public      *PublicHandler
	Search      *SearchHandler
	Collections *CollectionHandler
	Members     *MemberHandler
	Snippets    *SnippetHandler
	Tags        *TagHandler
	Admin       *AdminHandler
}

// RegisterRoutes mounts the API on mux. Routes under /api (except the
// credential exchange) are wrapped with authed individually so the mux
// still records the matched pattern on the outer request.
func RegisterRoutes(mux *http.ServeMux, h *Handlers, authed func(http.Handler) http.Handler) {
	protect := func(fn http.HandlerFunc) http.Handler {
		return authed(fn)
	}

	// Unauthenticated
	mux.HandleFunc("GET /health", h.Health.HealthCheck)
	mux.HandleFunc("POST /api/auth/api-key", h.Auth.IssueAPIKey)
	mux.HandleFunc("GET /s/{publicId}", h.Public.GetPublicSnippet)

	mux.Handle("GET /api/users/me", protect(h.Auth.Me))

	// Search
	mux.Handle("GET /api/search", protect(h.Search.Search))

	// Collections
	mux.Handle("GET /api/collections", protect(h.Collections.ListCollections))
	mux.Handle("POST /api/collections", protect(h.Collections.CreateCollection))
	mux.Handle("GET /api/collections/{id}", protect(h.Collections.GetCollection))
	mux.Handle("PATCH /api/collections/{id}", protect(h.Collections.UpdateCollection))
	mux.Handle("DELETE /api/collections/{id}", protect(h.Collections.DeleteCollection))
	mux.Handle("GET /api/collections/{id}/children", protect(h.Collections.ListChildren))
	mux.Handle("GET /api/collections/{id}/snippets", protect(h.Collections.ListSnippets))

	// Members
	mux.Handle("GET /api/collections/{id}/members", protect(h.Members.ListMembers))
	mux.Handle("POST /api/collections/{id}/members", protect(h.Members.AddMember))
	mux.Handle("PATCH /api/collections/{id}/members/{userId}", protect(h.Members.UpdateMember))
	mux.Handle("DELETE /api/collections/{id}/members/{userId}", protect(h.Members.RemoveMember))

	// Snippets
	mux.Handle("GET /api/snippets", protect(h.Snippets.ListSnippets))
	mux.Handle("POST /api/snippets", protect(h.Snippets.CreateSnippet))
	mux.Handle("GET /api/snippets/{id}", protect(h.Snippets.GetSnippet))
	mux.Handle("PATCH /api/snippets/{id}", protect(h.Snippets.UpdateSnippet))
	mux.Handle("DELETE /api/snippets/{id}", protect(h.Snippets.DeleteSnippet))
	mux.Handle("PATCH /api/snippets/{id}/blocks/{blockId}", protect(h.Snippets.UpdateBlock))
	mux.Handle("POST /api/snippets/{id}/tags/{tagId}", protect(h.Snippets.AttachTag))
	mux.Handle("DELETE /api/snippets/{id}/tags/{tagId}", protect(h.Snippets.DetachTag))
	mux.Handle("PUT /api/snippets/{id}/favorite", protect(h.Snippets.SetFavorite))
	mux.Handle("PUT /api/snippets/{id}/pin", protect(h.Snippets.SetPinned))

	// Tags
	mux.Handle("GET /api/tags", protect(h.Tags.ListTags))
	mux.Handle("POST /api/tags", protect(h.Tags.CreateTag))
	mux.Handle("PATCH /api/tags/{id}", protect(h.Tags.UpdateTag))
	mux.Handle("DELETE /api/tags/{id}", protect(h.Tags.DeleteTag))

	// Admin
	mux.Handle("POST /api/admin/rebuild-index", protect(h.Admin.RebuildIndex))
}
