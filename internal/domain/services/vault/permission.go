package vault

import (
	"context"

	models "snipvault/internal/domain/models/vault"
)

// PermissionResolver computes ranks and enforces capabilities.
//
// A missing resource is reported as domain.ErrNotFound. A resource the user
// cannot reach at the required capability is reported as domain.ErrForbidden.
type PermissionResolver interface {
	// CollectionRank returns the user's rank on a collection
	CollectionRank(ctx context.Context, userID, collectionID string) (models.Rank, error)

	// SnippetRank returns the user's rank on a snippet
	SnippetRank(ctx context.Context, userID, snippetID string) (models.Rank, error)

	// RequireCollection loads a collection and checks the capability
	RequireCollection(ctx context.Context, userID, collectionID string, need models.Capability) (*models.Collection, models.Rank, error)

	// RequireSnippet loads a snippet and checks the capability
	RequireSnippet(ctx context.Context, userID, snippetID string, need models.Capability) (*models.Snippet, models.Rank, error)
}

// SubtreeResolver walks the collection hierarchy
type SubtreeResolver interface {
	// DescendantIDs returns the root and every collection below it
	DescendantIDs(ctx context.Context, rootID string) ([]string, error)

	// Ancestors returns the chain from the top-level collection down to id (inclusive)
	Ancestors(ctx context.Context, id string) ([]models.Collection, error)
}
