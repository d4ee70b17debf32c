package vault

import (
	"context"

	models "snipvault/internal/domain/models/vault"
)

// CollectionRepository defines data access operations for collections
type CollectionRepository interface {
	// Create creates a new collection
	Create(ctx context.Context, collection *models.Collection) error

	// GetByID retrieves a collection by ID
	GetByID(ctx context.Context, id string) (*models.Collection, error)

	// Update updates name, description, icon and parent
	Update(ctx context.Context, collection *models.Collection) error

	// Delete deletes a collection
	Delete(ctx context.Context, id string) error

	// ListOwned lists every collection owned by a user
	ListOwned(ctx context.Context, ownerID string) ([]models.Collection, error)

	// ListShared lists collections a user reaches through membership
	ListShared(ctx context.Context, userID string) ([]models.SharedCollection, error)

	// ListChildren lists immediate child collections
	ListChildren(ctx context.Context, parentID string) ([]models.Collection, error)

	// ListChildLinks returns the child edges of every given parent in one query
	ListChildLinks(ctx context.Context, parentIDs []string) ([]models.ChildLink, error)

	// CountContents counts snippets and child collections directly inside a collection
	CountContents(ctx context.Context, id string) (snippets int, children int, err error)

	// SetShared writes the is_shared cache
	SetShared(ctx context.Context, id string, shared bool) error
}

// MemberRepository defines data access operations for collection memberships
type MemberRepository interface {
	// Get retrieves the membership of a user on a collection
	Get(ctx context.Context, collectionID, userID string) (*models.CollectionMember, error)

	// List lists the members of a collection with user name and email
	List(ctx context.Context, collectionID string) ([]models.CollectionMember, error)

	// Add inserts a membership. An existing row returns a ConflictError.
	Add(ctx context.Context, member *models.CollectionMember) error

	// UpdatePermission changes the permission of an existing membership
	UpdatePermission(ctx context.Context, collectionID, userID, permission string) error

	// Remove deletes a membership
	Remove(ctx context.Context, collectionID, userID string) error

	// Count counts the memberships of a collection
	Count(ctx context.Context, collectionID string) (int, error)
}
