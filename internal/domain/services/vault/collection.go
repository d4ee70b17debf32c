package vault

import (
	"context"

	models "snipvault/internal/domain/models/vault"
)

// CollectionService handles collection business logic
type CollectionService interface {
	// CreateCollection creates a collection owned by the caller
	CreateCollection(ctx context.Context, userID string, req *CreateCollectionRequest) (*models.CollectionView, error)

	// GetCollection retrieves a collection with breadcrumb, path and the caller's rank
	GetCollection(ctx context.Context, userID, id string) (*models.CollectionView, error)

	// ListCollections lists collections owned by or shared with the caller
	ListCollections(ctx context.Context, userID string) ([]models.CollectionView, error)

	// ListChildren lists the immediate children of a readable collection
	ListChildren(ctx context.Context, userID, id string) ([]models.CollectionView, error)

	// UpdateCollection renames, re-describes or moves a collection (owner only)
	UpdateCollection(ctx context.Context, userID, id string, req *UpdateCollectionRequest) (*models.CollectionView, error)

	// DeleteCollection deletes an empty collection (owner only)
	DeleteCollection(ctx context.Context, userID, id string) error
}

// CreateCollectionRequest represents a collection creation request
type CreateCollectionRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"` // null for top level
}

// UpdateCollectionRequest represents a collection update request
type UpdateCollectionRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Icon        *string    `json:"icon,omitempty"`
	ParentID    OptionalID // no json tag - mapped from handler DTO
}

// MemberService manages collection memberships. Every operation requires owner rank.
type MemberService interface {
	// ListMembers lists members with name and email
	ListMembers(ctx context.Context, userID, collectionID string) ([]models.CollectionMember, error)

	// AddMember grants a user read or write on the collection
	AddMember(ctx context.Context, userID, collectionID string, req *AddMemberRequest) (*models.CollectionMember, error)

	// UpdateMember changes a member's permission
	UpdateMember(ctx context.Context, userID, collectionID, memberID string, req *UpdateMemberRequest) (*models.CollectionMember, error)

	// RemoveMember revokes a membership
	RemoveMember(ctx context.Context, userID, collectionID, memberID string) error
}

// AddMemberRequest represents a membership invite
type AddMemberRequest struct {
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

// UpdateMemberRequest represents a membership permission change
type UpdateMemberRequest struct {
	Permission string `json:"permission"`
}
