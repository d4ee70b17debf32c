package vault

import (
	"context"

	models "snipvault/internal/domain/models/vault"
)

// TagService manages a user's tags
type TagService interface {
	// ListTags lists the caller's tags by name
	ListTags(ctx context.Context, userID string) ([]models.Tag, error)

	// CreateTag creates a tag. A case-insensitive duplicate returns a
	// ConflictError carrying the existing tag's id.
	CreateTag(ctx context.Context, userID string, req *CreateTagRequest) (*models.Tag, error)

	// GetTag retrieves one of the caller's tags
	GetTag(ctx context.Context, userID, id string) (*models.Tag, error)

	// UpdateTag renames or recolors a tag and reindexes its snippets
	UpdateTag(ctx context.Context, userID, id string, req *UpdateTagRequest) (*models.Tag, error)

	// DeleteTag deletes a tag and reindexes the snippets that carried it
	DeleteTag(ctx context.Context, userID, id string) error
}

// CreateTagRequest represents a tag creation request
type CreateTagRequest struct {
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}

// UpdateTagRequest represents a tag update request
type UpdateTagRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}
