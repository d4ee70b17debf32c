package vault

import (
	"context"

	models "snipvault/internal/domain/models/vault"
)

// SnippetService handles snippet business logic. Every write that changes
// title, blocks or tags updates the search index in the same transaction.
type SnippetService interface {
	// CreateSnippet creates a snippet authored by the caller
	CreateSnippet(ctx context.Context, userID string, req *CreateSnippetRequest) (*models.SnippetDetail, error)

	// GetSnippet retrieves a readable snippet with blocks, tags and collection
	GetSnippet(ctx context.Context, userID, id string) (*models.SnippetDetail, error)

	// UpdateSnippet updates a writable snippet
	UpdateSnippet(ctx context.Context, userID, id string, req *UpdateSnippetRequest) (*models.SnippetDetail, error)

	// UpdateBlock edits one block's content or language
	UpdateBlock(ctx context.Context, userID, snippetID, blockID string, req *UpdateBlockRequest) (*models.Block, error)

	// DeleteSnippet deletes a snippet (owner only)
	DeleteSnippet(ctx context.Context, userID, id string) error

	// AttachTag links one of the author's tags to the snippet
	AttachTag(ctx context.Context, userID, snippetID, tagID string) (*models.SnippetDetail, error)

	// DetachTag unlinks a tag from the snippet
	DetachTag(ctx context.Context, userID, snippetID, tagID string) (*models.SnippetDetail, error)

	// SetFavorite flags or unflags the snippet (author only)
	SetFavorite(ctx context.Context, userID, id string, value bool) (*models.Snippet, error)

	// SetPinned pins or unpins the snippet (author only)
	SetPinned(ctx context.Context, userID, id string, value bool) (*models.Snippet, error)

	// ListSnippets lists the caller's own snippets
	ListSnippets(ctx context.Context, userID string, req *ListSnippetsRequest) (*models.SnippetPage, error)

	// ListCollectionSnippets lists snippets in a readable collection, optionally
	// including every descendant collection
	ListCollectionSnippets(ctx context.Context, userID, collectionID string, req *ListSnippetsRequest) (*models.SnippetPage, error)

	// GetPublicSnippet returns a published snippet by public id, without auth
	GetPublicSnippet(ctx context.Context, publicID string) (*models.PublicSnippet, error)
}

// BlockInput is one block in a create or update request
type BlockInput struct {
	Type     models.BlockType `json:"type"`
	Content  *string          `json:"content,omitempty"`
	Language *string          `json:"language,omitempty"`
	FilePath *string          `json:"file_path,omitempty"`
	FileName *string          `json:"file_name,omitempty"`
	FileSize *int64           `json:"file_size,omitempty"`
}

// CreateSnippetRequest represents a snippet creation request
type CreateSnippetRequest struct {
	Title        string       `json:"title"`
	Description  *string      `json:"description,omitempty"`
	CollectionID *string      `json:"collection_id,omitempty"`
	Status       string       `json:"status,omitempty"` // defaults to draft
	Blocks       []BlockInput `json:"blocks"`
	TagIDs       []string     `json:"tag_ids,omitempty"`
}

// UpdateSnippetRequest represents a snippet update request.
// Blocks and TagIDs replace the existing sets when non-nil.
type UpdateSnippetRequest struct {
	Title        *string       `json:"title,omitempty"`
	Description  *string       `json:"description,omitempty"`
	CollectionID OptionalID    // no json tag - mapped from handler DTO
	Status       *string       `json:"status,omitempty"`
	Blocks       *[]BlockInput `json:"blocks,omitempty"`
	TagIDs       *[]string     `json:"tag_ids,omitempty"`
}

// UpdateBlockRequest edits a single block
type UpdateBlockRequest struct {
	Content  *string `json:"content,omitempty"`
	Language *string `json:"language,omitempty"`
}

// ListSnippetsRequest configures snippet listings
type ListSnippetsRequest struct {
	Status  string
	Subtree bool
	Limit   int
	Offset  int
}
