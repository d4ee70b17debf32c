package vault

import (
	"context"
	"time"

	models "snipvault/internal/domain/models/vault"
)

// SnippetRepository defines data access operations for snippets
type SnippetRepository interface {
	// Create creates a new snippet
	Create(ctx context.Context, snippet *models.Snippet) error

	// GetByID retrieves a snippet by ID
	GetByID(ctx context.Context, id string) (*models.Snippet, error)

	// GetForUpdate retrieves a snippet and locks its row for the rest of the
	// transaction in ctx
	GetForUpdate(ctx context.Context, id string) (*models.Snippet, error)

	// GetByPublicID retrieves a snippet by its public identifier
	GetByPublicID(ctx context.Context, publicID string) (*models.Snippet, error)

	// Update persists every mutable column
	Update(ctx context.Context, snippet *models.Snippet) error

	// SetFlags changes is_favorite and/or is_pinned (nil leaves a flag as is),
	// bumps updated_at and returns the stored row. No other column is written.
	SetFlags(ctx context.Context, id string, favorite, pinned *bool, at time.Time) (*models.Snippet, error)

	// Touch bumps updated_at
	Touch(ctx context.Context, id string, at time.Time) error

	// Delete deletes a snippet; blocks and tag links cascade
	Delete(ctx context.Context, id string) error

	// ListIDsByAuthor lists the IDs of every snippet written by a user
	ListIDsByAuthor(ctx context.Context, authorID string) ([]string, error)

	// List returns summaries matching the filter, newest first, and the total count
	List(ctx context.Context, filter *models.SnippetFilter) ([]models.SnippetSummary, int, error)
}

// BlockRepository defines data access operations for snippet blocks
type BlockRepository interface {
	// ListBySnippet lists a snippet's blocks in order
	ListBySnippet(ctx context.Context, snippetID string) ([]models.Block, error)

	// ReplaceAll deletes every block of the snippet and inserts the given ones
	ReplaceAll(ctx context.Context, snippetID string, blocks []models.Block) error

	// GetByID retrieves one block of a snippet
	GetByID(ctx context.Context, snippetID, blockID string) (*models.Block, error)

	// Update updates content and language of a block
	Update(ctx context.Context, block *models.Block) error
}

// TagRepository defines data access operations for tags and snippet tag links
type TagRepository interface {
	// Create creates a new tag
	Create(ctx context.Context, tag *models.Tag) error

	// GetByID retrieves a tag by ID
	GetByID(ctx context.Context, id string) (*models.Tag, error)

	// FindByName finds a user's tag by name, ignoring case. Returns nil, nil when absent.
	FindByName(ctx context.Context, userID, name string) (*models.Tag, error)

	// ListByUser lists a user's tags by name
	ListByUser(ctx context.Context, userID string) ([]models.Tag, error)

	// Update updates name and color
	Update(ctx context.Context, tag *models.Tag) error

	// Delete deletes a tag; snippet links cascade
	Delete(ctx context.Context, id string) error

	// ListBySnippet lists the tags attached to a snippet
	ListBySnippet(ctx context.Context, snippetID string) ([]models.Tag, error)

	// ListSnippetIDs lists the snippets carrying a tag
	ListSnippetIDs(ctx context.Context, tagID string) ([]string, error)

	// ReplaceSnippetTags replaces a snippet's tag set
	ReplaceSnippetTags(ctx context.Context, snippetID string, tagIDs []string) error

	// Attach links a tag to a snippet. Returns false if it was already attached.
	Attach(ctx context.Context, snippetID, tagID string) (bool, error)

	// Detach unlinks a tag from a snippet. Returns false if it was not attached.
	Detach(ctx context.Context, snippetID, tagID string) (bool, error)
}

// SearchIndexRepository stores search documents and runs queries against them
type SearchIndexRepository interface {
	// Upsert replaces the document for its snippet
	Upsert(ctx context.Context, doc *models.SearchDocument) error

	// Delete removes a snippet's document. Missing documents are not an error.
	Delete(ctx context.Context, snippetID string) error

	// Get retrieves a snippet's document
	Get(ctx context.Context, snippetID string) (*models.SearchDocument, error)

	// DeleteOrphans removes an owner's documents whose snippet no longer
	// exists or is no longer authored by that owner
	DeleteOrphans(ctx context.Context, ownerID string) (int64, error)

	// DeleteUnowned removes documents whose user no longer exists
	DeleteUnowned(ctx context.Context) (int64, error)

	// Count counts documents of one owner, or of everyone when ownerID is nil
	Count(ctx context.Context, ownerID *string) (int, error)

	// Search runs a query and returns ranked summaries
	Search(ctx context.Context, query *models.IndexQuery) ([]models.SnippetSummary, error)
}
